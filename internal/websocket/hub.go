// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package websocket implements the realtime fan-out layer. The hub owns
// the connection registry explicitly: clients are added on register and
// removed on unregister or send failure, with no reliance on garbage
// collection to reap dead connections.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/metrics"
)

// Subscription groups. Every client joins GroupAll; clients that present
// a valid session additionally join GroupAuthenticated.
const (
	GroupAll           = "all"
	GroupAuthenticated = "authenticated"
)

// Event types pushed to clients.
const (
	MessageTypeFrontingUpdate    = "fronting_update"
	MessageTypeMembersUpdate     = "members_update"
	MessageTypeCofrontUpdate     = "cofront_update"
	MessageTypeMentalStateUpdate = "mental_state_update"
	MessageTypeForceRefresh      = "force_refresh"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
)

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`

	// RelatedMembers narrows interest-targeted events to the members
	// they concern.
	RelatedMembers []string `json:"related_members,omitempty"`
}

// NewMessage builds an envelope stamped with the current UTC time.
func NewMessage(messageType string, data interface{}) Message {
	return Message{
		Type:      messageType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// registration pairs a client with the groups it joins.
type registration struct {
	client *Client
	groups []string
}

// groupMessage pairs an envelope with its target group.
type groupMessage struct {
	group   string
	message Message
}

// Hub maintains the connection registry, a map of group name to member
// set. A client may appear in several groups; disconnection removes it
// from all of them.
type Hub struct {
	groups     map[string]map[*Client]bool
	broadcast  chan groupMessage
	register   chan registration
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub with the standard groups.
func NewHub() *Hub {
	return &Hub{
		groups: map[string]map[*Client]bool{
			GroupAll:           make(map[*Client]bool),
			GroupAuthenticated: make(map[*Client]bool),
		},
		broadcast:  make(chan groupMessage, 256),
		register:   make(chan registration),
		unregister: make(chan *Client),
	}
}

// Register adds a client to the given groups. Unknown group names are
// created on the fly.
func (h *Hub) Register(client *Client, groups ...string) {
	if len(groups) == 0 {
		groups = []string{GroupAll}
	}
	h.register <- registration{client: client, groups: groups}
}

// Unregister removes a client from every group it belongs to. Safe to
// call for a client that was already removed.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// RunWithContext runs the hub event loop until the context is canceled,
// then closes all clients and returns ctx.Err().
//
// Selection is priority-ordered so behavior stays predictable when
// several channels are ready: shutdown first, then lifecycle events,
// then broadcasts. Go's select picks randomly among ready channels,
// which would otherwise let a broadcast race a disconnection.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events (non-blocking check)
		select {
		case reg := <-h.register:
			h.addClient(reg)
			continue
		case client := <-h.unregister:
			h.removeClient(client, true)
			continue
		default:
		}

		// Priority 3: broadcasts, or block for any event
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case reg := <-h.register:
			h.addClient(reg)
		case client := <-h.unregister:
			h.removeClient(client, true)
		case gm := <-h.broadcast:
			h.broadcastToGroup(gm.group, gm.message)
		}
	}
}

// Run runs the hub without shutdown support. Kept for tests and simple
// embedding; production use goes through RunWithContext.
func (h *Hub) Run() {
	_ = h.RunWithContext(context.Background())
}

func (h *Hub) addClient(reg registration) {
	h.mu.Lock()
	for _, group := range reg.groups {
		if h.groups[group] == nil {
			h.groups[group] = make(map[*Client]bool)
		}
		h.groups[group][reg.client] = true
		metrics.WebSocketClients.WithLabelValues(group).Set(float64(len(h.groups[group])))
	}
	h.mu.Unlock()

	logging.Info().
		Strs("groups", reg.groups).
		Int("total_clients", h.GroupSize(GroupAll)).
		Msg("websocket client connected")
}

// removeClient drops a client from every group. closeSend controls
// whether the send channel is closed here; broadcastToGroup closes it
// itself to avoid a double close.
func (h *Hub) removeClient(client *Client, closeSend bool) {
	h.mu.Lock()
	found := false
	for group, members := range h.groups {
		if members[client] {
			delete(members, client)
			found = true
			metrics.WebSocketClients.WithLabelValues(group).Set(float64(len(members)))
		}
	}
	h.mu.Unlock()

	if found && closeSend {
		close(client.send)
	}
	if found {
		logging.Info().
			Int("total_clients", h.GroupSize(GroupAll)).
			Msg("websocket client disconnected")
	}
}

// broadcastToGroup delivers a message to every member of a group in
// client-ID order. A client whose send buffer is full is treated as
// disconnected and dropped from all groups; one slow client never blocks
// delivery to the rest.
func (h *Hub) broadcastToGroup(group string, message Message) {
	h.mu.Lock()
	members := make([]*Client, 0, len(h.groups[group]))
	for client := range h.groups[group] {
		members = append(members, client)
	}
	h.mu.Unlock()

	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	var failed []*Client
	for _, client := range members {
		select {
		case client.send <- message:
		default:
			failed = append(failed, client)
		}
	}

	metrics.WebSocketBroadcasts.WithLabelValues(message.Type).Inc()

	for _, client := range failed {
		metrics.WebSocketSendFailures.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("send buffer full, dropping websocket client")
		h.removeClient(client, false)
		close(client.send)
	}
}

// BroadcastEvent queues an event for every client in the given group.
// Delivery is asynchronous; a full hub queue drops the event with a
// warning rather than blocking the caller.
func (h *Hub) BroadcastEvent(group, messageType string, data interface{}) {
	gm := groupMessage{group: group, message: NewMessage(messageType, data)}
	select {
	case h.broadcast <- gm:
	default:
		logging.Warn().
			Str("group", group).
			Str("message_type", messageType).
			Msg("broadcast queue full, dropping event")
	}
}

// BroadcastToInterested queues an event for clients interested in the
// given members. Interest tracking is deliberately coarse: the event
// goes to the whole authenticated group, with the related members named
// in the envelope so clients can filter.
func (h *Hub) BroadcastToInterested(messageType string, data interface{}, relatedMembers []string) {
	message := NewMessage(messageType, data)
	message.RelatedMembers = relatedMembers
	gm := groupMessage{group: GroupAuthenticated, message: message}
	select {
	case h.broadcast <- gm:
	default:
		logging.Warn().
			Str("message_type", messageType).
			Msg("broadcast queue full, dropping interested event")
	}
}

// GroupSize returns the number of clients in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// shutdown closes every client and logs the reason.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := make(map[*Client]bool)
	var clients []*Client
	for _, members := range h.groups {
		for client := range members {
			if !closed[client] {
				closed[client] = true
				clients = append(clients, client)
			}
		}
		for client := range members {
			delete(members, client)
		}
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, client := range clients {
		close(client.send)
	}

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}
