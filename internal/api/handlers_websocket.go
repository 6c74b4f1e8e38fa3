// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/doughmination/backend/internal/auth"
	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/websocket"
)

// ServeWebSocket upgrades the connection and registers the client with
// the hub. Anonymous clients join the public group only; a valid session
// token (header or ?token=) additionally joins the authenticated group.
func (h *Handlers) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWebSocketOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	groups := []string{websocket.GroupAll}
	if _, ok := auth.ClaimsFromContext(r.Context()); ok {
		groups = append(groups, websocket.GroupAuthenticated)
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register(client, groups...)
	client.Start()
}

// checkWebSocketOrigin accepts same-origin requests and the configured
// CORS origins.
func (h *Handlers) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Server.CORSOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
