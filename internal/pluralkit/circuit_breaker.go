// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package pluralkit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/metrics"
	"github.com/doughmination/backend/internal/models"
)

// CircuitBreakerClient wraps an API with a circuit breaker so a failing
// upstream sheds load quickly instead of queueing timeouts. Validation
// errors (fronter limits, unknown members) do not trip the breaker; only
// transport failures and upstream 5xx responses count.
type CircuitBreakerClient struct {
	api     API
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewCircuitBreakerClient wraps api with a circuit breaker tuned for the
// PluralKit API: open after 5 consecutive failures, retry after 30s.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        "pluralkit",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if ue, ok := IsUpstreamError(err); ok && ue.StatusCode < 500 {
				// 4xx means upstream is healthy and rejected us.
				return true
			}
			return isValidationError(err)
		},
	}

	return &CircuitBreakerClient{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrTooManyFronters) ||
		errors.Is(err, ErrCofrontTooSmall) ||
		errors.Is(err, ErrMemberNotFound)
}

// castResult converts the breaker's interface{} result back to T. A nil
// result yields the zero value.
func castResult[T any](result interface{}) T {
	var zero T
	if result == nil {
		return zero
	}
	typed, ok := result.(T)
	if !ok {
		return zero
	}
	return typed
}

func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.breaker.Execute(fn)
	metrics.CircuitBreakerRequests.WithLabelValues("pluralkit", outcome(err)).Inc()
	return result, err
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

// System implements API.
func (c *CircuitBreakerClient) System(ctx context.Context) (*models.System, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.System(ctx)
	})
	if err != nil {
		return nil, err
	}
	return castResult[*models.System](result), nil
}

// Members implements API.
func (c *CircuitBreakerClient) Members(ctx context.Context) ([]models.Member, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.Members(ctx)
	})
	if err != nil {
		return nil, err
	}
	return castResult[[]models.Member](result), nil
}

// Fronters implements API.
func (c *CircuitBreakerClient) Fronters(ctx context.Context) (*models.Fronters, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.Fronters(ctx)
	})
	if err != nil {
		return nil, err
	}
	return castResult[*models.Fronters](result), nil
}

// SetFront implements API.
func (c *CircuitBreakerClient) SetFront(ctx context.Context, memberIDs []string) (json.RawMessage, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.SetFront(ctx, memberIDs)
	})
	if err != nil {
		return nil, err
	}
	return castResult[json.RawMessage](result), nil
}

// CreateCofront implements API.
func (c *CircuitBreakerClient) CreateCofront(ctx context.Context, memberIDs []string, name string) (*models.Member, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.CreateCofront(ctx, memberIDs, name)
	})
	if err != nil {
		return nil, err
	}
	return castResult[*models.Member](result), nil
}

// Cofronts implements API.
func (c *CircuitBreakerClient) Cofronts(ctx context.Context) ([]models.Member, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.api.Cofronts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return castResult[[]models.Member](result), nil
}

// InvalidateMembers implements API. Cache operations bypass the breaker.
func (c *CircuitBreakerClient) InvalidateMembers() { c.api.InvalidateMembers() }

// InvalidateFronters implements API. Cache operations bypass the breaker.
func (c *CircuitBreakerClient) InvalidateFronters() { c.api.InvalidateFronters() }

// MaxFronters implements API.
func (c *CircuitBreakerClient) MaxFronters() int { return c.api.MaxFronters() }
