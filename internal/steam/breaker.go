// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package steam

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
)

// CircuitBreakerClient wraps a Client so a storefront outage fails fast
// instead of queueing 30 second timeouts behind the rate limiter.
//
// The breaker uses real time for its interval and timeout; tests exercise
// the wrapped client directly.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

var _ ClientInterface = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps client with a breaker that opens at a 60%
// failure rate over at least 10 requests, and probes again after 2 minutes.
func NewCircuitBreakerClient(client ClientInterface) *CircuitBreakerClient {
	cbName := "storefront-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening storefront circuit")
				return true
			}
			return false
		},

		// Throttling is an expected, retried condition; it must not count
		// toward opening the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil || IsThrottled(err) || errors.Is(err, ErrNoData)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("Storefront circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("Storefront request rejected by open circuit")
		}
		return nil, err
	}
	return result, nil
}

// castResult type-casts the breaker result with error checking.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetOwnedGames fetches the library with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetOwnedGames(ctx context.Context) (*models.LibrarySnapshot, error) {
	return castResult[*models.LibrarySnapshot](cbc.execute(func() (any, error) {
		return cbc.client.GetOwnedGames(ctx)
	}))
}

// GetAppDetails fetches one item's metadata with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetAppDetails(ctx context.Context, itemID int64) (*models.ItemMetadata, error) {
	return castResult[*models.ItemMetadata](cbc.execute(func() (any, error) {
		return cbc.client.GetAppDetails(ctx, itemID)
	}))
}

// GetAppDetailsBatch fetches many items' metadata with circuit breaker
// protection.
func (cbc *CircuitBreakerClient) GetAppDetailsBatch(ctx context.Context, itemIDs []int64) (map[int64]models.ItemMetadata, error) {
	return castResult[map[int64]models.ItemMetadata](cbc.execute(func() (any, error) {
		return cbc.client.GetAppDetailsBatch(ctx, itemIDs)
	}))
}

// GetOwnerReviews fetches the review set with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetOwnerReviews(ctx context.Context) (*models.ReviewSet, error) {
	return castResult[*models.ReviewSet](cbc.execute(func() (any, error) {
		return cbc.client.GetOwnerReviews(ctx)
	}))
}
