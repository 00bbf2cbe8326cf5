package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/recall/pkg/alert"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/types"
)

// NewBreakerSettings builds gobreaker settings from cfg. Not-found and
// validation errors do not count as failures. Tripping to open raises an
// alert.
func NewBreakerSettings(name string, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrValidation)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen && alerter != nil {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
				_ = alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg)
			}
		},
	}
}

// Execute runs fn through cb. Rejections by an open breaker are returned
// as a *types.StorageError for op.
func Execute[T any](cb *gobreaker.CircuitBreaker, op string, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &types.StorageError{Op: op, Err: err}
		}
		if res != nil {
			if v, ok := res.(T); ok {
				return v, err
			}
		}
		return zero, err
	}
	return res.(T), nil
}

// BreakerStore wraps a Store with circuit breaking logic
type BreakerStore struct {
	store Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore creates a new circuit breaker store
func NewBreakerStore(s Store, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *BreakerStore {
	return &BreakerStore{
		store: s,
		cb:    gobreaker.NewCircuitBreaker(NewBreakerSettings("entity-store", cfg, alerter, logger)),
	}
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) Create(ctx context.Context, e *types.Entity) (string, error) {
	return Execute(b.cb, "create", func() (string, error) { return b.store.Create(ctx, e) })
}

func (b *BreakerStore) Get(ctx context.Context, id string) (*types.Entity, error) {
	return Execute(b.cb, "get", func() (*types.Entity, error) { return b.store.Get(ctx, id) })
}

func (b *BreakerStore) GetMany(ctx context.Context, ids []string) ([]*types.Entity, error) {
	return Execute(b.cb, "get_many", func() ([]*types.Entity, error) { return b.store.GetMany(ctx, ids) })
}

func (b *BreakerStore) Update(ctx context.Context, e *types.Entity) (bool, error) {
	return Execute(b.cb, "update", func() (bool, error) { return b.store.Update(ctx, e) })
}

func (b *BreakerStore) Delete(ctx context.Context, id string) (bool, error) {
	return Execute(b.cb, "delete", func() (bool, error) { return b.store.Delete(ctx, id) })
}

func (b *BreakerStore) List(ctx context.Context, opts *ListOptions) ([]*types.Entity, error) {
	return Execute(b.cb, "list", func() ([]*types.Entity, error) { return b.store.List(ctx, opts) })
}

func (b *BreakerStore) SearchByText(ctx context.Context, query string, opts *TextSearchOptions) ([]*types.Entity, error) {
	return Execute(b.cb, "search", func() ([]*types.Entity, error) { return b.store.SearchByText(ctx, query, opts) })
}

func (b *BreakerStore) Ping(ctx context.Context) error {
	_, err := Execute(b.cb, "ping", func() (struct{}, error) { return struct{}{}, b.store.Ping(ctx) })
	return err
}

func (b *BreakerStore) Close() error {
	return b.store.Close()
}
