package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/recall/pkg/config"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore returns err from every call.
type failingStore struct {
	err   error
	calls int
}

func (f *failingStore) Create(ctx context.Context, e *types.Entity) (string, error) {
	f.calls++
	return "", f.err
}
func (f *failingStore) Get(ctx context.Context, id string) (*types.Entity, error) {
	f.calls++
	return nil, f.err
}
func (f *failingStore) GetMany(ctx context.Context, ids []string) ([]*types.Entity, error) {
	f.calls++
	return nil, f.err
}
func (f *failingStore) Update(ctx context.Context, e *types.Entity) (bool, error) {
	f.calls++
	return false, f.err
}
func (f *failingStore) Delete(ctx context.Context, id string) (bool, error) {
	f.calls++
	return false, f.err
}
func (f *failingStore) List(ctx context.Context, opts *ListOptions) ([]*types.Entity, error) {
	f.calls++
	return nil, f.err
}
func (f *failingStore) SearchByText(ctx context.Context, q string, opts *TextSearchOptions) ([]*types.Entity, error) {
	f.calls++
	return nil, f.err
}
func (f *failingStore) Ping(ctx context.Context) error { return f.err }
func (f *failingStore) Close() error                   { return nil }

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, Interval: 60, Timeout: 60, ReadyToTripRatio: 0.5}
}

func TestBreakerStoreTripsAndAlerts(t *testing.T) {
	ctx := context.Background()
	inner := &failingStore{err: &types.StorageError{Op: "get", Err: errors.New("connection refused")}}
	alerter := &recordingAlerter{}
	b := NewBreakerStore(inner, breakerConfig(), alerter, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Get(ctx, "x")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Len(t, alerter.subjects, 1)

	calls := inner.calls
	_, err := b.List(ctx, nil)
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	assert.Equal(t, calls, inner.calls, "open breaker must not call the store")
}

func TestBreakerStoreIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerStore(&failingStore{err: types.ErrNotFound}, breakerConfig(), nil, nil)

	for i := 0; i < 5; i++ {
		_, err := b.Get(ctx, "x")
		assert.ErrorIs(t, err, types.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerStorePassesThrough(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := NewBreakerStore(s, breakerConfig(), nil, nil)

	id, err := b.Create(ctx, &types.Entity{Kind: types.KindGeneric, Title: "through the breaker"})
	require.NoError(t, err)

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "through the breaker", got.Title)
	assert.NoError(t, b.Ping(ctx))
}
