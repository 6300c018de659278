// Package store holds the order -> phone correlation map that bridges
// webhook events arriving days apart. The map lives in memory and every
// mutation is written through to a pluggable backend before returning.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mejo-sal/pinable/internal/domain/order"
)

// Backend persists the whole correlation map. Load is called once at
// startup; Save after every mutation.
type Backend interface {
	Load(ctx context.Context) (map[string]order.Correlation, error)
	Save(ctx context.Context, data map[string]order.Correlation) error
}

// CorrelationStore is the single source of truth for "does this order have
// a known deliverable phone". Mutations for the same order id are serialized
// by a per-key lock so duplicate webhook deliveries cannot race the
// read-modify-persist sequence.
type CorrelationStore struct {
	backend Backend
	logger  *slog.Logger

	mu   sync.RWMutex
	data map[string]order.Correlation

	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

// New loads the persisted map from the backend. An unreadable or corrupt
// snapshot starts the store empty instead of failing startup.
func New(ctx context.Context, backend Backend, logger *slog.Logger) *CorrelationStore {
	data, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("correlation snapshot unreadable, starting fresh", "error", err)
		data = map[string]order.Correlation{}
	}
	if data == nil {
		data = map[string]order.Correlation{}
	}

	logger.Info("correlation store loaded", "entries", len(data))

	return &CorrelationStore{
		backend: backend,
		logger:  logger,
		data:    data,
		keys:    map[string]*sync.Mutex{},
	}
}

// Put records or overwrites the correlation for an order and persists the
// map before returning. The in-memory entry is kept even when persistence
// fails, so later shipment events in this process can still be delivered.
func (s *CorrelationStore) Put(ctx context.Context, orderID string, c order.Correlation) error {
	unlock := s.lockKey(orderID)
	defer unlock()

	s.mu.Lock()
	s.data[orderID] = c
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist correlation %s: %w", orderID, err)
	}
	return nil
}

// Get returns the correlation for an order, if any.
func (s *CorrelationStore) Get(orderID string) (order.Correlation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[orderID]
	return c, ok
}

// Remove deletes the correlation and persists. Removing an absent id is a
// no-op that still persists, keeping snapshot and memory aligned.
func (s *CorrelationStore) Remove(ctx context.Context, orderID string) error {
	unlock := s.lockKey(orderID)
	defer unlock()

	s.mu.Lock()
	delete(s.data, orderID)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persist removal %s: %w", orderID, err)
	}
	return nil
}

// Len reports the number of tracked orders, for the health endpoint.
func (s *CorrelationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Flush persists the current map, used on shutdown.
func (s *CorrelationStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()
	return s.backend.Save(ctx, snapshot)
}

func (s *CorrelationStore) snapshotLocked() map[string]order.Correlation {
	snapshot := make(map[string]order.Correlation, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	return snapshot
}

func (s *CorrelationStore) lockKey(orderID string) func() {
	s.keysMu.Lock()
	m, ok := s.keys[orderID]
	if !ok {
		m = &sync.Mutex{}
		s.keys[orderID] = m
	}
	s.keysMu.Unlock()

	m.Lock()
	return m.Unlock
}
