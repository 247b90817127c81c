// Package memory provides in-memory store implementations for tests and
// for running the service without databases.
package memory

import (
	"context"
	"sync"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/storage"
)

// TradeOutcomeStore is an in-memory implementation of storage.TradeOutcomeStore.
type TradeOutcomeStore struct {
	mu    sync.RWMutex
	order []*domain.TradeOutcome          // arrival order
	byID  map[string]*domain.TradeOutcome // keyed by trade_id
}

// NewTradeOutcomeStore creates a new in-memory trade outcome store.
func NewTradeOutcomeStore() *TradeOutcomeStore {
	return &TradeOutcomeStore{
		byID: make(map[string]*domain.TradeOutcome),
	}
}

// Insert adds a new outcome. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeOutcomeStore) Insert(_ context.Context, t *domain.TradeOutcome) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.appendLocked(t)
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *TradeOutcomeStore) InsertBulk(_ context.Context, trades []*domain.TradeOutcome) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.byID[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	for _, t := range trades {
		s.appendLocked(t)
	}
	return nil
}

func (s *TradeOutcomeStore) appendLocked(t *domain.TradeOutcome) {
	c := *t
	s.order = append(s.order, &c)
	s.byID[c.TradeID] = &c
}

// GetByID retrieves an outcome by its ID. Returns ErrNotFound if not exists.
func (s *TradeOutcomeStore) GetByID(_ context.Context, tradeID string) (*domain.TradeOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byID[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	c := *t
	return &c, nil
}

// GetByInstrument retrieves all outcomes for an instrument in arrival order.
func (s *TradeOutcomeStore) GetByInstrument(_ context.Context, instrument string) ([]*domain.TradeOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeOutcome
	for _, t := range s.order {
		if t.Instrument == instrument {
			c := *t
			result = append(result, &c)
		}
	}
	return result, nil
}

// GetAll retrieves every outcome in arrival order.
func (s *TradeOutcomeStore) GetAll(_ context.Context) ([]*domain.TradeOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeOutcome, len(s.order))
	for i, t := range s.order {
		c := *t
		result[i] = &c
	}
	return result, nil
}

// Count returns the number of stored outcomes.
func (s *TradeOutcomeStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

var _ storage.TradeOutcomeStore = (*TradeOutcomeStore)(nil)
