package memory

import (
	"context"
	"sort"
	"sync"

	"trade-pattern-lab/internal/domain"
	"trade-pattern-lab/internal/storage"
)

// PatternSnapshotStore is an in-memory implementation of storage.PatternSnapshotStore.
type PatternSnapshotStore struct {
	mu   sync.RWMutex
	runs []string                             // run IDs in insertion order
	data map[string][]*domain.PatternSnapshot // keyed by run_id
}

// NewPatternSnapshotStore creates a new in-memory pattern snapshot store.
func NewPatternSnapshotStore() *PatternSnapshotStore {
	return &PatternSnapshotStore{
		data: make(map[string][]*domain.PatternSnapshot),
	}
}

// InsertBulk adds all snapshots of one run.
func (s *PatternSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PatternSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	runID := ""
	seen := make(map[domain.PatternKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" {
			return storage.ErrInvalidInput
		}
		if runID == "" {
			runID = snap.RunID
		}
		if snap.RunID != runID {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[snap.Metrics.Key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[snap.Metrics.Key] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	rows := make([]*domain.PatternSnapshot, len(snapshots))
	for i, snap := range snapshots {
		c := *snap
		rows[i] = &c
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Metrics.Key.String() < rows[j].Metrics.Key.String()
	})

	s.data[runID] = rows
	s.runs = append(s.runs, runID)
	return nil
}

// GetByRun retrieves the snapshots of a run ordered by pattern key.
func (s *PatternSnapshotStore) GetByRun(_ context.Context, runID string) ([]*domain.PatternSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.data[runID]
	if !ok {
		return nil, nil
	}
	return copySnapshots(rows), nil
}

// GetLatestRunID returns the greatest run ID. Run IDs are ULIDs, so the
// lexical maximum is the most recent run.
func (s *PatternSnapshotStore) GetLatestRunID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return "", storage.ErrNotFound
	}
	latest := s.runs[0]
	for _, r := range s.runs[1:] {
		if r > latest {
			latest = r
		}
	}
	return latest, nil
}

// GetHistory retrieves every snapshot of one pattern ordered by run.
func (s *PatternSnapshotStore) GetHistory(_ context.Context, key domain.PatternKey) ([]*domain.PatternSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PatternSnapshot
	for _, rows := range s.data {
		for _, snap := range rows {
			if snap.Metrics.Key == key {
				c := *snap
				result = append(result, &c)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func copySnapshots(rows []*domain.PatternSnapshot) []*domain.PatternSnapshot {
	out := make([]*domain.PatternSnapshot, len(rows))
	for i, snap := range rows {
		c := *snap
		out[i] = &c
	}
	return out
}

var _ storage.PatternSnapshotStore = (*PatternSnapshotStore)(nil)
