package check

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store useful for tests and local wiring.
// It is not intended for production use, but it honors the same conditional
// update semantics as the Postgres store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	byCorr  map[string]string
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		byCorr:  make(map[string]string),
		clock:   time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byCorr[e.CorrelationID]; dup {
		return ErrConflict
	}
	s.entries[e.ID] = e
	s.byCorr[e.CorrelationID] = e.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) ListPending(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ApprovalStatus == ApprovalPending {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateApprovalStatus(ctx context.Context, id string, res Resolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.ApprovalStatus != ApprovalPending {
		return false, nil
	}
	e.ApprovalStatus = res.Status
	at := res.At
	e.ApprovalAt = &at
	switch res.Status {
	case ApprovalApproved:
		e.ApprovedBy = res.ActorID
	case ApprovalRejected:
		e.RejectedBy = res.ActorID
		e.RejectReason = res.Reason
	}
	s.entries[id] = e
	return true, nil
}

func (s *MemoryStore) ListByActor(ctx context.Context, actorID string, actionType ActionType, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ActorID != actorID {
			continue
		}
		if actionType != "" && e.ActionType != actionType {
			continue
		}
		out = append(out, e)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountRecent(ctx context.Context, actorID string, actionType ActionType, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock().Add(-window)
	n := 0
	for _, e := range s.entries {
		if e.ActorID == actorID && e.ActionType == actionType && e.CreatedAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
