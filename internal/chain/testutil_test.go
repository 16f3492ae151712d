package chain

import (
	"context"
	"sync"

	"github.com/waxseal/waxseal/internal/domain"
)

// memStore is a mutex-serialized in-memory EntryStore. Its mutex plays the
// role the advisory lock plays in the Postgres store: the tail read and the
// insert happen under one exclusive section.
type memStore struct {
	mu        sync.Mutex
	entries   []*domain.AuditEntry
	appendErr error
	listErr   error
}

func (s *memStore) AppendSerialized(ctx context.Context, build func(tail domain.ChainTail) (*domain.AuditEntry, error)) (*domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return nil, s.appendErr
	}

	tail := domain.ChainTail{Hash: domain.GenesisHash}
	if n := len(s.entries); n > 0 {
		last := s.entries[n-1]
		tail = domain.ChainTail{Hash: last.EntryHash, CreatedAt: last.CreatedAt}
	}

	entry, err := build(tail)
	if err != nil {
		return nil, err
	}

	entry.Seq = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *memStore) Latest(ctx context.Context) (*domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return nil, domain.ErrNotFound
	}
	return s.entries[len(s.entries)-1], nil
}

func (s *memStore) List(ctx context.Context, filter domain.EntryFilter, order domain.Order, limit, offset int) ([]*domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []*domain.AuditEntry
	for _, e := range s.entries {
		if matchesFilter(e, filter) {
			out = append(out, e)
		}
	}
	if order == domain.OrderDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Count(ctx context.Context, filter domain.EntryFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return 0, s.listErr
	}

	var n int64
	for _, e := range s.entries {
		if matchesFilter(e, filter) {
			n++
		}
	}
	return n, nil
}

func matchesFilter(e *domain.AuditEntry, filter domain.EntryFilter) bool {
	if filter.Actor != "" && e.Actor != filter.Actor {
		return false
	}
	if filter.Action != "" && e.Action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && e.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && e.CreatedAt.After(filter.To) {
		return false
	}
	if e.Seq <= filter.AfterSeq {
		return false
	}
	return true
}

type mockPublisher struct {
	PublishFunc func(ctx context.Context, channel string, payload []byte) error
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return m.PublishFunc(ctx, channel, payload)
}

type mockAlerter struct {
	AppendFailedFunc  func(ctx context.Context, actor, action string, err error)
	CriticalEntryFunc func(ctx context.Context, entry *domain.AuditEntry)
}

func (m *mockAlerter) AppendFailed(ctx context.Context, actor, action string, err error) {
	if m.AppendFailedFunc != nil {
		m.AppendFailedFunc(ctx, actor, action, err)
	}
}

func (m *mockAlerter) CriticalEntry(ctx context.Context, entry *domain.AuditEntry) {
	if m.CriticalEntryFunc != nil {
		m.CriticalEntryFunc(ctx, entry)
	}
}
