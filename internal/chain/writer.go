package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/waxseal/waxseal/internal/domain"
)

// AppendRequest carries the caller-supplied fields of a new entry. ID,
// CreatedAt and both hashes are assigned by the Writer.
type AppendRequest struct {
	Actor      string
	Action     string
	ResourceID string
	Details    map[string]any
	Severity   domain.Severity
	IPAddress  string
	UserAgent  string
}

// Writer appends entries to the chain. It holds no tail state of its own;
// the store's serialized append section is the only place the tail is read,
// so multiple service instances sharing one store cannot fork the chain.
type Writer struct {
	store domain.EntryStore
	now   func() time.Time
}

// NewWriter creates a Writer on top of an entry store.
func NewWriter(store domain.EntryStore) *Writer {
	return &Writer{store: store, now: time.Now}
}

// Append validates the request, links a new entry to the current tail and
// persists it atomically. Validation failures surface as ErrInvalidInput
// before any hashing or I/O; store failures are wrapped and returned as-is.
// Callers for whom audit logging is best-effort should go through Recorder.
func (w *Writer) Append(ctx context.Context, req AppendRequest) (*domain.AuditEntry, error) {
	if req.Actor == "" {
		return nil, fmt.Errorf("chain.Writer.Append: actor is empty: %w", domain.ErrInvalidInput)
	}
	if req.Action == "" {
		return nil, fmt.Errorf("chain.Writer.Append: action is empty: %w", domain.ErrInvalidInput)
	}
	severity := req.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("chain.Writer.Append: severity %q: %w", req.Severity, domain.ErrInvalidInput)
	}

	// Canonicalize before entering the serialized section so a malformed
	// payload never holds the chain lock.
	canonical, err := CanonicalDetails(req.Details)
	if err != nil {
		return nil, fmt.Errorf("chain.Writer.Append: %w: %v", domain.ErrInvalidInput, err)
	}

	entry, err := w.store.AppendSerialized(ctx, func(tail domain.ChainTail) (*domain.AuditEntry, error) {
		createdAt := w.now().UTC().Truncate(time.Millisecond)
		// CreatedAt must be non-decreasing in creation order even if the
		// wall clock steps backwards between appends.
		if createdAt.Before(tail.CreatedAt) {
			createdAt = tail.CreatedAt
		}

		return &domain.AuditEntry{
			ID:           uuid.New(),
			Actor:        req.Actor,
			Action:       req.Action,
			ResourceID:   req.ResourceID,
			Details:      req.Details,
			Severity:     severity,
			IPAddress:    req.IPAddress,
			UserAgent:    req.UserAgent,
			CreatedAt:    createdAt,
			PreviousHash: tail.Hash,
			EntryHash:    ComputeHash(tail.Hash, req.Action, req.ResourceID, canonical, createdAt),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("chain.Writer.Append: %w", err)
	}

	return entry, nil
}
