package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the sentinel previous-hash of the first entry in the chain.
const GenesisHash = "GENESIS"

// Severity classifies the operational weight of an audit entry.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// AuditEntry is a single immutable record in the hash chain. Entries are
// write-once: no update or delete path exists anywhere in the store contract.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	Seq        int64          `json:"seq"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	ResourceID string         `json:"resourceId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Severity   Severity       `json:"severity"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`

	// PreviousHash is the hex EntryHash of the predecessor, or GenesisHash
	// for the first entry. EntryHash covers PreviousHash, Action, ResourceID,
	// canonical Details and CreatedAt. Actor, IPAddress and UserAgent are
	// descriptive only and not part of the chain digest.
	PreviousHash string `json:"previousHash"`
	EntryHash    string `json:"entryHash"`
}

// ChainTail describes the current end of the chain as observed inside the
// store's serialized append section. A zero CreatedAt means the chain is empty
// and Hash is GenesisHash.
type ChainTail struct {
	Hash      string
	CreatedAt time.Time
}

// Order selects creation-order direction for listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// EntryFilter narrows a listing. Zero values mean "no constraint".
type EntryFilter struct {
	Actor    string
	Action   string
	From     time.Time
	To       time.Time
	AfterSeq int64 // keyset cursor: only entries with Seq > AfterSeq
}

// EntryStore is the persistence contract of the chain core. The store is the
// single source of truth for the tail; no process-local tail state exists.
type EntryStore interface {
	// AppendSerialized runs build with the true chain tail under a store-level
	// exclusive section spanning tail read and insert, and persists the
	// returned entry atomically. All other concurrent appends across all
	// processes sharing the store wait or fail; none observe a partial write.
	// An error from build aborts the append with no partial state.
	AppendSerialized(ctx context.Context, build func(tail ChainTail) (*AuditEntry, error)) (*AuditEntry, error)

	// Latest returns the newest entry by creation order, or ErrNotFound when
	// the chain is empty.
	Latest(ctx context.Context) (*AuditEntry, error)

	// List returns entries matching filter in the given creation order.
	List(ctx context.Context, filter EntryFilter, order Order, limit, offset int) ([]*AuditEntry, error)

	// Count returns the number of entries matching filter.
	Count(ctx context.Context, filter EntryFilter) (int64, error)
}
