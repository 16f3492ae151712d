package v1

import (
	"context"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/domain"
)

// EntryReader abstracts the read side of the entry store for handler
// testing. The domain.EntryStore implementations satisfy this interface.
type EntryReader interface {
	List(ctx context.Context, filter domain.EntryFilter, order domain.Order, limit, offset int) ([]*domain.AuditEntry, error)
	Count(ctx context.Context, filter domain.EntryFilter) (int64, error)
	Latest(ctx context.Context) (*domain.AuditEntry, error)
}

// Appender abstracts strict appends. *chain.Writer satisfies this interface.
type Appender interface {
	Append(ctx context.Context, req chain.AppendRequest) (*domain.AuditEntry, error)
}

// Recorder abstracts best-effort appends. *chain.Recorder satisfies this
// interface.
type Recorder interface {
	Record(ctx context.Context, req chain.AppendRequest) *domain.AuditEntry
}

// Verifier abstracts chain verification. *chain.Verifier satisfies this
// interface.
type Verifier interface {
	Verify(ctx context.Context, limit int) (*chain.Report, error)
}

// Archiver abstracts the export archive sink. *export.Archiver satisfies
// this interface.
type Archiver interface {
	Archive(ctx context.Context, key, contentType string, data []byte) (string, error)
}
