package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/domain"
	"github.com/waxseal/waxseal/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func authedCtx(actor, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyActor, actor)
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	ctx = context.WithValue(ctx, middleware.ContextKeyRemoteIP, "10.0.0.1")
	ctx = context.WithValue(ctx, middleware.ContextKeyUserAgent, "test-agent/1.0")
	return ctx
}

func adminCtx() context.Context   { return authedCtx("admin-1", middleware.RoleAdmin) }
func viewerCtx() context.Context  { return authedCtx("viewer-1", middleware.RoleViewer) }
func serviceCtx() context.Context { return authedCtx("billing-svc", middleware.RoleService) }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func fixedEntry(seq int64, action string) *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:           uuid.New(),
		Seq:          seq,
		Actor:        "alice",
		Action:       action,
		ResourceID:   "doc-7",
		Severity:     domain.SeverityInfo,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(seq) * time.Second),
		PreviousHash: domain.GenesisHash,
		EntryHash:    "a1b2c3",
	}
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockReader struct {
	listFunc   func(ctx context.Context, filter domain.EntryFilter, order domain.Order, limit, offset int) ([]*domain.AuditEntry, error)
	countFunc  func(ctx context.Context, filter domain.EntryFilter) (int64, error)
	latestFunc func(ctx context.Context) (*domain.AuditEntry, error)
}

func (m *mockReader) List(ctx context.Context, filter domain.EntryFilter, order domain.Order, limit, offset int) ([]*domain.AuditEntry, error) {
	return m.listFunc(ctx, filter, order, limit, offset)
}

func (m *mockReader) Count(ctx context.Context, filter domain.EntryFilter) (int64, error) {
	return m.countFunc(ctx, filter)
}

func (m *mockReader) Latest(ctx context.Context) (*domain.AuditEntry, error) {
	return m.latestFunc(ctx)
}

type mockAppender struct {
	appendFunc func(ctx context.Context, req chain.AppendRequest) (*domain.AuditEntry, error)
}

func (m *mockAppender) Append(ctx context.Context, req chain.AppendRequest) (*domain.AuditEntry, error) {
	return m.appendFunc(ctx, req)
}

type mockRecorder struct {
	recordFunc func(ctx context.Context, req chain.AppendRequest) *domain.AuditEntry
}

func (m *mockRecorder) Record(ctx context.Context, req chain.AppendRequest) *domain.AuditEntry {
	return m.recordFunc(ctx, req)
}

type mockVerifier struct {
	verifyFunc func(ctx context.Context, limit int) (*chain.Report, error)
}

func (m *mockVerifier) Verify(ctx context.Context, limit int) (*chain.Report, error) {
	return m.verifyFunc(ctx, limit)
}

type mockArchiver struct {
	archiveFunc func(ctx context.Context, key, contentType string, data []byte) (string, error)
}

func (m *mockArchiver) Archive(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return m.archiveFunc(ctx, key, contentType, data)
}
