package postgres

import (
	"context"
	"fmt"
)

// schema is the audit chain table. Entries are write-once: the service role
// is expected to hold INSERT and SELECT only, and no UPDATE or DELETE
// statement exists anywhere in this package. seq is the creation order the
// verifier replays in; id is the public entry identifier.
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq           BIGSERIAL PRIMARY KEY,
	id            UUID NOT NULL UNIQUE,
	actor         TEXT NOT NULL,
	action        TEXT NOT NULL,
	resource_id   TEXT,
	details       JSONB,
	severity      TEXT NOT NULL DEFAULT 'INFO',
	ip_address    TEXT,
	user_agent    TEXT,
	created_at    TIMESTAMPTZ NOT NULL,
	previous_hash TEXT NOT NULL,
	entry_hash    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_actor ON audit_entries (actor);
CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries (action);
CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries (created_at);
`

// EnsureSchema creates the audit table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.EnsureSchema: %w", err)
	}
	return nil
}
