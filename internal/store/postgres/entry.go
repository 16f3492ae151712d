package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waxseal/waxseal/internal/domain"
)

// chainLockKey is the advisory lock identifying the audit chain. Every
// append in every process sharing this database serializes on it, so two
// concurrent appends can never both read the same tail and fork the chain.
const chainLockKey = int64(0x57415853) // "WAXS"

const entryColumns = `id, seq, actor, action, resource_id, details, severity,
	 ip_address, user_agent, created_at, previous_hash, entry_hash`

type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// AppendSerialized wraps {read tail, build entry, insert} in one transaction
// holding pg_advisory_xact_lock, making the append atomic with respect to
// all other appends on the shared store. The lock releases on commit or
// rollback; either the whole entry becomes visible or nothing does.
func (r *EntryRepo) AppendSerialized(ctx context.Context, build func(tail domain.ChainTail) (*domain.AuditEntry, error)) (*domain.AuditEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: acquire chain lock: %w", err)
	}

	tail := domain.ChainTail{Hash: domain.GenesisHash}
	err = tx.QueryRow(ctx,
		`SELECT entry_hash, created_at FROM audit_entries ORDER BY seq DESC LIMIT 1`,
	).Scan(&tail.Hash, &tail.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: read tail: %w", err)
	}

	entry, err := build(tail)
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: marshal details: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO audit_entries (id, actor, action, resource_id, details, severity,
		                            ip_address, user_agent, created_at, previous_hash, entry_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING seq`,
		entry.ID, entry.Actor, entry.Action, nullIfEmpty(entry.ResourceID), details,
		string(entry.Severity), nullIfEmpty(entry.IPAddress), nullIfEmpty(entry.UserAgent),
		entry.CreatedAt, entry.PreviousHash, entry.EntryHash,
	).Scan(&entry.Seq)
	if err != nil {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: insert: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("entryRepo.AppendSerialized: commit: %w", err)
	}

	return entry, nil
}

func (r *EntryRepo) Latest(ctx context.Context) (*domain.AuditEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM audit_entries ORDER BY seq DESC LIMIT 1`)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("entryRepo.Latest: %w", err)
	}

	return entry, nil
}

func (r *EntryRepo) List(ctx context.Context, filter domain.EntryFilter, order domain.Order, limit, offset int) ([]*domain.AuditEntry, error) {
	where, args := buildFilter(filter)

	dir := "DESC"
	if order == domain.OrderAsc {
		dir = "ASC"
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT `+entryColumns+` FROM audit_entries %s ORDER BY seq %s LIMIT $%d OFFSET $%d`,
		where, dir, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entryRepo.List: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("entryRepo.List: scan: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entryRepo.List: rows: %w", err)
	}

	return entries, nil
}

func (r *EntryRepo) Count(ctx context.Context, filter domain.EntryFilter) (int64, error) {
	where, args := buildFilter(filter)

	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("entryRepo.Count: %w", err)
	}

	return count, nil
}

// buildFilter renders filter as a WHERE clause with positional args.
func buildFilter(filter domain.EntryFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Actor != "" {
		add("actor = $%d", filter.Actor)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	if filter.AfterSeq > 0 {
		add("seq > $%d", filter.AfterSeq)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var (
		e          domain.AuditEntry
		resourceID *string
		details    []byte
		severity   string
		ipAddress  *string
		userAgent  *string
	)

	err := row.Scan(
		&e.ID, &e.Seq, &e.Actor, &e.Action, &resourceID, &details, &severity,
		&ipAddress, &userAgent, &e.CreatedAt, &e.PreviousHash, &e.EntryHash,
	)
	if err != nil {
		return nil, err
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
	}
	e.Severity = domain.Severity(severity)
	e.ResourceID = stringValue(resourceID)
	e.IPAddress = stringValue(ipAddress)
	e.UserAgent = stringValue(userAgent)
	e.CreatedAt = e.CreatedAt.UTC()

	return &e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
