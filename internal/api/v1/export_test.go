package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/waxseal/waxseal/internal/api/v1"
	"github.com/waxseal/waxseal/internal/domain"
)

func exportRequest(ctx context.Context, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(ctx)
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	t.Run("serves_csv_attachment", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, _ domain.EntryFilter, order domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				assert.Equal(t, domain.OrderAsc, order)
				return []*domain.AuditEntry{fixedEntry(1, "LOGIN"), fixedEntry(2, "LOGOUT")}, nil
			},
		}
		h := v1.NewExportHandler(reader, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Event ID,Timestamp,User ID,Action,Severity,Resource ID,IP Address,Details,Hash", lines[0])
		assert.Contains(t, lines[1], "LOGIN")
		assert.Contains(t, lines[2], "LOGOUT")
	})

	t.Run("drains_listing_across_pages", func(t *testing.T) {
		t.Parallel()

		calls := 0
		reader := &mockReader{
			listFunc: func(_ context.Context, filter domain.EntryFilter, _ domain.Order, limit, _ int) ([]*domain.AuditEntry, error) {
				calls++
				switch calls {
				case 1:
					assert.Zero(t, filter.AfterSeq)
					page := make([]*domain.AuditEntry, 0, limit)
					for i := 1; i <= limit; i++ {
						page = append(page, fixedEntry(int64(i), "LOGIN"))
					}
					return page, nil
				case 2:
					assert.Equal(t, int64(limit), filter.AfterSeq)
					return []*domain.AuditEntry{fixedEntry(int64(limit)+1, "LOGIN")}, nil
				default:
					return nil, errors.New("unexpected page")
				}
			},
		}
		h := v1.NewExportHandler(reader, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, calls)
		lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
		assert.Equal(t, 502, len(lines), "header plus one full page plus the trailing entry")
	})

	t.Run("non_admin_forbidden", func(t *testing.T) {
		t.Parallel()

		h := v1.NewExportHandler(&mockReader{}, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(viewerCtx(), "/audit/events/export"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid_time_filter_is_400", func(t *testing.T) {
		t.Parallel()

		h := v1.NewExportHandler(&mockReader{}, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export?from=yesterday"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("time_filters_are_forwarded", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, filter domain.EntryFilter, _ domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				assert.Equal(t, "2026-01-01T00:00:00Z", filter.From.Format("2006-01-02T15:04:05Z07:00"))
				assert.Equal(t, "alice", filter.Actor)
				return nil, nil
			},
		}
		h := v1.NewExportHandler(reader, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export?actor=alice&from=2026-01-01T00:00:00Z"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("read_failure_is_503", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, _ domain.EntryFilter, _ domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				return nil, fmt.Errorf("connect: %w", domain.ErrStoreUnavailable)
			},
		}
		h := v1.NewExportHandler(reader, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestExportArchive(t *testing.T) {
	t.Parallel()

	t.Run("uploads_and_returns_object_key", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, _ domain.EntryFilter, _ domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				return []*domain.AuditEntry{fixedEntry(1, "LOGIN")}, nil
			},
		}
		archiver := &mockArchiver{
			archiveFunc: func(_ context.Context, key, contentType string, data []byte) (string, error) {
				assert.True(t, strings.HasPrefix(key, "exports/audit-export-"))
				assert.Equal(t, "text/csv", contentType)
				assert.True(t, strings.HasPrefix(string(data), "Event ID,"))
				return key, nil
			},
		}
		h := v1.NewExportHandler(reader, archiver)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export?archive=true"))

		require.Equal(t, http.StatusCreated, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.True(t, strings.HasPrefix(body["objectKey"], "exports/audit-export-"))
	})

	t.Run("unconfigured_archive_is_501", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, _ domain.EntryFilter, _ domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				return nil, nil
			},
		}
		h := v1.NewExportHandler(reader, nil)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export?archive=true"))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("upload_failure_is_502", func(t *testing.T) {
		t.Parallel()

		reader := &mockReader{
			listFunc: func(_ context.Context, _ domain.EntryFilter, _ domain.Order, _, _ int) ([]*domain.AuditEntry, error) {
				return nil, nil
			},
		}
		archiver := &mockArchiver{
			archiveFunc: func(_ context.Context, _, _ string, _ []byte) (string, error) {
				return "", errors.New("minio: access denied")
			},
		}
		h := v1.NewExportHandler(reader, archiver)

		rec := httptest.NewRecorder()
		h.ServeCSV(rec, exportRequest(adminCtx(), "/audit/events/export?archive=true"))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
