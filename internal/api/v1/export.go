package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/waxseal/waxseal/internal/domain"
	"github.com/waxseal/waxseal/internal/export"
	"github.com/waxseal/waxseal/internal/server/middleware"
)

// exportBatchSize bounds each store read while draining a filtered listing.
const exportBatchSize = 500

// ExportHandler serves CSV exports of the audit log. It bypasses huma
// because the response is a file download, not a JSON document. With
// archive=true the artifact is also uploaded to the object store and the
// response carries the object key instead of the file.
type ExportHandler struct {
	reader   EntryReader
	archiver Archiver // nil when no object store is configured
}

// NewExportHandler creates an ExportHandler. archiver may be nil.
func NewExportHandler(reader EntryReader, archiver Archiver) *ExportHandler {
	return &ExportHandler{reader: reader, archiver: archiver}
}

// ServeCSV handles GET /audit/events/export.
func (h *ExportHandler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok || role != middleware.RoleAdmin {
		http.Error(w, `{"title":"Forbidden","status":403,"detail":"admin role required"}`, http.StatusForbidden)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"title":"Bad Request","status":400,"detail":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	entries, err := h.drain(r, filter)
	if err != nil {
		log.Error().Err(err).Msg("csv export read")
		http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"could not read entries"}`, http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, entries); err != nil {
		log.Error().Err(err).Msg("csv export render")
		http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"could not render export"}`, http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("archive") == "true" {
		h.serveArchive(w, r, buf.Bytes())
		return
	}

	name := fmt.Sprintf("audit-export-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *ExportHandler) serveArchive(w http.ResponseWriter, r *http.Request, artifact []byte) {
	if h.archiver == nil {
		http.Error(w, `{"title":"Not Implemented","status":501,"detail":"archive storage is not configured"}`, http.StatusNotImplemented)
		return
	}

	key := fmt.Sprintf("exports/audit-export-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	objectKey, err := h.archiver.Archive(r.Context(), key, "text/csv", artifact)
	if err != nil {
		log.Error().Err(err).Msg("csv export archive")
		http.Error(w, `{"title":"Bad Gateway","status":502,"detail":"could not archive export"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"objectKey": objectKey})
}

// drain pages through the filtered listing in creation order.
func (h *ExportHandler) drain(r *http.Request, filter domain.EntryFilter) ([]*domain.AuditEntry, error) {
	var all []*domain.AuditEntry
	for {
		batch, err := h.reader.List(r.Context(), filter, domain.OrderAsc, exportBatchSize, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < exportBatchSize {
			return all, nil
		}
		filter.AfterSeq = batch[len(batch)-1].Seq
	}
}

func filterFromQuery(r *http.Request) (domain.EntryFilter, error) {
	q := r.URL.Query()
	filter := domain.EntryFilter{
		Actor:  q.Get("actor"),
		Action: q.Get("action"),
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.EntryFilter{}, fmt.Errorf("invalid from: %v", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.EntryFilter{}, fmt.Errorf("invalid to: %v", err)
		}
		filter.To = t
	}

	return filter, nil
}
