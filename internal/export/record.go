// Package export renders audit entries for downstream consumers: the JSON
// and CSV boundary shapes and an object-storage archive sink. Renderers are
// pure presentation; hash fields pass through untouched and no integrity
// check happens at read time.
package export

import (
	"encoding/json"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/domain"
)

// Record is the boundary shape consumed by reporting collaborators.
// ID is the creation-order sequence number; EventID the public entry id.
type Record struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"eventId"`
	Timestamp  string          `json:"timestamp"`
	UserID     string          `json:"userId"`
	Action     string          `json:"action"`
	Severity   string          `json:"severity"`
	ResourceID string          `json:"resourceId"`
	IPAddress  string          `json:"ipAddress"`
	Details    json.RawMessage `json:"details"`
	Hash       string          `json:"hash"`
}

// FromEntry maps an entry to its export record. Details render as the same
// canonical JSON text that was hashed.
func FromEntry(e *domain.AuditEntry) (Record, error) {
	details, err := chain.CanonicalDetails(e.Details)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:         e.Seq,
		EventID:    e.ID.String(),
		Timestamp:  chain.FormatTime(e.CreatedAt),
		UserID:     e.Actor,
		Action:     e.Action,
		Severity:   string(e.Severity),
		ResourceID: e.ResourceID,
		IPAddress:  e.IPAddress,
		Details:    details,
		Hash:       e.EntryHash,
	}, nil
}

// FromEntries maps a listing to export records, preserving order.
func FromEntries(entries []*domain.AuditEntry) ([]Record, error) {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec, err := FromEntry(e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
