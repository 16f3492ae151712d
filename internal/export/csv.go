package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/waxseal/waxseal/internal/domain"
)

// csvHeader is the fixed column order downstream CSV consumers depend on.
var csvHeader = []string{
	"Event ID", "Timestamp", "User ID", "Action", "Severity",
	"Resource ID", "IP Address", "Details", "Hash",
}

// WriteCSV renders entries as RFC 4180 CSV: fields containing commas, quotes
// or newlines are quoted and embedded quotes doubled (encoding/csv handles
// the quoting). An empty listing yields exactly the header row.
func WriteCSV(w io.Writer, entries []*domain.AuditEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("export.WriteCSV: header: %w", err)
	}

	for _, e := range entries {
		rec, err := FromEntry(e)
		if err != nil {
			return fmt.Errorf("export.WriteCSV: entry %s: %w", e.ID, err)
		}
		row := []string{
			rec.EventID,
			rec.Timestamp,
			rec.UserID,
			rec.Action,
			rec.Severity,
			rec.ResourceID,
			rec.IPAddress,
			string(rec.Details),
			rec.Hash,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export.WriteCSV: entry %s: %w", e.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: flush: %w", err)
	}

	return nil
}
