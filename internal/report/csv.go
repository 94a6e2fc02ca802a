package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/blockedby/repost-tracer/internal/models"
)

// WriteCSV writes a header line followed by one row per record.
func WriteCSV(w io.Writer, records []models.RepostRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName is the export file name for a run.
func FileName(runID string) string {
	return fmt.Sprintf("reposts_%s.csv", runID)
}
