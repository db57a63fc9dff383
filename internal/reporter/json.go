package reporter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cscan-dev/cscan/internal/findings"
)

// jsonReport is the machine-readable envelope. The scan_id and timing
// fields vary per run; the findings array is deterministic for an
// unchanged tree.
type jsonReport struct {
	ScanID       string             `json:"scan_id"`
	Root         string             `json:"root"`
	StartedAt    time.Time          `json:"started_at"`
	DurationMS   int64              `json:"duration_ms"`
	FilesScanned int                `json:"files_scanned"`
	FilesFailed  int                `json:"files_failed"`
	LinesOfCode  int                `json:"lines_of_code,omitempty"`
	Findings     []findings.Finding `json:"findings"`
}

// JSON renders the report as an indented JSON document. An empty finding
// sequence renders as an empty array, never null.
func JSON(list []findings.Finding, stats Stats) ([]byte, error) {
	if list == nil {
		list = []findings.Finding{}
	}
	report := jsonReport{
		ScanID:       uuid.NewString(),
		Root:         stats.Root,
		StartedAt:    stats.StartedAt.UTC(),
		DurationMS:   stats.Duration.Milliseconds(),
		FilesScanned: stats.FilesScanned,
		FilesFailed:  stats.FilesFailed,
		LinesOfCode:  stats.LinesOfCode,
		Findings:     list,
	}
	return json.MarshalIndent(report, "", "  ")
}
