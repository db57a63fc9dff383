// Package reporter renders finding sequences for humans and machines. All
// renderers consume the same ordered findings; none of them re-sorts or
// filters.
package reporter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/cscan-dev/cscan/internal/findings"
)

// Format identifies an output renderer.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat normalizes a user-supplied format name. An empty value means
// the text format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(value) {
	case "", string(FormatText):
		return FormatText, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatSARIF):
		return FormatSARIF, nil
	}
	return "", fmt.Errorf("unknown report format %q (valid formats: text, json, sarif)", value)
}

// Stats carries run metadata rendered alongside the findings. LinesOfCode
// is zero when line counting was not requested.
type Stats struct {
	Root         string
	StartedAt    time.Time
	Duration     time.Duration
	FilesScanned int
	FilesFailed  int
	LinesOfCode  int
}

// TextOptions controls the text renderer. Color is not an option here:
// the color package decides globally whether escapes are emitted.
type TextOptions struct {
	Stats bool
}

// Render produces the report in the requested format.
func Render(format Format, list []findings.Finding, stats Stats, opts TextOptions) ([]byte, error) {
	switch format {
	case FormatText:
		return Text(list, stats, opts), nil
	case FormatJSON:
		return JSON(list, stats)
	case FormatSARIF:
		return SARIF(list)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

var severityColors = map[findings.Severity]*color.Color{
	findings.SeverityHigh: color.New(color.FgRed, color.Bold),
	findings.SeverityMed:  color.New(color.FgYellow),
	findings.SeverityLow:  color.New(color.FgCyan),
}

func severityTag(s findings.Severity) string {
	c, ok := severityColors[s]
	if !ok {
		return fmt.Sprintf("[%s]", s)
	}
	return c.Sprintf("[%s]", s)
}

// Text renders the human-readable report: one block per finding, a blank
// line after each block, then a summary of counts by severity.
func Text(list []findings.Finding, stats Stats, opts TextOptions) []byte {
	var b bytes.Buffer

	if len(list) == 0 {
		b.WriteString("No issues found.\n")
	} else {
		for _, f := range list {
			cwe := ""
			if f.CWE != "" {
				cwe = fmt.Sprintf(" (%s)", f.CWE)
			}
			fmt.Fprintf(&b, "%s %s:%d%s\n", severityTag(f.Severity), f.File, f.Line, cwe)
			fmt.Fprintf(&b, "  %s\n", f.Message)
			fmt.Fprintf(&b, "  > %s\n", f.SourceLine)
			b.WriteByte('\n')
		}

		counts := findings.CountBySeverity(list)
		fmt.Fprintf(&b, "Found %d issue(s): %d high, %d medium, %d low.\n",
			len(list),
			counts[findings.SeverityHigh],
			counts[findings.SeverityMed],
			counts[findings.SeverityLow])
	}

	if opts.Stats {
		fmt.Fprintf(&b, "Scanned %d file(s)", stats.FilesScanned)
		if stats.FilesFailed > 0 {
			fmt.Fprintf(&b, " (%d unreadable)", stats.FilesFailed)
		}
		if stats.LinesOfCode > 0 {
			fmt.Fprintf(&b, ", %d lines of code", stats.LinesOfCode)
		}
		fmt.Fprintf(&b, " in %s.\n", stats.Duration)
	}

	return b.Bytes()
}
