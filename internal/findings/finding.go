package findings

import (
	"fmt"
	"strings"
)

// Severity classifies a finding. The order is HIGH > MED > LOW.
type Severity string

const (
	SeverityHigh Severity = "HIGH"
	SeverityMed  Severity = "MED"
	SeverityLow  Severity = "LOW"
)

// Rank returns a comparable weight for the severity, higher is more severe.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMed:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity converts a case-insensitive severity name into a Severity.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "HIGH":
		return SeverityHigh, nil
	case "MED", "MEDIUM":
		return SeverityMed, nil
	case "LOW":
		return SeverityLow, nil
	}
	return "", fmt.Errorf("unknown severity %q (valid severities: HIGH, MED, LOW)", value)
}

// Finding is one reported issue. It is created by a detector and never
// mutated afterward; the engine does not persist findings between runs.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	CWE      string   `json:"cwe,omitempty"`
	Message  string   `json:"message"`
	// SourceLine is the raw source text of the offending line, trimmed of
	// trailing whitespace, kept for context display.
	SourceLine string `json:"source_line"`
}

// FilterBySeverity keeps findings at or above the given minimum severity.
// The input order is preserved.
func FilterBySeverity(list []Finding, min Severity) []Finding {
	if min == "" || min == SeverityLow {
		return list
	}
	filtered := make([]Finding, 0, len(list))
	for _, f := range list {
		if f.Severity.Rank() >= min.Rank() {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// CountBySeverity tallies findings per severity for report summaries.
func CountBySeverity(list []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range list {
		counts[f.Severity]++
	}
	return counts
}

// MaxSeverity returns the highest severity present in the list, or false
// when the list is empty.
func MaxSeverity(list []Finding) (Severity, bool) {
	var max Severity
	for _, f := range list {
		if f.Severity.Rank() > max.Rank() {
			max = f.Severity
		}
	}
	return max, max != ""
}
