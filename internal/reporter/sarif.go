package reporter

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/rules"
)

const (
	toolName           = "cscan"
	toolInformationURI = "https://github.com/cscan-dev/cscan"
)

// defaultRuleLevels carries the per-rule default SARIF level. Individual
// results still carry their own level, since the unsafe-call rule spans
// severities.
var defaultRuleLevels = map[string]string{
	rules.RuleUnsafeCall:   "error",
	rules.RuleCopyOverflow: "error",
	rules.RuleFormatString: "error",
	rules.RuleLargeBuffer:  "warning",
	rules.RuleAlloca:       "warning",
}

// SARIF renders the findings as a SARIF 2.1.0 document: one run, one
// reporting descriptor per rule that produced findings, one result per
// finding.
func SARIF(list []findings.Finding) ([]byte, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInformationURI)

	registered := map[string]bool{}
	for _, f := range list {
		if !registered[f.RuleID] {
			registered[f.RuleID] = true
			level, ok := defaultRuleLevels[f.RuleID]
			if !ok {
				level = "none"
			}
			run.AddRule(f.RuleID).
				WithDescription(rules.Description(f.RuleID)).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: level,
				})
		}

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(filepath.ToSlash(f.File))).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
		)

		result := sarif.NewRuleResult(f.RuleID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(severityLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	report.AddRun(run)

	var buf bytes.Buffer
	if err := report.PrettyWrite(&buf); err != nil {
		return nil, fmt.Errorf("failed to render SARIF report: %w", err)
	}
	return buf.Bytes(), nil
}

func severityLevel(s findings.Severity) string {
	switch s {
	case findings.SeverityHigh:
		return "error"
	case findings.SeverityMed:
		return "warning"
	case findings.SeverityLow:
		return "note"
	default:
		return "none"
	}
}
