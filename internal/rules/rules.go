package rules

import (
	"fmt"
	"sort"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/pkg/shared/config"
)

// Rule identifiers. The declaration order is the fixed merge priority used
// to break ties between findings on the same line.
const (
	RuleUnsafeCall   = "unsafe-call"
	RuleCopyOverflow = "memcpy-overflow"
	RuleFormatString = "format-string"
	RuleLargeBuffer  = "large-stack-buffer"
	RuleAlloca       = "alloca-use"
)

var priorities = map[string]int{
	RuleUnsafeCall:   0,
	RuleCopyOverflow: 1,
	RuleFormatString: 2,
	RuleLargeBuffer:  3,
	RuleAlloca:       4,
}

var descriptions = map[string]string{
	RuleUnsafeCall:   "Call to a library function with no bounds checking.",
	RuleCopyOverflow: "Copy writes more bytes than the destination buffer holds.",
	RuleFormatString: "Formatting function called with a non-literal format string.",
	RuleLargeBuffer:  "Stack-allocated buffer large enough to risk stack exhaustion.",
	RuleAlloca:       "Dynamic stack allocation via alloca().",
}

// Priority returns the merge priority of a rule; lower sorts first on equal
// lines. Unknown rule IDs sort last.
func Priority(ruleID string) int {
	if p, ok := priorities[ruleID]; ok {
		return p
	}
	return len(priorities)
}

// Description returns the one-line rule description used by report tooling.
func Description(ruleID string) string {
	return descriptions[ruleID]
}

// IsKnownRule reports whether ruleID names one of the built-in rules.
func IsKnownRule(ruleID string) bool {
	_, ok := priorities[ruleID]
	return ok
}

// RuleIDs returns all rule identifiers in priority order.
func RuleIDs() []string {
	ids := make([]string, 0, len(priorities))
	for id := range priorities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return priorities[ids[i]] < priorities[ids[j]] })
	return ids
}

// UnsafeCall is one denylist entry: a function name with the severity, CWE,
// and advice attached to every call of it.
type UnsafeCall struct {
	Name     string
	Severity findings.Severity
	CWE      string
	Message  string
}

// Ruleset is the immutable rule configuration shared by all detectors. It is
// built once at startup and passed by reference; detectors never mutate it.
type Ruleset struct {
	// UnsafeCalls keeps a fixed iteration order so findings for one line are
	// emitted deterministically.
	UnsafeCalls []UnsafeCall
	// CopyFuncs are the bounded-copy functions checked against the buffer
	// table (destination first argument, length third).
	CopyFuncs []string
	// FormatFuncs maps formatting functions to the 1-based position of
	// their format argument.
	FormatFuncs map[string]int
	// StackBufferThreshold is the automatic-storage array size in bytes
	// above which the large-buffer rule fires.
	StackBufferThreshold int

	disabled map[string]bool
}

// largeBufferMedFactor scales the threshold to the point where a large
// buffer finding escalates from LOW to MED.
const largeBufferMedFactor = 4

// Default returns the built-in ruleset.
func Default() *Ruleset {
	return &Ruleset{
		UnsafeCalls: []UnsafeCall{
			{Name: "gets", Severity: findings.SeverityHigh, CWE: "CWE-242", Message: "gets() is inherently unsafe; use fgets() instead."},
			{Name: "strcpy", Severity: findings.SeverityHigh, CWE: "CWE-120", Message: "Potential buffer overflow; use strncpy()/strlcpy()."},
			{Name: "strcat", Severity: findings.SeverityHigh, CWE: "CWE-120", Message: "Potential buffer overflow; use strncat()/strlcat()."},
			{Name: "sprintf", Severity: findings.SeverityMed, CWE: "CWE-120/CWE-134", Message: "Use snprintf() to limit buffer size."},
			{Name: "vsprintf", Severity: findings.SeverityMed, CWE: "CWE-120/CWE-134", Message: "Use vsnprintf() to limit buffer size."},
			{Name: "scanf", Severity: findings.SeverityHigh, CWE: "CWE-120", Message: `Unbounded scanf can overflow buffers; prefer fgets() or bounded width (e.g., "%31s").`},
			{Name: "fscanf", Severity: findings.SeverityHigh, CWE: "CWE-120", Message: "Unbounded fscanf can overflow buffers; prefer fgets() or bounded width."},
			{Name: "sscanf", Severity: findings.SeverityHigh, CWE: "CWE-120", Message: "Unbounded sscanf can overflow buffers; ensure bounded width in format string."},
		},
		CopyFuncs: []string{"memcpy", "memmove", "memset"},
		FormatFuncs: map[string]int{
			"printf":    1,
			"vprintf":   1,
			"fprintf":   2,
			"vfprintf":  2,
			"dprintf":   2,
			"sprintf":   2,
			"vsprintf":  2,
			"syslog":    2,
			"snprintf":  3,
			"vsnprintf": 3,
		},
		StackBufferThreshold: config.DefaultStackBufferThreshold,
		disabled:             map[string]bool{},
	}
}

// FromConfig builds the active ruleset: the built-in tables, with the
// configuration's unsafe-call entries merged over the denylist, the
// threshold applied, and disabled rules recorded.
func FromConfig(cfg *config.Rules) (*Ruleset, error) {
	rs := Default()
	if cfg == nil {
		return rs, nil
	}

	if cfg.StackBufferThreshold > 0 {
		rs.StackBufferThreshold = cfg.StackBufferThreshold
	}

	for _, id := range cfg.Disable {
		if !IsKnownRule(id) {
			return nil, fmt.Errorf("cannot disable unknown rule %q", id)
		}
		rs.disabled[id] = true
	}

	if err := rs.mergeUnsafeCalls(cfg.UnsafeCalls); err != nil {
		return nil, err
	}
	return rs, nil
}

// mergeUnsafeCalls overlays configured entries on the built-in denylist.
// Known names are overridden field by field; new names are appended in
// sorted order so the table order stays deterministic.
func (rs *Ruleset) mergeUnsafeCalls(entries map[string]config.UnsafeCall) error {
	if len(entries) == 0 {
		return nil
	}

	index := make(map[string]int, len(rs.UnsafeCalls))
	for i, call := range rs.UnsafeCalls {
		index[call.Name] = i
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := entries[name]

		var severity findings.Severity
		if entry.Severity != "" {
			parsed, err := findings.ParseSeverity(entry.Severity)
			if err != nil {
				return fmt.Errorf("unsafe_calls entry %q: %w", name, err)
			}
			severity = parsed
		}

		if i, ok := index[name]; ok {
			if severity != "" {
				rs.UnsafeCalls[i].Severity = severity
			}
			if entry.CWE != "" {
				rs.UnsafeCalls[i].CWE = entry.CWE
			}
			if entry.Message != "" {
				rs.UnsafeCalls[i].Message = entry.Message
			}
			continue
		}

		if severity == "" {
			return fmt.Errorf("unsafe_calls entry %q: new entries must specify a severity", name)
		}
		if entry.Message == "" {
			return fmt.Errorf("unsafe_calls entry %q: new entries must specify a message", name)
		}
		rs.UnsafeCalls = append(rs.UnsafeCalls, UnsafeCall{
			Name:     name,
			Severity: severity,
			CWE:      entry.CWE,
			Message:  entry.Message,
		})
	}
	return nil
}

// Disabled reports whether the rule was switched off by configuration.
func (rs *Ruleset) Disabled(ruleID string) bool {
	return rs.disabled[ruleID]
}

// BufferSeverity bands a large-buffer finding by how far the size is over
// the threshold: MED when several times over, LOW otherwise.
func (rs *Ruleset) BufferSeverity(size int) findings.Severity {
	if size > rs.StackBufferThreshold*largeBufferMedFactor {
		return findings.SeverityMed
	}
	return findings.SeverityLow
}

// elementSizes maps C element type names to their byte size on LP64
// platforms. The scanner has no target information, so these are fixed
// approximations.
var elementSizes = map[string]int{
	"char":     1,
	"int8_t":   1,
	"uint8_t":  1,
	"short":    2,
	"int16_t":  2,
	"uint16_t": 2,
	"int":      4,
	"int32_t":  4,
	"uint32_t": 4,
	"float":    4,
	"long":     8,
	"int64_t":  8,
	"uint64_t": 8,
	"size_t":   8,
	"double":   8,
}

// ElementSize returns the assumed byte size of a C element type.
func ElementSize(typeName string) (int, bool) {
	size, ok := elementSizes[typeName]
	return size, ok
}

// ElementTypes returns the recognized element type names, longest first so
// regexp alternation prefers the longest match.
func ElementTypes() []string {
	types := make([]string, 0, len(elementSizes))
	for name := range elementSizes {
		types = append(types, name)
	}
	sort.Slice(types, func(i, j int) bool {
		if len(types[i]) != len(types[j]) {
			return len(types[i]) > len(types[j])
		}
		return types[i] < types[j]
	})
	return types
}
