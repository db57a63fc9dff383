package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/rules"
)

// matchers holds the per-ruleset compiled patterns shared by all detectors.
// Compiled once per engine, never mutated afterward.
type matchers struct {
	rs     *rules.Ruleset
	unsafe []funcMatcher
	copies []funcMatcher
	format []formatMatcher
	alloca *regexp.Regexp
}

type funcMatcher struct {
	call rules.UnsafeCall // zero-valued except Name for copy functions
	re   *regexp.Regexp
}

type formatMatcher struct {
	name   string
	argPos int
	re     *regexp.Regexp
}

func callRegexp(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
}

func newMatchers(rs *rules.Ruleset) *matchers {
	m := &matchers{rs: rs, alloca: callRegexp("alloca")}

	for _, call := range rs.UnsafeCalls {
		m.unsafe = append(m.unsafe, funcMatcher{call: call, re: callRegexp(call.Name)})
	}
	for _, name := range rs.CopyFuncs {
		m.copies = append(m.copies, funcMatcher{call: rules.UnsafeCall{Name: name}, re: callRegexp(name)})
	}

	names := make([]string, 0, len(rs.FormatFuncs))
	for name := range rs.FormatFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.format = append(m.format, formatMatcher{
			name:   name,
			argPos: rs.FormatFuncs[name],
			re:     callRegexp(name),
		})
	}

	return m
}

// displayLine is the raw source text attached to a finding, trimmed of
// trailing whitespace.
func displayLine(raw []string, idx int) string {
	return strings.TrimRight(raw[idx], " \t\r\n")
}

// callArgs splits the argument list of a call whose opening parenthesis is
// the last byte of the regexp match. Arguments are split on top-level
// commas only. Returns nil when the call does not close on the same line;
// such calls are skipped rather than guessed at.
func callArgs(text string, openIdx int) []string {
	depth := 1
	var args []string
	argStart := openIdx + 1

	for i := openIdx + 1; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				args = append(args, text[argStart:i])
				return args
			}
		case ',':
			if depth == 1 {
				args = append(args, text[argStart:i])
				argStart = i + 1
			}
		}
	}
	return nil
}

// detectUnsafeCalls flags calls to denylisted functions. Matches are whole
// words only, so wrappers like mygets() never fire.
func (m *matchers) detectUnsafeCalls(file string, raw []string, pre []Line) []findings.Finding {
	var results []findings.Finding
	for i, line := range pre {
		for _, fm := range m.unsafe {
			for range fm.re.FindAllStringIndex(line.Text, -1) {
				results = append(results, findings.Finding{
					RuleID:     rules.RuleUnsafeCall,
					File:       file,
					Line:       i + 1,
					Severity:   fm.call.Severity,
					CWE:        fm.call.CWE,
					Message:    fmt.Sprintf("%s used. %s", fm.call.Name, fm.call.Message),
					SourceLine: displayLine(raw, i),
				})
			}
		}
	}
	return results
}

// resolveLength resolves a copy length argument to a byte count: either a
// constant integer expression or sizeof of a name in the buffer table.
var sizeofRe = regexp.MustCompile(`^sizeof\s*\(\s*([A-Za-z_]\w*)\s*\)$`)

func resolveLength(expr string, table BufferTable) (int, bool) {
	expr = strings.TrimSpace(expr)
	if m := sizeofRe.FindStringSubmatch(expr); m != nil {
		entry, ok := table[m[1]]
		if !ok {
			return 0, false
		}
		return entry.Size, true
	}
	return evalConst(expr)
}

var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// detectCopyOverflows flags memcpy-family calls whose resolvable length
// exceeds the destination's declared capacity. Unknown destinations and
// non-constant lengths never fire.
func (m *matchers) detectCopyOverflows(file string, raw []string, pre []Line, table BufferTable) []findings.Finding {
	var results []findings.Finding
	for i, line := range pre {
		for _, fm := range m.copies {
			for _, loc := range fm.re.FindAllStringIndex(line.Text, -1) {
				args := callArgs(line.Text, loc[1]-1)
				if len(args) < 3 {
					continue
				}

				dest := strings.TrimSpace(args[0])
				if !identRe.MatchString(dest) {
					continue
				}
				entry, ok := table[dest]
				if !ok {
					continue
				}

				length, ok := resolveLength(args[2], table)
				if !ok || length <= entry.Size {
					continue
				}

				results = append(results, findings.Finding{
					RuleID:   rules.RuleCopyOverflow,
					File:     file,
					Line:     i + 1,
					Severity: findings.SeverityHigh,
					CWE:      "CWE-120/CWE-787",
					Message: fmt.Sprintf("%s to '%s' copies %d bytes but buffer is only %d bytes.",
						fm.call.Name, dest, length, entry.Size),
					SourceLine: displayLine(raw, i),
				})
			}
		}
	}
	return results
}

// detectFormatStrings flags formatting functions whose format argument is
// not a string literal. Literal delimiters survive preprocessing, so a
// leading quote identifies a literal even though its content is blanked.
func (m *matchers) detectFormatStrings(file string, raw []string, pre []Line) []findings.Finding {
	var results []findings.Finding
	for i, line := range pre {
		for _, fm := range m.format {
			for _, loc := range fm.re.FindAllStringIndex(line.Text, -1) {
				args := callArgs(line.Text, loc[1]-1)
				if len(args) < fm.argPos {
					continue
				}

				format := strings.TrimSpace(args[fm.argPos-1])
				if format == "" || strings.HasPrefix(format, `"`) {
					continue
				}

				results = append(results, findings.Finding{
					RuleID:   rules.RuleFormatString,
					File:     file,
					Line:     i + 1,
					Severity: findings.SeverityHigh,
					CWE:      "CWE-134",
					Message: fmt.Sprintf(
						"%s called with non-literal format string; possible format string vulnerability.",
						fm.name),
					SourceLine: displayLine(raw, i),
				})
			}
		}
	}
	return results
}

// detectLargeBuffers flags automatic-storage arrays whose total byte size
// exceeds the configured threshold. File-scope and static/extern
// declarations are exempt, as are declarations with unresolvable sizes.
func (m *matchers) detectLargeBuffers(file string, raw []string, pre []Line) []findings.Finding {
	var results []findings.Finding
	for i, line := range pre {
		for _, decl := range parseArrayDecls(line.Text) {
			if decl.Storage != "" || decl.Resolved == nil {
				continue
			}
			if depthAt(line, decl.Pos) == 0 {
				continue
			}

			elemSize, ok := rules.ElementSize(decl.ElemType)
			if !ok {
				continue
			}
			total := elemSize
			for _, dim := range decl.Resolved {
				total *= dim
			}
			if total <= m.rs.StackBufferThreshold {
				continue
			}

			results = append(results, findings.Finding{
				RuleID:     rules.RuleLargeBuffer,
				File:       file,
				Line:       i + 1,
				Severity:   m.rs.BufferSeverity(total),
				CWE:        "CWE-770",
				Message:    fmt.Sprintf("Large stack buffer (%d bytes) may cause stack overflow.", total),
				SourceLine: displayLine(raw, i),
			})
		}
	}
	return results
}

// detectAlloca flags every alloca call site, with no size reasoning.
func (m *matchers) detectAlloca(file string, raw []string, pre []Line) []findings.Finding {
	var results []findings.Finding
	for i, line := range pre {
		for range m.alloca.FindAllStringIndex(line.Text, -1) {
			results = append(results, findings.Finding{
				RuleID:     rules.RuleAlloca,
				File:       file,
				Line:       i + 1,
				Severity:   findings.SeverityMed,
				CWE:        "CWE-770",
				Message:    "alloca() can cause stack overflow; prefer heap allocation.",
				SourceLine: displayLine(raw, i),
			})
		}
	}
	return results
}
