package engine

import "strings"

// Line is one preprocessed source line: comment content blanked, string and
// char literal contents neutralized, delimiters kept. Depth is the brace
// nesting depth at the start of the line, counted outside comments and
// literals.
type Line struct {
	Text  string
	Depth int
}

type ppState int

const (
	stateNormal ppState = iota
	stateLineComment
	stateBlockComment
	stateString
	stateChar
)

// SplitLines splits file content into physical lines. Trailing carriage
// returns are dropped so CRLF input matches like LF input. The line count
// matches what an editor would show: a trailing newline does not produce an
// extra empty line.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Preprocess neutralizes comments and literal contents while preserving the
// line count and the column positions of all remaining code. Block comments
// and literal contents become spaces, line comments are truncated at the
// marker, and literal delimiters stay visible. Exactly one lexical state is
// active per character; block comments persist across lines, and an
// unterminated block comment blanks everything to the end of input.
// Unterminated string or char literals close at end of line.
func Preprocess(raw []string) []Line {
	out := make([]Line, 0, len(raw))
	state := stateNormal
	depth := 0
	escaped := false

	for _, line := range raw {
		startDepth := depth
		var b strings.Builder
		b.Grow(len(line))

	scan:
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch state {
			case stateNormal:
				switch {
				case c == '/' && i+1 < len(line) && line[i+1] == '/':
					state = stateLineComment
					break scan
				case c == '/' && i+1 < len(line) && line[i+1] == '*':
					state = stateBlockComment
					b.WriteString("  ")
					i++
				case c == '"':
					state = stateString
					escaped = false
					b.WriteByte(c)
				case c == '\'':
					state = stateChar
					escaped = false
					b.WriteByte(c)
				default:
					if c == '{' {
						depth++
					} else if c == '}' && depth > 0 {
						depth--
					}
					b.WriteByte(c)
				}
			case stateBlockComment:
				if c == '*' && i+1 < len(line) && line[i+1] == '/' {
					state = stateNormal
					b.WriteString("  ")
					i++
				} else {
					b.WriteByte(' ')
				}
			case stateString:
				switch {
				case escaped:
					escaped = false
					b.WriteByte(' ')
				case c == '\\':
					escaped = true
					b.WriteByte(' ')
				case c == '"':
					state = stateNormal
					b.WriteByte(c)
				default:
					b.WriteByte(' ')
				}
			case stateChar:
				switch {
				case escaped:
					escaped = false
					b.WriteByte(' ')
				case c == '\\':
					escaped = true
					b.WriteByte(' ')
				case c == '\'':
					state = stateNormal
					b.WriteByte(c)
				default:
					b.WriteByte(' ')
				}
			}
		}

		// Only block comments span lines.
		if state != stateBlockComment {
			state = stateNormal
		}

		out = append(out, Line{Text: b.String(), Depth: startDepth})
	}

	return out
}

// depthAt returns the brace depth at byte offset pos of a preprocessed line.
func depthAt(line Line, pos int) int {
	depth := line.Depth
	if pos > len(line.Text) {
		pos = len(line.Text)
	}
	for i := 0; i < pos; i++ {
		switch line.Text[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
