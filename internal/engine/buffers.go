package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cscan-dev/cscan/internal/rules"
)

// BufferEntry records one char array declaration.
type BufferEntry struct {
	Name string
	// Size is the declared capacity in bytes. For multi-dimensional
	// declarations this is the innermost dimension.
	Size int
	Line int
}

// BufferTable maps array names to their most recent declaration. The table
// is flat: the last declaration in the file wins, with no scope tracking.
// A name absent from the table means unknown capacity, which downstream
// rules treat as "do not flag".
type BufferTable map[string]BufferEntry

// arrayDecl is one parsed array declaration on a preprocessed line.
type arrayDecl struct {
	Storage  string // "static", "extern", or ""
	ElemType string
	Name     string
	Dims     []string // raw dimension expressions, outermost first
	Pos      int      // byte offset of the match start within the line
	Resolved []int    // evaluated dimensions; nil when any is unresolvable
}

var arrayDeclRe = regexp.MustCompile(
	`(?:\b(static|extern)\s+)?(?:(?:const|volatile|unsigned|signed)\s+)*\b(` +
		strings.Join(rules.ElementTypes(), "|") +
		`)\s+([A-Za-z_]\w*)\s*\[`)

// parseArrayDecls extracts every array declaration on a preprocessed line.
// Dimension expressions are captured raw and evaluated; declarations with
// any unresolvable dimension get a nil Resolved slice.
func parseArrayDecls(text string) []arrayDecl {
	matches := arrayDeclRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return nil
	}

	decls := make([]arrayDecl, 0, len(matches))
	for _, m := range matches {
		decl := arrayDecl{
			ElemType: text[m[4]:m[5]],
			Name:     text[m[6]:m[7]],
			Pos:      m[0],
		}
		if m[2] >= 0 {
			decl.Storage = text[m[2]:m[3]]
		}

		dims, ok := parseDims(text, m[1]-1)
		if !ok {
			continue
		}
		decl.Dims = dims

		resolved := make([]int, 0, len(dims))
		for _, dim := range dims {
			value, ok := evalConst(dim)
			if !ok || value <= 0 {
				resolved = nil
				break
			}
			resolved = append(resolved, value)
		}
		decl.Resolved = resolved

		decls = append(decls, decl)
	}
	return decls
}

// parseDims scans consecutive bracketed dimension expressions starting at
// the opening bracket at offset start.
func parseDims(text string, start int) ([]string, bool) {
	var dims []string
	i := start
	for i < len(text) && text[i] == '[' {
		end := strings.IndexByte(text[i+1:], ']')
		if end < 0 {
			return nil, false
		}
		dims = append(dims, text[i+1:i+1+end])
		i += end + 2
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
	}
	if len(dims) == 0 {
		return nil, false
	}
	return dims, true
}

// CollectBuffers builds the buffer table from char array declarations.
// Multi-dimensional declarations record the innermost dimension as the byte
// capacity. Unresolvable sizes are skipped silently.
func CollectBuffers(lines []Line) BufferTable {
	table := make(BufferTable)
	for i, line := range lines {
		for _, decl := range parseArrayDecls(line.Text) {
			if decl.ElemType != "char" || decl.Resolved == nil {
				continue
			}
			table[decl.Name] = BufferEntry{
				Name: decl.Name,
				Size: decl.Resolved[len(decl.Resolved)-1],
				Line: i + 1,
			}
		}
	}
	return table
}

// evalConst evaluates a constant integer expression made of decimal or hex
// literals (integer suffixes tolerated), + - * /, and parentheses. Anything
// else, including identifiers and division by zero, is unresolvable.
func evalConst(expr string) (int, bool) {
	p := &constParser{input: expr}
	value, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, false
	}
	return value, true
}

type constParser struct {
	input string
	pos   int
}

func (p *constParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *constParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *constParser) parseExpr() (int, bool) {
	left, ok := p.parseTerm()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, true
		}
		p.pos++
		right, ok := p.parseTerm()
		if !ok {
			return 0, false
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *constParser) parseTerm() (int, bool) {
	left, ok := p.parseUnary()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, true
		}
		p.pos++
		right, ok := p.parseUnary()
		if !ok {
			return 0, false
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, false
			}
			left /= right
		}
	}
}

func (p *constParser) parseUnary() (int, bool) {
	p.skipSpaces()
	if p.peek() == '-' {
		p.pos++
		value, ok := p.parseUnary()
		return -value, ok
	}
	return p.parsePrimary()
}

func (p *constParser) parsePrimary() (int, bool) {
	p.skipSpaces()
	if p.peek() == '(' {
		p.pos++
		value, ok := p.parseExpr()
		if !ok {
			return 0, false
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return value, true
	}
	return p.parseNumber()
}

func (p *constParser) parseNumber() (int, bool) {
	start := p.pos
	if strings.HasPrefix(p.input[p.pos:], "0x") || strings.HasPrefix(p.input[p.pos:], "0X") {
		p.pos += 2
		digits := p.pos
		for p.pos < len(p.input) && isHexDigit(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == digits {
			return 0, false
		}
	} else {
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
		if p.pos == start {
			return 0, false
		}
	}
	text := p.input[start:p.pos]

	// integer suffixes (u, l, ul, ull, ...)
	for p.pos < len(p.input) && isIntSuffix(p.input[p.pos]) {
		p.pos++
	}

	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(value), true
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isIntSuffix(c byte) bool {
	return c == 'u' || c == 'U' || c == 'l' || c == 'L'
}
