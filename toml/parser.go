package toml

import (
	"fmt"
	"strconv"

	"github.com/opal-lang/celes/diag"
	"github.com/opal-lang/celes/lexer"
)

// parser is the recursive-descent driver from spec.md §4.6: it walks
// tokens off a Lexer and builds a Value tree rooted at root, failing fast
// on the first diagnostic (spec.md §4.6.6/§7) while still recording it in
// acc for the caller to render.
type parser struct {
	file string
	lx   *lexer.Lexer

	root *Table

	// curTable is the table currently receiving bare key/value pairs; it
	// starts out as root itself (the document preamble). Once a [header]
	// is seen, curTable becomes a fresh detached Table and curPath
	// records where it belongs; it is only spliced into the tree when
	// the next header (or EOF) arrives, mirroring spec.md §4.6.5's
	// "commit the previously-parsed cur_table" step.
	curTable     *Table
	curPath      []pathSegment
	isTableArray bool

	acc diag.Accumulator
}

func newParser(file string, src []byte) *parser {
	root := NewTable()
	return &parser{
		file:     file,
		lx:       lexer.NewBorrowed(src),
		root:     root,
		curTable: root,
	}
}

func (p *parser) fail(pos lexer.Position, kind, message string) string {
	p.acc.Add(p.file, pos.Row, pos.Col, diag.LevelError, message)
	return kind
}

// Parse runs the driver loop from spec.md §4.6.6 and returns the error
// kind, or "" on success.
func (p *parser) Parse() string {
	for {
		tok := p.lx.PeekToken(lexer.Ignore)
		if tok.IsEOF() {
			break
		}
		// Commit the leading-whitespace skip the peek performed: every
		// branch below either passes tok whole or re-scans raw characters
		// starting at tok's own position, so the skip must land on the
		// lexer's real cursor before either happens.
		p.lx.ResetToToken(tok)
		switch {
		case tok.Category == lexer.Other && tok.Ch == '[':
			if kind := p.parseTableHeader(); kind != "" {
				return kind
			}
		case tok.Category == lexer.Other && tok.Ch == '#':
			p.skipComment()
		default:
			if kind := p.parseKeyPair(); kind != "" {
				return kind
			}
		}
	}
	// On loop exit, commit the final cur_table exactly as a table header
	// would (spec.md §4.6.6).
	return p.commitCurTable()
}

func (p *parser) skipComment() {
	p.lx.GetChar() // '#'
	for {
		c := p.lx.PeekChar()
		if c.IsEOF() || c.Ch == '\n' || c.Ch == '\r' {
			return
		}
		p.lx.GetChar()
	}
}

// parseTableHeader handles both [a.b.c] and [[a.b.c]] (spec.md §4.6.5).
func (p *parser) parseTableHeader() string {
	p.lx.GetChar() // first '['
	isArray := false
	if c := p.lx.PeekChar(); c.Ch == '[' {
		p.lx.GetChar()
		isArray = true
	}

	path, kind := p.parseDottedPath()
	if kind != "" {
		return kind
	}
	if len(path) == 0 {
		tok := p.lx.PeekToken(lexer.Ignore)
		return p.fail(tok.Pos, diag.UnexpectedText, "Unexpected text")
	}

	close1 := p.lx.GetChar()
	if close1.Ch != ']' {
		return p.fail(close1.Pos, diag.UnexpectedText, "Unexpected text")
	}
	if isArray {
		close2 := p.lx.GetChar()
		if close2.Ch != ']' {
			return p.fail(close2.Pos, diag.UnexpectedText, "Unexpected text")
		}
	}

	if len(p.curPath) > 0 {
		if kind := p.commitCurTable(); kind != "" {
			return kind
		}
	}

	p.curPath = path
	p.curTable = NewTable()
	p.isTableArray = isArray
	return ""
}

// commitCurTable splices curTable into the tree at curPath, walking from
// root per spec.md §4.6.5. It is a no-op while curPath is still empty
// (the bare document preamble, which is curTable==root itself).
func (p *parser) commitCurTable() string {
	if len(p.curPath) == 0 {
		return ""
	}

	parentTable, leaf, kind := p.getSubtableAndSubkey(p.root, p.curPath)
	if kind != "" {
		return kind
	}

	if p.isTableArray {
		existing, ok := parentTable.Get(leaf.Name)
		switch {
		case !ok:
			arr := NewArray()
			arr.append(wrapTable(p.curTable))
			parentTable.insert(leaf.Name, wrapArray(arr))
		case existing.Kind() == ArrayKind:
			existing.array.append(wrapTable(p.curTable))
		default:
			return p.fail(leaf.Pos, diag.InvalidIdentifier, fmt.Sprintf("Invalid identifier, %q is not a table array", leaf.Name))
		}
		return ""
	}

	if _, ok := parentTable.Get(leaf.Name); ok {
		return p.fail(leaf.Pos, diag.KeyAlreadyExists, fmt.Sprintf("Key already exists: %q", leaf.Name))
	}
	parentTable.insert(leaf.Name, wrapTable(p.curTable))
	return ""
}

// parseKeyPair handles a single "path = value" line (spec.md §4.6.1).
func (p *parser) parseKeyPair() string {
	path, kind := p.parseDottedPath()
	if kind != "" {
		return kind
	}
	if len(path) == 0 {
		tok := p.lx.PeekToken(lexer.Ignore)
		return p.fail(tok.Pos, diag.UnexpectedText, "Unexpected text")
	}

	eq := p.lx.PeekToken(lexer.Ignore)
	if eq.IsEOF() {
		return p.fail(eq.Pos, diag.UnexpectedEOF, "Unexpected end of file")
	}
	if !(eq.Category == lexer.Other && eq.Ch == '=') {
		return p.fail(eq.Pos, diag.UnexpectedText, "Unexpected text")
	}
	p.lx.PassToken(eq)

	val, kind := p.parseValue()
	if kind != "" {
		return kind
	}

	parentTable, leaf, kind := p.getSubtableAndSubkey(p.curTable, path)
	if kind != "" {
		return kind
	}
	if _, ok := parentTable.Get(leaf.Name); ok {
		return p.fail(leaf.Pos, diag.KeyAlreadyExists, fmt.Sprintf("Key already exists: %q", leaf.Name))
	}
	parentTable.insert(leaf.Name, val)
	return ""
}

// getSubtableAndSubkey walks path[:len(path)-1] from base, creating empty
// tables along any missing prefix, and returns the terminal table plus
// the final segment (spec.md §4.6.5).
func (p *parser) getSubtableAndSubkey(base *Table, path []pathSegment) (*Table, pathSegment, string) {
	cur := base
	for _, seg := range path[:len(path)-1] {
		v, ok := cur.Get(seg.Name)
		if !ok {
			sub := NewTable()
			cur.insert(seg.Name, wrapTable(sub))
			cur = sub
			continue
		}
		if v.Kind() != TableKind {
			return nil, pathSegment{}, p.fail(seg.Pos, diag.InvalidIdentifier, fmt.Sprintf("Invalid identifier, %q is not a table", seg.Name))
		}
		cur = v.table
	}
	return cur, path[len(path)-1], ""
}

// parseDottedPath parses ident(.ident)* where each ident is a bare
// identifier or a quoted (basic/literal) string (spec.md §4.6.4).
func (p *parser) parseDottedPath() ([]pathSegment, string) {
	var segs []pathSegment
	for {
		tok := p.lx.PeekToken(lexer.Ignore)
		pos := tok.Pos
		var name string
		var kind string
		switch {
		case tok.Category == lexer.Other && tok.Ch == '"':
			p.lx.ResetToToken(tok)
			name, kind = p.parseBasicString(false)
		case tok.Category == lexer.Other && tok.Ch == '\'':
			p.lx.ResetToToken(tok)
			name, kind = p.parseLiteralString(false)
		default:
			name, kind = p.parseBareIdent()
		}
		if kind != "" {
			return nil, kind
		}
		segs = append(segs, pathSegment{Name: name, Pos: pos})

		dot := p.lx.PeekToken(lexer.Ignore)
		if dot.Category == lexer.Other && dot.Ch == '.' {
			p.lx.PassToken(dot)
			continue
		}
		return segs, ""
	}
}

// parseBareIdent consumes a maximal run of Alpha/Digit/'_'/'-' code
// points, stopping at whitespace, a delimiter, or EOF (spec.md §4.6.4).
func (p *parser) parseBareIdent() (string, string) {
	var sb []byte
loop:
	for {
		tok := p.lx.PeekToken(lexer.Ignore)
		if len(sb) > 0 && tok.PassedWhitespace {
			break loop
		}
		switch {
		case tok.Category == lexer.Alpha || tok.Category == lexer.Digit:
			sb = append(sb, tok.Text.Bytes()...)
			p.lx.PassToken(tok)
		case tok.Category == lexer.Other && (tok.Ch == '_' || tok.Ch == '-'):
			sb = append(sb, byte(tok.Ch))
			p.lx.PassToken(tok)
		default:
			break loop
		}
	}
	if len(sb) == 0 {
		tok := p.lx.PeekToken(lexer.Ignore)
		return "", p.fail(tok.Pos, diag.UnexpectedText, "Unexpected text")
	}
	return string(sb), ""
}

// parseValue dispatches on the lookahead token (spec.md §4.6.2/§4.6.3).
func (p *parser) parseValue() (Value, string) {
	tok := p.lx.PeekToken(lexer.Ignore)
	if tok.IsEOF() {
		return Value{}, p.fail(tok.Pos, diag.UnexpectedEOF, "Unexpected end of file")
	}
	if tok.PassedNewline {
		return Value{}, p.fail(tok.Pos, diag.UnexpectedEOL, "Unexpected end of line")
	}

	switch {
	case tok.Category == lexer.Alpha && tok.Text.EqualString("true"):
		p.lx.PassToken(tok)
		return BooleanValue(true), ""
	case tok.Category == lexer.Alpha && tok.Text.EqualString("false"):
		p.lx.PassToken(tok)
		return BooleanValue(false), ""
	case tok.Category == lexer.Other && tok.Ch == '"':
		p.lx.ResetToToken(tok)
		s, kind := p.parseBasicString(true)
		if kind != "" {
			return Value{}, kind
		}
		return StringValue(s), ""
	case tok.Category == lexer.Other && tok.Ch == '\'':
		p.lx.ResetToToken(tok)
		s, kind := p.parseLiteralString(true)
		if kind != "" {
			return Value{}, kind
		}
		return StringValue(s), ""
	case tok.Category == lexer.Other && tok.Ch == '[':
		return Value{}, p.fail(tok.Pos, diag.Unimplemented, "Inline arrays are unsupported")
	case tok.Category == lexer.Other && tok.Ch == '{':
		return Value{}, p.fail(tok.Pos, diag.Unimplemented, "Inline tables are unsupported")
	case tok.Category == lexer.Digit, tok.Category == lexer.Other && (tok.Ch == '+' || tok.Ch == '-'),
		tok.Category == lexer.Alpha && (tok.Text.EqualString("inf") || tok.Text.EqualString("nan")):
		p.lx.ResetToToken(tok)
		return p.parseNumber()
	default:
		return Value{}, p.fail(tok.Pos, diag.UnexpectedText, "Unexpected text")
	}
}

// parseNumber implements spec.md §4.6.3: optional sign, optional base
// prefix (0x/0o/0b; decimal otherwise), digit runs with single-underscore
// separators, and (decimal only) a fractional part and/or exponent.
func (p *parser) parseNumber() (Value, string) {
	start := p.lx.PeekChar()
	pos := start.Pos

	negative := false
	if c := p.lx.PeekChar(); c.Ch == '+' {
		p.lx.GetChar()
	} else if c.Ch == '-' {
		negative = true
		p.lx.GetChar()
	}

	if word := p.lx.PeekToken(lexer.Ignore); word.Category == lexer.Alpha {
		switch {
		case word.Text.EqualString("inf"):
			p.lx.PassToken(word)
			return Value{}, p.fail(pos, diag.Unimplemented, "inf is unsupported")
		case word.Text.EqualString("nan"):
			p.lx.PassToken(word)
			return Value{}, p.fail(pos, diag.Unimplemented, "nan is unsupported")
		}
	}

	base := 10
	var raw []byte

	if zero := p.lx.PeekChar(); zero.Ch == '0' {
		p.lx.GetChar()
		switch next := p.lx.PeekChar(); next.Ch {
		case 'x', 'X':
			p.lx.GetChar()
			base = 16
		case 'o', 'O':
			p.lx.GetChar()
			base = 8
		case 'b', 'B':
			p.lx.GetChar()
			base = 2
		default:
			raw = append(raw, '0')
		}
	}

	sawDot, sawExp := false, false

digits:
	for {
		c := p.lx.PeekChar()
		if c.IsEOF() {
			break
		}
		if isDigitForBase(c.Ch, base) {
			raw = append(raw, byte(c.Ch))
			p.lx.GetChar()
			continue
		}
		if c.Ch == '_' {
			u := p.lx.GetChar()
			nxt := p.lx.PeekChar()
			if !isDigitForBase(nxt.Ch, base) {
				return Value{}, p.fail(u.Pos, diag.UnexpectedText, "Unexpected text")
			}
			continue
		}
		if base == 10 {
			if c.Ch == '.' && !sawDot && !sawExp && len(raw) > 0 {
				sawDot = true
				raw = append(raw, '.')
				p.lx.GetChar()
				continue
			}
			if (c.Ch == 'e' || c.Ch == 'E') && !sawExp && len(raw) > 0 {
				sawExp = true
				raw = append(raw, 'e')
				p.lx.GetChar()
				if s := p.lx.PeekChar(); s.Ch == '+' || s.Ch == '-' {
					raw = append(raw, byte(s.Ch))
					p.lx.GetChar()
				}
				continue
			}
		}
		if base == 16 && isASCIIAlpha(c.Ch) && len(raw) > 0 {
			return Value{}, p.fail(c.Pos, diag.UnexpectedText, "Unexpected text")
		}
		break digits
	}

	if len(raw) == 0 {
		return Value{}, p.fail(pos, diag.UnexpectedText, "Unexpected text")
	}

	text := string(raw)
	if negative {
		text = "-" + text
	}

	if sawDot || sawExp {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, p.fail(pos, diag.UnexpectedText, "Unexpected text")
		}
		return RealValue(f), ""
	}

	i, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		return Value{}, p.fail(pos, diag.UnexpectedText, "Unexpected text")
	}
	return IntegerValue(i), ""
}

func isDigitForBase(ch rune, base int) bool {
	switch base {
	case 16:
		return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
	case 8:
		return ch >= '0' && ch <= '7'
	case 2:
		return ch == '0' || ch == '1'
	default:
		return ch >= '0' && ch <= '9'
	}
}

func isASCIIAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// parseBasicString parses a "..." or (if allowMultiline) """...""" string,
// processing the escape sequences from spec.md §4.6.3.
func (p *parser) parseBasicString(allowMultiline bool) (string, string) {
	p.lx.GetChar() // opening '"'

	multiline := false
	if allowMultiline {
		if c2 := p.lx.PeekChar(); c2.Ch == '"' {
			p.lx.GetChar()
			if c3 := p.lx.PeekChar(); c3.Ch == '"' {
				p.lx.GetChar()
				multiline = true
			} else {
				return "", "" // "" empty basic string
			}
		}
	}

	var sb []byte
	for {
		c := p.lx.GetChar()
		if c.IsEOF() {
			return "", p.fail(c.Pos, diag.UnexpectedEOF, "Unexpected end of file")
		}
		switch {
		case c.Ch == '"':
			if !multiline {
				return string(sb), ""
			}
			if c2 := p.lx.PeekChar(); c2.Ch == '"' {
				p.lx.GetChar()
				if c3 := p.lx.PeekChar(); c3.Ch == '"' {
					p.lx.GetChar()
					return string(sb), ""
				}
				sb = append(sb, '"', '"')
				continue
			}
			sb = append(sb, '"')
		case c.Ch == '\\':
			e := p.lx.GetChar()
			if e.IsEOF() {
				return "", p.fail(e.Pos, diag.UnexpectedEOF, "Unexpected end of file")
			}
			switch e.Ch {
			case 'b':
				sb = append(sb, '\b')
			case 't':
				sb = append(sb, '\t')
			case 'n':
				sb = append(sb, '\n')
			case 'f':
				sb = append(sb, '\f')
			case 'r':
				sb = append(sb, '\r')
			case '"':
				sb = append(sb, '"')
			case '\\':
				sb = append(sb, '\\')
			case 'u', 'U':
				return "", p.fail(e.Pos, diag.Unimplemented, "Unicode escape codes currently unsupported")
			default:
				return "", p.fail(e.Pos, diag.UnexpectedText, "Unexpected text")
			}
		case !multiline && (c.Ch == '\n' || c.Ch == '\r'):
			return "", p.fail(c.Pos, diag.UnexpectedEOL, "Unexpected end of line")
		default:
			sb = append(sb, []byte(string(c.Ch))...)
		}
	}
}

// parseLiteralString parses a '...' or (if allowMultiline) '''...''' string
// with no escape processing (spec.md §4.6.3).
func (p *parser) parseLiteralString(allowMultiline bool) (string, string) {
	p.lx.GetChar() // opening '\''

	multiline := false
	if allowMultiline {
		if c2 := p.lx.PeekChar(); c2.Ch == '\'' {
			p.lx.GetChar()
			if c3 := p.lx.PeekChar(); c3.Ch == '\'' {
				p.lx.GetChar()
				multiline = true
			} else {
				return "", "" // '' empty literal string
			}
		}
	}

	var sb []byte
	for {
		c := p.lx.GetChar()
		if c.IsEOF() {
			return "", p.fail(c.Pos, diag.UnexpectedEOF, "Unexpected end of file")
		}
		switch {
		case c.Ch == '\'':
			if !multiline {
				return string(sb), ""
			}
			if c2 := p.lx.PeekChar(); c2.Ch == '\'' {
				p.lx.GetChar()
				if c3 := p.lx.PeekChar(); c3.Ch == '\'' {
					p.lx.GetChar()
					return string(sb), ""
				}
				sb = append(sb, '\'', '\'')
				continue
			}
			sb = append(sb, '\'')
		case !multiline && (c.Ch == '\n' || c.Ch == '\r'):
			return "", p.fail(c.Pos, diag.UnexpectedEOL, "Unexpected end of line")
		default:
			sb = append(sb, []byte(string(c.Ch))...)
		}
	}
}

// Parse parses src (associated with file for diagnostic messages) and
// returns the resulting root table, the first error kind encountered (""
// on success), and the full diagnostic accumulator.
func Parse(file string, src []byte) (*Table, string, *diag.Accumulator) {
	p := newParser(file, src)
	kind := p.Parse()
	return p.root, kind, &p.acc
}
