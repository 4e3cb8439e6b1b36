// Package celes implements the secondary, simpler token-tree scanner from
// spec.md §4.7: unlike the base lexer's maximal same-category runs, it
// groups identifier/number/string/comment spans by their own rules and
// recurses into bracketed blocks, producing a tree instead of a flat
// stream.
package celes

import "github.com/opal-lang/celes/lexer"

// Kind tags a Node's grouping rule.
type Kind int

const (
	Identifier Kind = iota
	Number
	String
	Block
	Comment
	Other
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "Identifier"
	case Number:
		return "Number"
	case String:
		return "String"
	case Block:
		return "Block"
	case Comment:
		return "Comment"
	default:
		return "Other"
	}
}

// Node is one grouped span. Children is populated only for Block nodes;
// Text always spans the node's full delimited region, including any
// enclosing delimiters.
type Node struct {
	Kind     Kind
	Text     lexer.StringRef
	Delim    rune // opening delimiter, meaningful only for Block
	Pos      lexer.Position
	Children []Node
}

// Scan groups src into a top-level sequence of Nodes.
func Scan(src []byte) []Node {
	lx := lexer.NewBorrowed(src)
	return scanSequence(lx, src, 0)
}

// scanSequence consumes Nodes until it sees closeDelim (consuming it) or
// reaches EOF. closeDelim==0 means "top level, run to EOF".
func scanSequence(lx *lexer.Lexer, src []byte, closeDelim rune) []Node {
	var nodes []Node
	for {
		c := lx.PeekChar()
		if c.IsEOF() {
			return nodes
		}
		if closeDelim != 0 && c.Ch == closeDelim {
			lx.GetChar()
			return nodes
		}
		// Whitespace separates nodes and produces none of its own.
		if c.Category == lexer.Whitespace {
			lx.GetChar()
			continue
		}

		switch {
		case c.Ch == '"' || c.Ch == '\'':
			nodes = append(nodes, scanString(lx, src))
		case c.Ch == '{' || c.Ch == '[' || c.Ch == '(':
			nodes = append(nodes, scanBlock(lx, src))
		case c.Ch == '/':
			if n, ok := tryScanComment(lx, src); ok {
				nodes = append(nodes, n)
			} else {
				nodes = append(nodes, scanOther(lx, src))
			}
		case isIdentStart(c):
			nodes = append(nodes, scanIdentifier(lx, src))
		case isNumberStart(lx, c):
			nodes = append(nodes, scanNumber(lx, src))
		default:
			nodes = append(nodes, scanOther(lx, src))
		}
	}
}

func isIdentStart(c lexer.Token) bool {
	return c.Category == lexer.Alpha || c.Ch == '_'
}

func isIdentChar(c lexer.Token) bool {
	return c.Category == lexer.Alpha || c.Category == lexer.Digit || c.Ch == '_'
}

// isNumberStart reports whether c begins a number run: a digit, or a '.'
// immediately followed by a digit.
func isNumberStart(lx *lexer.Lexer, c lexer.Token) bool {
	if c.Category == lexer.Digit {
		return true
	}
	if c.Ch != '.' {
		return false
	}
	dot := lx.GetChar()
	next := lx.PeekChar()
	lx.ResetToToken(dot)
	return next.Category == lexer.Digit
}

func scanIdentifier(lx *lexer.Lexer, src []byte) Node {
	start := lx.Offset()
	pos := lx.Pos()
	for {
		c := lx.PeekChar()
		if c.IsEOF() || !isIdentChar(c) {
			break
		}
		lx.GetChar()
	}
	return Node{Kind: Identifier, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}
}

// scanNumber consumes a run of digits with at most one internal '.', per
// spec.md §4.7.
func scanNumber(lx *lexer.Lexer, src []byte) Node {
	start := lx.Offset()
	pos := lx.Pos()
	sawDot := false
	for {
		c := lx.PeekChar()
		if c.IsEOF() {
			break
		}
		if c.Category == lexer.Digit {
			lx.GetChar()
			continue
		}
		if c.Ch == '.' && !sawDot {
			dot := lx.GetChar()
			next := lx.PeekChar()
			if next.Category == lexer.Digit {
				sawDot = true
				continue
			}
			lx.ResetToToken(dot)
			break
		}
		break
	}
	return Node{Kind: Number, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}
}

// scanString consumes a '...'- or "..."-delimited span; '\' escapes the
// following byte literally rather than being interpreted.
func scanString(lx *lexer.Lexer, src []byte) Node {
	start := lx.Offset()
	pos := lx.Pos()
	open := lx.GetChar()
	for {
		c := lx.GetChar()
		if c.IsEOF() {
			break // unterminated: best-effort, span runs to EOF
		}
		if c.Ch == '\\' {
			if e := lx.GetChar(); e.IsEOF() {
				break
			}
			continue
		}
		if c.Ch == open.Ch {
			break
		}
	}
	return Node{Kind: String, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}
}

// scanBlock recurses into a {...}/[...]/(...) region; Text spans the
// entire region including both delimiters.
func scanBlock(lx *lexer.Lexer, src []byte) Node {
	start := lx.Offset()
	pos := lx.Pos()
	open := lx.GetChar()
	children := scanSequence(lx, src, matchingClose(open.Ch))
	return Node{
		Kind:     Block,
		Text:     lexer.Ref(src[start:lx.Offset()]),
		Delim:    open.Ch,
		Pos:      pos,
		Children: children,
	}
}

func matchingClose(open rune) rune {
	switch open {
	case '{':
		return '}'
	case '[':
		return ']'
	case '(':
		return ')'
	default:
		return 0
	}
}

// tryScanComment recognizes "//"-to-end-of-line and "/* ... */" (with
// nesting); it leaves the cursor untouched and returns ok=false if the
// lookahead doesn't confirm a comment.
func tryScanComment(lx *lexer.Lexer, src []byte) (Node, bool) {
	start := lx.Offset()
	pos := lx.Pos()
	slash := lx.GetChar()
	next := lx.PeekChar()

	switch next.Ch {
	case '/':
		lx.GetChar()
		for {
			c := lx.PeekChar()
			if c.IsEOF() || c.Ch == '\n' || c.Ch == '\r' {
				break
			}
			lx.GetChar()
		}
		return Node{Kind: Comment, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}, true

	case '*':
		lx.GetChar()
		depth := 1
		for depth > 0 {
			c := lx.GetChar()
			if c.IsEOF() {
				break
			}
			if c.Ch == '/' {
				if n := lx.PeekChar(); n.Ch == '*' {
					lx.GetChar()
					depth++
				}
				continue
			}
			if c.Ch == '*' {
				if n := lx.PeekChar(); n.Ch == '/' {
					lx.GetChar()
					depth--
				}
			}
		}
		return Node{Kind: Comment, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}, true

	default:
		lx.ResetToToken(slash)
		return Node{}, false
	}
}

func scanOther(lx *lexer.Lexer, src []byte) Node {
	start := lx.Offset()
	pos := lx.Pos()
	lx.GetChar()
	return Node{Kind: Other, Text: lexer.Ref(src[start:lx.Offset()]), Pos: pos}
}
