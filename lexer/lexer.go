package lexer

import "unicode"

// Lexer scans UTF-8 source text into Tokens, tracking (row, col) position
// and supporting the peek-then-commit idiom described in spec.md §4.2/§9:
// Peek* runs the same state machine as Get* but leaves the cursor
// untouched; the returned Token carries the committed cursor state so a
// caller can inspect it and later commit via PassToken without rescanning.
//
// Two constructors mirror the two ownership modes from spec.md §3/§9: one
// takes ownership of the buffer, one borrows it. Go's garbage collector
// makes the distinction mostly documentation rather than a freeing
// obligation, but Close still drops the owned reference promptly so large
// owned buffers don't outlive the lexer unnecessarily.
type Lexer struct {
	text       []byte
	ownsMemory bool

	offset    int
	row, col  uint32
	pendingNL byte // '\r' or '\n' when the previous rune started an unresolved newline pair
}

// NewOwned creates a Lexer that takes ownership of buf.
func NewOwned(buf []byte) *Lexer {
	return &Lexer{text: buf, ownsMemory: true, row: 1, col: 1}
}

// NewBorrowed creates a Lexer over buf without taking ownership; the
// caller retains responsibility for buf's lifetime.
func NewBorrowed(buf []byte) *Lexer {
	return &Lexer{text: buf, ownsMemory: false, row: 1, col: 1}
}

// Close releases the Lexer's reference to an owned buffer. It is a no-op
// for borrowed buffers.
func (l *Lexer) Close() {
	if l.ownsMemory {
		l.text = nil
	}
}

// OwnsMemory reports whether this Lexer owns its backing buffer.
func (l *Lexer) OwnsMemory() bool { return l.ownsMemory }

// Offset returns the current byte cursor.
func (l *Lexer) Offset() int { return l.offset }

// Pos returns the current (row, col).
func (l *Lexer) Pos() Position { return Position{Row: l.row, Col: l.col} }

// AtEOF reports whether the cursor has reached the end of the buffer.
func (l *Lexer) AtEOF() bool {
	_, _, ok := decodeRune(l.text, l.offset)
	return !ok
}

// PeekToken returns the next token without advancing the cursor.
func (l *Lexer) PeekToken(iws IgnoreWhitespace) Token {
	return l.scan(iws)
}

// GetToken returns the next token and advances the cursor past it.
func (l *Lexer) GetToken(iws IgnoreWhitespace) Token {
	tok := l.scan(iws)
	l.PassToken(tok)
	return tok
}

// PeekChar returns the next single code point as a token without
// advancing the cursor. Used when a caller needs to walk a delimited
// region byte-by-byte (e.g. inside a string literal) instead of by
// classified run.
func (l *Lexer) PeekChar() Token {
	return l.scanChar()
}

// GetChar returns the next single code point as a token and advances the
// cursor past it.
func (l *Lexer) GetChar() Token {
	tok := l.scanChar()
	l.PassToken(tok)
	return tok
}

// ResetToToken restores the cursor to tok's starting position, as if it
// had never been scanned.
func (l *Lexer) ResetToToken(tok Token) {
	l.offset = tok.startOffset
	l.row = tok.Pos.Row
	l.col = tok.Pos.Col
	l.pendingNL = tok.startPending
}

// PassToken jumps the cursor to tok's committed end position, without
// rescanning. This is how a peeked token is "committed" once a caller
// decides to consume it.
func (l *Lexer) PassToken(tok Token) {
	l.offset = tok.nextOffset
	l.row = tok.nextPos.Row
	l.col = tok.nextPos.Col
	l.pendingNL = tok.nextPending
}

// scan runs the base-token state machine from the lexer's current
// (uncommitted) position and returns the resulting token.
func (l *Lexer) scan(iws IgnoreWhitespace) Token {
	offset, pos, pending := l.offset, l.Pos(), l.pendingNL
	passedWS, passedNL := false, false

	if iws == Ignore {
		for {
			r, _, ok := decodeRune(l.text, offset)
			if !ok || classify(r) != Whitespace {
				break
			}
			passedWS = true
			if isNewlineRune(r) {
				passedNL = true
			}
			_, offset, pos, pending = advanceOne(l.text, offset, pos, pending)
		}
	}

	startOffset, startPos, startPending := offset, pos, pending

	r0, _, ok := decodeRune(l.text, offset)
	if !ok {
		return Token{
			Category:         None,
			Pos:              pos,
			PassedWhitespace: passedWS,
			PassedNewline:    passedNL,
			startOffset:      offset,
			startPending:     pending,
			nextOffset:       offset,
			nextPos:          pos,
			nextPending:      pending,
		}
	}

	cat0 := classify(r0)

	var endOffset int
	var endPos Position
	var endPending byte
	var wsKind WhitespaceKind

	switch cat0 {
	case Whitespace:
		wsKind = whitespaceKindOf(r0)
		_, endOffset, endPos, endPending = advanceOne(l.text, offset, pos, pending)

	case Other:
		_, endOffset, endPos, endPending = advanceOne(l.text, offset, pos, pending)

	default: // Alpha, Digit: maximal run of the same category
		curOffset, curPos, curPending := offset, pos, pending
		for {
			r, _, ok := decodeRune(l.text, curOffset)
			if !ok || classify(r) != cat0 {
				break
			}
			_, curOffset, curPos, curPending = advanceOne(l.text, curOffset, curPos, curPending)
		}
		endOffset, endPos, endPending = curOffset, curPos, curPending
	}

	text := StringRef{buf: l.text[startOffset:endOffset]}

	return Token{
		Text:             text,
		Ch:               singleRuneOf(text.buf),
		Category:         cat0,
		Whitespace:       wsKind,
		PassedWhitespace: passedWS,
		PassedNewline:    passedNL,
		Pos:              startPos,
		startOffset:      startOffset,
		startPending:     startPending,
		nextOffset:       endOffset,
		nextPos:          endPos,
		nextPending:      endPending,
	}
}

// scanChar scans exactly one code point, ignoring run-length grouping.
func (l *Lexer) scanChar() Token {
	offset, pos, pending := l.offset, l.Pos(), l.pendingNL

	r, _, ok := decodeRune(l.text, offset)
	if !ok {
		return Token{
			Category:     None,
			Pos:          pos,
			startOffset:  offset,
			startPending: pending,
			nextOffset:   offset,
			nextPos:      pos,
			nextPending:  pending,
		}
	}

	cat := classify(r)
	var wsKind WhitespaceKind
	if cat == Whitespace {
		wsKind = whitespaceKindOf(r)
	}

	_, endOffset, endPos, endPending := advanceOne(l.text, offset, pos, pending)
	text := StringRef{buf: l.text[offset:endOffset]}

	return Token{
		Text:        text,
		Ch:          r,
		Category:    cat,
		Whitespace:  wsKind,
		Pos:         pos,
		startOffset: offset,
		startPending: pending,
		nextOffset:  endOffset,
		nextPos:     endPos,
		nextPending: endPending,
	}
}

// singleRuneOf returns the sole code point of buf if buf is exactly one
// rune long, else 0.
func singleRuneOf(buf []byte) rune {
	r, size, ok := decodeRune(buf, 0)
	if !ok || size != len(buf) {
		return 0
	}
	return r
}

// classify assigns a Category to a single decoded code point.
func classify(r rune) Category {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return Whitespace
	}
	if unicode.IsSpace(r) {
		return Whitespace
	}
	if r >= '0' && r <= '9' {
		return Digit
	}
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return Alpha
	}
	if r >= 0x80 {
		return Alpha
	}
	return Other
}

func isNewlineRune(r rune) bool { return r == '\n' || r == '\r' }

func whitespaceKindOf(r rune) WhitespaceKind {
	switch {
	case r == '\t':
		return WSTab
	case r == ' ':
		return WSSpace
	case isNewlineRune(r):
		return WSNewline
	default:
		return WSSpace
	}
}

// advanceOne decodes and consumes exactly one code point starting at
// offset, applying the dual-byte newline-pair rule from spec.md §4.2/§9:
// "\r\n" and "\n\r" count as a single row increment. pending records
// whether the previous rune started such a pair and is still unresolved.
func advanceOne(buf []byte, offset int, pos Position, pending byte) (r rune, newOffset int, newPos Position, newPending byte) {
	r, size, ok := decodeRune(buf, offset)
	if !ok {
		return 0, offset, pos, pending
	}
	newOffset = offset + size

	if isNewlineRune(r) {
		other := byte('\r')
		if r == '\r' {
			other = '\n'
		}
		if pending == other {
			// Second half of a "\r\n"/"\n\r" pair: already counted.
			return r, newOffset, pos, 0
		}
		return r, newOffset, Position{Row: pos.Row + 1, Col: 1}, byte(r)
	}

	return r, newOffset, Position{Row: pos.Row, Col: pos.Col + 1}, 0
}
