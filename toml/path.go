package toml

import "github.com/opal-lang/celes/lexer"

// pathSegment is one element of a dotted key path (spec.md §4.6.4),
// carrying the position of its defining token for diagnostics raised
// later while walking the path (e.g. InvalidIdentifier).
type pathSegment struct {
	Name string
	Pos  lexer.Position
}
