package toml

import (
	"math"
	"testing"

	"github.com/opal-lang/celes/diag"
)

func parseOK(t *testing.T, src string) *Table {
	t.Helper()
	root, kind, acc := Parse("t.toml", []byte(src))
	if kind != "" {
		t.Fatalf("unexpected parse failure %s: %s", kind, acc.Build())
	}
	return root
}

// S1
func TestIntegerAssignment(t *testing.T) {
	root := parseOK(t, "x = 5\n")
	if got := root.GetInt("x"); got != 5 {
		t.Fatalf("x = %d, want 5", got)
	}
}

// S2
func TestNestedTableHeader(t *testing.T) {
	root := parseOK(t, "[a.b]\nc = \"hi\"\n")
	a := root.GetTable("a")
	if a == nil {
		t.Fatal("root.a is not a table")
	}
	b := a.GetTable("b")
	if b == nil {
		t.Fatal("root.a.b is not a table")
	}
	if got := b.GetString("c"); got != "hi" {
		t.Fatalf("root.a.b.c = %q, want hi", got)
	}
}

// S3
func TestBasicStringEscape(t *testing.T) {
	root := parseOK(t, "x = \"line1\\nline2\"\n")
	if got := root.GetString("x"); got != "line1\nline2" {
		t.Fatalf("x = %q", got)
	}
}

// S4
func TestHexIntegerWithUnderscore(t *testing.T) {
	root := parseOK(t, "x = 0xDEAD_BEEF\n")
	if got := root.GetInt("x"); got != 0xDEADBEEF {
		t.Fatalf("x = %d, want %d", got, int64(0xDEADBEEF))
	}
}

// S5
func TestNegativeExponentReal(t *testing.T) {
	root := parseOK(t, "x = -1.25e-3\n")
	got := root.GetFloat("x")
	if math.Abs(got-(-0.00125)) > 1e-9 {
		t.Fatalf("x = %v, want -0.00125", got)
	}
}

// S6
func TestMultilineBasicStringWithEmbeddedQuotes(t *testing.T) {
	root := parseOK(t, "x = \"\"\"a\\n\"b\"c\"\"\"\n")
	if got := root.GetString("x"); got != "a\n\"b\"c" {
		t.Fatalf("x = %q", got)
	}
}

// S7
func TestDuplicateKeyIsRejectedFirstWriterWins(t *testing.T) {
	root, kind, _ := Parse("t.toml", []byte("x = 1\nx = 2\n"))
	if kind != diag.KeyAlreadyExists {
		t.Fatalf("kind = %q, want %q", kind, diag.KeyAlreadyExists)
	}
	if got := root.GetInt("x"); got != 1 {
		t.Fatalf("x = %d, want 1 (first writer wins)", got)
	}
}

// S8
func TestUnicodeEscapeIsUnimplemented(t *testing.T) {
	_, kind, _ := Parse("t.toml", []byte("x = \"\\u0041\"\n"))
	if kind != diag.Unimplemented {
		t.Fatalf("kind = %q, want %q", kind, diag.Unimplemented)
	}
}

func TestEmptyInputYieldsEmptyRoot(t *testing.T) {
	root := parseOK(t, "")
	if root.PairCount() != 0 {
		t.Fatalf("pair count = %d, want 0", root.PairCount())
	}
}

func TestCommentOnlyLineIsIgnored(t *testing.T) {
	root := parseOK(t, "# just a comment\nx = 1\n")
	if got := root.GetInt("x"); got != 1 {
		t.Fatalf("x = %d, want 1", got)
	}
}

func TestKeyWithNothingAfterEqualsIsUnexpectedEOF(t *testing.T) {
	_, kind, _ := Parse("t.toml", []byte("x ="))
	if kind != diag.UnexpectedEOF {
		t.Fatalf("kind = %q, want %q", kind, diag.UnexpectedEOF)
	}
}

func TestNewlineBeforeValueIsUnexpectedEOL(t *testing.T) {
	_, kind, _ := Parse("t.toml", []byte("x = \n1\n"))
	if kind != diag.UnexpectedEOL {
		t.Fatalf("kind = %q, want %q", kind, diag.UnexpectedEOL)
	}
}

func TestTableArrayAppendsInOrder(t *testing.T) {
	root := parseOK(t, "[[fruit]]\nname = \"apple\"\n[[fruit]]\nname = \"banana\"\n")
	arr := root.GetArray("fruit")
	if arr == nil || arr.Count() != 2 {
		t.Fatalf("fruit array = %v", arr)
	}
	if got := arr.GetTable(0).GetString("name"); got != "apple" {
		t.Fatalf("fruit[0].name = %q", got)
	}
	if got := arr.GetTable(1).GetString("name"); got != "banana" {
		t.Fatalf("fruit[1].name = %q", got)
	}
}

func TestDottedKeyWithinHeaderWalksFromCurrentTable(t *testing.T) {
	root := parseOK(t, "[server]\nhost.name = \"x\"\n")
	server := root.GetTable("server")
	if server == nil {
		t.Fatal("root.server missing")
	}
	host := server.GetTable("host")
	if host == nil {
		t.Fatal("root.server.host missing")
	}
	if got := host.GetString("name"); got != "x" {
		t.Fatalf("name = %q", got)
	}
}

func TestAssigningThroughNonTableIsInvalidIdentifier(t *testing.T) {
	_, kind, _ := Parse("t.toml", []byte("x = 1\nx.y = 2\n"))
	if kind != diag.InvalidIdentifier {
		t.Fatalf("kind = %q, want %q", kind, diag.InvalidIdentifier)
	}
}

func TestLiteralStringHasNoEscapeProcessing(t *testing.T) {
	root := parseOK(t, "x = 'line1\\nline2'\n")
	if got := root.GetString("x"); got != "line1\\nline2" {
		t.Fatalf("x = %q", got)
	}
}

func TestBooleanLiterals(t *testing.T) {
	root := parseOK(t, "a = true\nb = false\n")
	if !root.GetBool("a") || root.GetBool("b") {
		t.Fatalf("a=%v b=%v", root.GetBool("a"), root.GetBool("b"))
	}
}

func TestInlineArrayIsUnimplemented(t *testing.T) {
	_, kind, _ := Parse("t.toml", []byte("x = [1, 2]\n"))
	if kind != diag.Unimplemented {
		t.Fatalf("kind = %q, want %q", kind, diag.Unimplemented)
	}
}
