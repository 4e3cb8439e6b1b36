package toml

import "testing"

func TestTableInsertGetRoundTrip(t *testing.T) {
	tbl := NewTable()
	defer tbl.Release()

	tbl.insert("name", StringValue("alpha"))
	tbl.insert("count", IntegerValue(7))

	if got := tbl.GetString("name"); got != "alpha" {
		t.Fatalf("name = %q", got)
	}
	if got := tbl.GetInt("count"); got != 7 {
		t.Fatalf("count = %d", got)
	}
	if _, ok := tbl.Get("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestWrapTableTransfersOwnership(t *testing.T) {
	parent := NewTable()
	defer parent.Release()

	child := NewTable()
	if got := child.Refs(); got != 1 {
		t.Fatalf("fresh table refs = %d, want 1", got)
	}

	parent.insert("child", wrapTable(child))
	if got := child.Refs(); got != 1 {
		t.Fatalf("wrapTable must not AddRef; refs = %d, want 1", got)
	}

	parent.Release()
	if got := child.Refs(); got != 0 {
		t.Fatalf("releasing parent should cascade into child; refs = %d, want 0", got)
	}
}

func TestAddRefIndependentHandle(t *testing.T) {
	tbl := NewTable()
	held := tbl.AddRef()
	if held.Refs() != 2 {
		t.Fatalf("refs after AddRef = %d, want 2", tbl.Refs())
	}

	tbl.Release()
	if tbl.Refs() != 1 {
		t.Fatalf("refs after one Release = %d, want 1", tbl.Refs())
	}
	held.Release()
	if tbl.Refs() != 0 {
		t.Fatalf("refs after second Release = %d, want 0", tbl.Refs())
	}
}

func TestArrayAppendAndGet(t *testing.T) {
	arr := NewArray()
	defer arr.Release()

	arr.append(StringValue("a"))
	arr.append(StringValue("b"))

	if arr.Count() != 2 {
		t.Fatalf("count = %d", arr.Count())
	}
	if got := arr.GetString(0); got != "a" {
		t.Fatalf("elem 0 = %q", got)
	}
	if got := arr.GetString(1); got != "b" {
		t.Fatalf("elem 1 = %q", got)
	}
	if got := arr.Get(99); got.Kind() != Invalid {
		t.Fatalf("out-of-range elem kind = %v, want Invalid", got.Kind())
	}
}

func TestGetNestedMissingIntermediate(t *testing.T) {
	root := NewTable()
	defer root.Release()

	if _, ok := root.GetNested("missing", "key"); ok {
		t.Fatal("expected miss when the intermediate table is absent")
	}
}

func TestGetNestedResolvesThroughSubtable(t *testing.T) {
	root := NewTable()
	defer root.Release()

	sub := NewTable()
	sub.insert("port", IntegerValue(8080))
	root.insert("server", wrapTable(sub))

	v, ok := root.GetNested("server", "port")
	if !ok || v.Kind() != IntegerKind {
		t.Fatalf("GetNested = %v, %v", v, ok)
	}
	got, _ := String(StringValue("8080"))
	if got != "8080" {
		t.Fatalf("sanity check on String() helper failed: %q", got)
	}
}
