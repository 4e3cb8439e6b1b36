// Package toml implements the recursive-descent TOML parser and value
// tree described in spec.md §4.5/§4.6, built on the base lexer in
// package lexer and the open-addressed table in package htable.
package toml

import "github.com/opal-lang/celes/htable"

// Kind tags the sum-typed Value union from spec.md §3.
type Kind int

const (
	Invalid Kind = iota
	StringKind
	IntegerKind
	RealKind
	BooleanKind
	TableKind
	ArrayKind
)

// Value is the tagged union described in spec.md §4.5: exactly one of
// its typed fields is meaningful, selected by Kind.
type Value struct {
	kind Kind

	str   string
	i     int64
	f     float64
	b     bool
	table *Table
	array *Array
}

// Kind reports the value's tag.
func (v Value) Kind() Kind { return v.kind }

// String returns v's string value, or "" if v is not a StringKind.
func String(v Value) (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return v.str, true
}

// Integer returns v's integer value, or 0 if v is not an IntegerKind.
func Integer(v Value) (int64, bool) {
	if v.kind != IntegerKind {
		return 0, false
	}
	return v.i, true
}

// Real returns v's real value, or 0 if v is not a RealKind.
func Real(v Value) (float64, bool) {
	if v.kind != RealKind {
		return 0, false
	}
	return v.f, true
}

// Boolean returns v's boolean value, or false if v is not a BooleanKind.
func Boolean(v Value) (bool, bool) {
	if v.kind != BooleanKind {
		return false, false
	}
	return v.b, true
}

// TableOf returns v's table, or nil if v is not a TableKind.
func TableOf(v Value) *Table {
	if v.kind != TableKind {
		return nil
	}
	return v.table
}

// ArrayOf returns v's array, or nil if v is not an ArrayKind.
func ArrayOf(v Value) *Array {
	if v.kind != ArrayKind {
		return nil
	}
	return v.array
}

// WrapTableValue builds a Value that takes ownership of t's existing
// reference, for callers outside this package constructing a tree
// directly (e.g. the build cache rehydrating a serialized snapshot).
func WrapTableValue(t *Table) Value { return wrapTable(t) }

// WrapArrayValue is WrapTableValue's Array counterpart.
func WrapArrayValue(a *Array) Value { return wrapArray(a) }

// StringValue builds a Value from a Go string.
func StringValue(s string) Value { return Value{kind: StringKind, str: s} }

// IntegerValue builds a Value from an int64.
func IntegerValue(i int64) Value { return Value{kind: IntegerKind, i: i} }

// RealValue builds a Value from a float64.
func RealValue(f float64) Value { return Value{kind: RealKind, f: f} }

// BooleanValue builds a Value from a bool.
func BooleanValue(b bool) Value { return Value{kind: BooleanKind, b: b} }

// wrapTable builds a Value that takes ownership of t's existing
// reference (no AddRef). Callers that want the tree to hold its own ref
// independent of their own handle must AddRef explicitly before or after.
func wrapTable(t *Table) Value { return Value{kind: TableKind, table: t} }

// wrapArray is wrapTable's Array counterpart.
func wrapArray(a *Array) Value { return Value{kind: ArrayKind, array: a} }

// Table is the ref-counted container from spec.md §4.5/§9. Release
// cascades: dropping the last reference releases the underlying
// htable.Table, whose per-entry destructor releases nested
// tables/arrays and lets Go's GC reclaim owned strings.
type Table struct {
	refs     int32
	values   *htable.Table[Value]
	isInline bool
}

// NewTable creates a Table with refs=1, owned by the caller.
func NewTable() *Table {
	t := &Table{refs: 1}
	t.values = htable.New[Value](t.releaseChild)
	return t
}

func (t *Table) releaseChild(v Value) {
	switch v.kind {
	case TableKind:
		v.table.Release()
	case ArrayKind:
		v.array.Release()
	}
}

// AddRef increments the reference count and returns t, or nil if t is
// already dead (refs <= 0).
func (t *Table) AddRef() *Table {
	if t == nil || t.refs <= 0 {
		return nil
	}
	t.refs++
	return t
}

// Release decrements the reference count, tearing down storage at zero,
// and returns the resulting count.
func (t *Table) Release() int32 {
	if t == nil {
		return 0
	}
	t.refs--
	if t.refs <= 0 && t.values != nil {
		t.values.Release()
		t.values = nil
	}
	return t.refs
}

// Refs reports the current reference count (test/debug use).
func (t *Table) Refs() int32 {
	if t == nil {
		return 0
	}
	return t.refs
}

// IsInline reports whether this table was written with `{...}` syntax.
// celes never produces inline tables (spec.md Non-goals), so this is
// always false for parser output; it exists for API parity with the
// original data model.
func (t *Table) IsInline() bool {
	return t != nil && t.isInline
}

// insert stores v under key without first-writer-wins enforcement; the
// parser enforces that at a higher layer (spec.md §4.6.5) before
// calling insert.
func (t *Table) insert(key string, v Value) {
	if t == nil || t.values == nil {
		return
	}
	t.values.Set(key, v)
}

// Set stores v under key unconditionally, overwriting any existing
// value. Unlike the parser's own assignment path, this does not enforce
// first-writer-wins; it exists for programmatic tree construction (e.g.
// the build cache rehydrating a serialized snapshot).
func (t *Table) Set(key string, v Value) {
	t.insert(key, v)
}

// Get returns the value stored at key and whether it exists.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil || t.values == nil {
		return Value{}, false
	}
	return t.values.Get(key)
}

// PairCount returns the number of entries in t.
func (t *Table) PairCount() int {
	if t == nil || t.values == nil {
		return 0
	}
	return t.values.Len()
}

// Pair returns the i-th entry of t for 0 <= i < PairCount(), counting
// occupied buckets in bucket enumeration order (spec.md §4.4), not
// insertion order. ok is false when i is out of range.
func (t *Table) Pair(i int) (string, Value, bool) {
	if t == nil || t.values == nil || i < 0 {
		return "", Value{}, false
	}
	for b := 0; b < t.values.Cap(); b++ {
		key, v, ok := t.values.GetIdx(b)
		if !ok {
			continue
		}
		if i == 0 {
			return key, v, true
		}
		i--
	}
	return "", Value{}, false
}

// GetString returns the string at key, or "" if absent or not a string.
func (t *Table) GetString(key string) string {
	v, ok := t.Get(key)
	if !ok || v.kind != StringKind {
		return ""
	}
	return v.str
}

// GetInt returns the integer at key, or 0 if absent or not an integer.
func (t *Table) GetInt(key string) int64 {
	v, ok := t.Get(key)
	if !ok || v.kind != IntegerKind {
		return 0
	}
	return v.i
}

// GetFloat returns the real at key, or 0.0 if absent or not a real.
func (t *Table) GetFloat(key string) float64 {
	v, ok := t.Get(key)
	if !ok || v.kind != RealKind {
		return 0
	}
	return v.f
}

// GetBool returns the boolean at key, or false if absent or not a bool.
func (t *Table) GetBool(key string) bool {
	v, ok := t.Get(key)
	if !ok || v.kind != BooleanKind {
		return false
	}
	return v.b
}

// GetTable returns the sub-table at key, or nil if absent or not a table.
func (t *Table) GetTable(key string) *Table {
	v, ok := t.Get(key)
	if !ok || v.kind != TableKind {
		return nil
	}
	return v.table
}

// GetArray returns the array at key, or nil if absent or not an array.
func (t *Table) GetArray(key string) *Array {
	v, ok := t.Get(key)
	if !ok || v.kind != ArrayKind {
		return nil
	}
	return v.array
}

// GetNested resolves pathTable in t, then key within that sub-table: the
// two-level helper from spec.md §6. It returns the zero Value and false
// if either level is missing, rather than dereferencing a nil
// intermediate (spec.md §9 Open Question 3).
func (t *Table) GetNested(pathTable, key string) (Value, bool) {
	sub := t.GetTable(pathTable)
	if sub == nil {
		return Value{}, false
	}
	return sub.Get(key)
}

// Array is the ref-counted ordered sequence from spec.md §4.5/§9.
type Array struct {
	refs   int32
	values []Value
}

// NewArray creates an Array with refs=1, owned by the caller.
func NewArray() *Array {
	return &Array{refs: 1}
}

// AddRef increments the reference count and returns a, or nil if a is
// already dead.
func (a *Array) AddRef() *Array {
	if a == nil || a.refs <= 0 {
		return nil
	}
	a.refs++
	return a
}

// Release decrements the reference count, releasing every element's
// nested reference at zero, and returns the resulting count.
func (a *Array) Release() int32 {
	if a == nil {
		return 0
	}
	a.refs--
	if a.refs <= 0 && a.values != nil {
		for _, v := range a.values {
			switch v.kind {
			case TableKind:
				v.table.Release()
			case ArrayKind:
				v.array.Release()
			}
		}
		a.values = nil
	}
	return a.refs
}

// Refs reports the current reference count (test/debug use).
func (a *Array) Refs() int32 {
	if a == nil {
		return 0
	}
	return a.refs
}

// append adds v to the end of a, in order.
func (a *Array) append(v Value) {
	a.values = append(a.values, v)
}

// Append is the exported form of append, for callers outside this
// package constructing a tree directly (e.g. the build cache).
func (a *Array) Append(v Value) {
	a.append(v)
}

// Count returns the number of elements in a.
func (a *Array) Count() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

// Get returns element i, or the zero (Invalid) Value if out of range.
func (a *Array) Get(i int) Value {
	if a == nil || i < 0 || i >= len(a.values) {
		return Value{}
	}
	return a.values[i]
}

// GetString returns element i's string, or "" if out of range or not a
// string.
func (a *Array) GetString(i int) string {
	v := a.Get(i)
	if v.kind != StringKind {
		return ""
	}
	return v.str
}

// GetInt returns element i's integer, or 0 if out of range or not an
// integer.
func (a *Array) GetInt(i int) int64 {
	v := a.Get(i)
	if v.kind != IntegerKind {
		return 0
	}
	return v.i
}

// GetFloat returns element i's real, or 0.0 if out of range or not a
// real.
func (a *Array) GetFloat(i int) float64 {
	v := a.Get(i)
	if v.kind != RealKind {
		return 0
	}
	return v.f
}

// GetBool returns element i's boolean, or false if out of range or not
// a bool.
func (a *Array) GetBool(i int) bool {
	v := a.Get(i)
	if v.kind != BooleanKind {
		return false
	}
	return v.b
}

// GetTable returns element i's table, or nil if out of range or not a
// table.
func (a *Array) GetTable(i int) *Table {
	v := a.Get(i)
	if v.kind != TableKind {
		return nil
	}
	return v.table
}
