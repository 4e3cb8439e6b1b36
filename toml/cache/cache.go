// Package cache implements the optional build cache from SPEC_FULL.md
// §6.3: a parsed value tree is serialized to a sibling ".celescache" file
// keyed by a content hash of the source bytes, so re-running the CLI
// against an unchanged file can skip re-parsing.
//
// Serialization uses CBOR's canonical encoding mode, grounded on the
// teacher's binary plan format (which serializes its own tree with
// canonical CBOR for deterministic output); the content hash uses
// BLAKE2b-256, grounded on the same teacher component hashing its
// serialized output.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/celes/diag"
	"github.com/opal-lang/celes/toml"
)

// entry is the on-disk cache record: the source hash it was built from,
// plus a flattened snapshot of the parsed table.
type entry struct {
	SourceHash [blake2b.Size256]byte
	Snapshot   snapshot
}

// snapshot is a CBOR-friendly projection of a toml.Table: the value tree
// has unexported fields and ref-counting that have no business being
// serialized, so cache entries carry a plain nested-map rendering
// instead.
type snapshot struct {
	Pairs map[string]snapshotValue
}

type snapshotValue struct {
	Kind  string
	Str   string          `cbor:",omitempty"`
	Int   int64           `cbor:",omitempty"`
	Float float64         `cbor:",omitempty"`
	Bool  bool            `cbor:",omitempty"`
	Table *snapshot       `cbor:",omitempty"`
	Array []snapshotValue `cbor:",omitempty"`
}

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err) // fixed, valid option set; cannot fail at runtime
	}
	return m
}()

// PathFor returns the sibling cache file path for sourcePath (SPEC_FULL §6.3).
func PathFor(sourcePath string) string {
	return sourcePath + ".celescache"
}

// ContentHash returns the BLAKE2b-256 hash of src.
func ContentHash(src []byte) [blake2b.Size256]byte {
	return blake2b.Sum256(src)
}

// Load reads and decodes the cache file at PathFor(sourcePath), returning
// ok=false if it is missing, unreadable, malformed, or keyed by a
// different source hash than wantHash.
func Load(sourcePath string, wantHash [blake2b.Size256]byte) (*toml.Table, bool) {
	raw, err := os.ReadFile(PathFor(sourcePath))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := cbor.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.SourceHash != wantHash {
		return nil, false
	}

	return rebuildTable(e.Snapshot), true
}

// Store snapshots root and writes it, keyed by hash, to PathFor(sourcePath).
func Store(sourcePath string, hash [blake2b.Size256]byte, root *toml.Table) error {
	e := entry{SourceHash: hash, Snapshot: snapshotTable(root)}

	raw, err := encMode.Marshal(e)
	if err != nil {
		return diag.Wrap(diag.ErrCache, "could not encode cache entry", err)
	}

	dst := PathFor(sourcePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return diag.Wrap(diag.ErrCache, "could not create cache directory", err)
	}
	if err := os.WriteFile(dst, raw, 0o644); err != nil {
		return diag.Wrap(diag.ErrCache, fmt.Sprintf("could not write cache file %s", dst), err)
	}
	return nil
}

func snapshotTable(t *toml.Table) snapshot {
	s := snapshot{Pairs: map[string]snapshotValue{}}
	if t == nil {
		return s
	}
	for i := 0; i < t.PairCount(); i++ {
		key, _, ok := t.Pair(i)
		if !ok {
			continue
		}
		v, _ := t.Get(key)
		s.Pairs[key] = snapshotFromValue(v)
	}
	return s
}

func snapshotFromValue(v toml.Value) snapshotValue {
	switch v.Kind() {
	case toml.StringKind:
		s, _ := toml.String(v)
		return snapshotValue{Kind: "string", Str: s}
	case toml.IntegerKind:
		i, _ := toml.Integer(v)
		return snapshotValue{Kind: "integer", Int: i}
	case toml.RealKind:
		f, _ := toml.Real(v)
		return snapshotValue{Kind: "real", Float: f}
	case toml.BooleanKind:
		b, _ := toml.Boolean(v)
		return snapshotValue{Kind: "bool", Bool: b}
	case toml.TableKind:
		sub := snapshotTable(toml.TableOf(v))
		return snapshotValue{Kind: "table", Table: &sub}
	case toml.ArrayKind:
		arr := toml.ArrayOf(v)
		out := make([]snapshotValue, 0, arr.Count())
		for i := 0; i < arr.Count(); i++ {
			out = append(out, snapshotFromValue(arr.Get(i)))
		}
		return snapshotValue{Kind: "array", Array: out}
	default:
		return snapshotValue{Kind: "invalid"}
	}
}

func rebuildTable(s snapshot) *toml.Table {
	t := toml.NewTable()
	for key, sv := range s.Pairs {
		setRebuilt(t, key, sv)
	}
	return t
}

func setRebuilt(t *toml.Table, key string, sv snapshotValue) {
	switch sv.Kind {
	case "string":
		t.Set(key, toml.StringValue(sv.Str))
	case "integer":
		t.Set(key, toml.IntegerValue(sv.Int))
	case "real":
		t.Set(key, toml.RealValue(sv.Float))
	case "bool":
		t.Set(key, toml.BooleanValue(sv.Bool))
	case "table":
		var sub snapshot
		if sv.Table != nil {
			sub = *sv.Table
		}
		t.Set(key, toml.WrapTableValue(rebuildTable(sub)))
	case "array":
		arr := toml.NewArray()
		for _, elem := range sv.Array {
			arr.Append(rebuildValue(elem))
		}
		t.Set(key, toml.WrapArrayValue(arr))
	}
}

func rebuildValue(sv snapshotValue) toml.Value {
	switch sv.Kind {
	case "string":
		return toml.StringValue(sv.Str)
	case "integer":
		return toml.IntegerValue(sv.Int)
	case "real":
		return toml.RealValue(sv.Float)
	case "bool":
		return toml.BooleanValue(sv.Bool)
	case "table":
		var sub snapshot
		if sv.Table != nil {
			sub = *sv.Table
		}
		return toml.WrapTableValue(rebuildTable(sub))
	case "array":
		arr := toml.NewArray()
		for _, elem := range sv.Array {
			arr.Append(rebuildValue(elem))
		}
		return toml.WrapArrayValue(arr)
	default:
		return toml.Value{}
	}
}
