package htable

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New[int](nil)
	tbl.Set("a", 1)
	tbl.Set("b", 2)

	if v, ok := tbl.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if v, ok := tbl.Get("b"); !ok || v != 2 {
		t.Fatalf("b = %v, %v", v, ok)
	}
	if _, ok := tbl.Get("c"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestDestructorCalledOnOverwriteAndRelease(t *testing.T) {
	var destroyed []int
	tbl := New[int](func(v int) { destroyed = append(destroyed, v) })

	tbl.Set("k", 1)
	tbl.Set("k", 2) // same key -> same hash -> overwrite destroys old value
	if len(destroyed) != 1 || destroyed[0] != 1 {
		t.Fatalf("destroyed = %v", destroyed)
	}

	tbl.Release()
	if len(destroyed) != 2 || destroyed[1] != 2 {
		t.Fatalf("destroyed after release = %v", destroyed)
	}
}

func TestGrowPreservesEntries(t *testing.T) {
	tbl := New[int](nil)
	n := 64
	for i := 0; i < n; i++ {
		tbl.Set(keyFor(i), i)
	}
	if tbl.Len() != n {
		t.Fatalf("len = %d, want %d", tbl.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(keyFor(i))
		if !ok || v != i {
			t.Fatalf("key %d: got %v, %v", i, v, ok)
		}
	}
	if tbl.Cap() <= initialCapacity {
		t.Fatalf("expected growth beyond initial capacity, cap=%d", tbl.Cap())
	}
}

func TestGetIdxEnumeratesBucketOrder(t *testing.T) {
	tbl := New[int](nil)
	tbl.Set("x", 1)
	tbl.Set("y", 2)

	seen := map[string]int{}
	for i := 0; i < tbl.Cap(); i++ {
		key, val, ok := tbl.GetIdx(i)
		if ok {
			seen[key] = val
		}
	}
	if seen["x"] != 1 || seen["y"] != 2 {
		t.Fatalf("seen = %v", seen)
	}
}

func TestHashOnlyCollisionOverwritesDifferentKey(t *testing.T) {
	// Documents the preserved defect from spec.md §9: two distinct keys
	// that hash identically are treated as the same bucket.
	tbl := New[int](nil)
	k1, k2 := collidingKeys()
	tbl.Set(k1, 10)
	tbl.Set(k2, 20)

	v, ok := tbl.Get(k1)
	if !ok || v != 20 {
		t.Fatalf("expected k1 lookup to observe k2's value due to hash collision, got %v, %v", v, ok)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected collision to overwrite rather than grow occupancy, len=%d", tbl.Len())
	}
}

func keyFor(i int) string {
	b := []byte{'k', '-'}
	for i > 0 {
		b = append(b, byte('0'+i%10))
		i /= 10
	}
	return string(b)
}

// collidingKeys returns two distinct strings that share a polyHash value
// under the spec's (base=29791, mod=1e9+7) rolling hash, found offline by
// random search and pinned here as fixed test data.
func collidingKeys() (string, string) {
	const k1, k2 = "hcl7@+", ">1ix|H"
	if polyHash(k1) != polyHash(k2) {
		panic("fixture keys no longer collide; regenerate with the offline search script")
	}
	return k1, k2
}
