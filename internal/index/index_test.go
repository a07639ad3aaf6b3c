package index

import "testing"

func TestSetGetRemove(t *testing.T) {
	idx := New()

	if _, ok := idx.Get("a"); ok {
		t.Fatalf("Get on empty index found a value")
	}

	p1 := LogPointer{Gen: 1, Offset: 0, Length: 10}
	if _, existed := idx.Set("a", p1); existed {
		t.Fatalf("Set reported existing pointer on first insert")
	}

	got, ok := idx.Get("a")
	if !ok || got != p1 {
		t.Fatalf("Get = %+v, %v, want %+v, true", got, ok, p1)
	}

	p2 := LogPointer{Gen: 2, Offset: 20, Length: 5}
	old, existed := idx.Set("a", p2)
	if !existed || old != p1 {
		t.Fatalf("Set overwrite = %+v, %v, want %+v, true", old, existed, p1)
	}

	removed, ok := idx.Remove("a")
	if !ok || removed != p2 {
		t.Fatalf("Remove = %+v, %v, want %+v, true", removed, ok, p2)
	}

	if _, ok := idx.Get("a"); ok {
		t.Fatalf("Get after Remove still found a value")
	}
}

func TestIter_SortedByKey(t *testing.T) {
	idx := New()
	idx.Set("charlie", LogPointer{Gen: 1})
	idx.Set("alpha", LogPointer{Gen: 1})
	idx.Set("bravo", LogPointer{Gen: 1})

	entries := idx.Iter()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, w := range want {
		if entries[i].Key != w {
			t.Fatalf("entries[%d].Key = %q, want %q", i, entries[i].Key, w)
		}
	}
}

func TestCompareAndSet(t *testing.T) {
	idx := New()
	p1 := LogPointer{Gen: 1, Offset: 0, Length: 10}
	idx.Set("a", p1)

	p2 := LogPointer{Gen: 2, Offset: 0, Length: 10}
	if !idx.CompareAndSet("a", p1, p2) {
		t.Fatalf("CompareAndSet with matching old pointer failed")
	}
	got, _ := idx.Get("a")
	if got != p2 {
		t.Fatalf("Get after CompareAndSet = %+v, want %+v", got, p2)
	}

	// Stale old pointer must not apply.
	if idx.CompareAndSet("a", p1, LogPointer{Gen: 3}) {
		t.Fatalf("CompareAndSet applied with stale old pointer")
	}

	// Absent key must not apply.
	if idx.CompareAndSet("missing", p1, p2) {
		t.Fatalf("CompareAndSet applied for an absent key")
	}
}

func TestLen(t *testing.T) {
	idx := New()
	if idx.Len() != 0 {
		t.Fatalf("Len = %d, want 0", idx.Len())
	}
	idx.Set("a", LogPointer{Gen: 1})
	idx.Set("b", LogPointer{Gen: 1})
	if idx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", idx.Len())
	}
	idx.Remove("a")
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
}
