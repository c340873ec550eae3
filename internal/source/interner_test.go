package source

import (
	"sync"
	"testing"
)

func TestInternerBasic(t *testing.T) {
	interner := NewInterner()

	if s, ok := interner.Lookup(NoStringID); !ok || s != "" {
		t.Fatalf("NoStringID must map to the empty string, got %q ok=%v", s, ok)
	}

	id1 := interner.Intern("Collection")
	if id1 == NoStringID {
		t.Fatalf("non-empty string interned as NoStringID")
	}
	if id2 := interner.Intern("Collection"); id1 != id2 {
		t.Fatalf("same string got different IDs: %d != %d", id1, id2)
	}
	if s, ok := interner.Lookup(id1); !ok || s != "Collection" {
		t.Fatalf("lookup returned %q ok=%v", s, ok)
	}
	if id3 := interner.Intern("Element"); id3 == id1 {
		t.Fatalf("different strings share an ID")
	}
	if interner.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", interner.Len())
	}
}

func TestInternerUnknownID(t *testing.T) {
	interner := NewInterner()
	if _, ok := interner.Lookup(StringID(42)); ok {
		t.Fatalf("unknown ID must not resolve")
	}
	if interner.Has(StringID(42)) {
		t.Fatalf("Has reported an unknown ID")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustLookup should panic on unknown ID")
		}
	}()
	interner.MustLookup(StringID(42))
}

func TestInternerConcurrentIntern(t *testing.T) {
	interner := NewInterner()
	names := []string{"Array", "Dictionary", "Element", "Key", "Value", "Index"}

	var wg sync.WaitGroup
	results := make([][]StringID, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids := make([]StringID, len(names))
			for i, name := range names {
				ids[i] = interner.Intern(name)
			}
			results[g] = ids
		}(g)
	}
	wg.Wait()

	for g := 1; g < len(results); g++ {
		for i := range names {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d got ID %d for %q, want %d", g, results[g][i], names[i], results[0][i])
			}
		}
	}
	if interner.Len() != len(names)+1 {
		t.Fatalf("expected %d entries, got %d", len(names)+1, interner.Len())
	}
}
