package idgen

import "testing"

func TestNextIsUnique(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate exchange ID %d on iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestIndependentGeneratorsDiffer(t *testing.T) {
	g1, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g2, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if g1.Next() == g2.Next() {
		t.Fatal("two independently seeded generators produced the same first ID")
	}
}
