package model

import "testing"

func TestOrderedSetBasics(t *testing.T) {
	s := NewEntitySet("1", "2", "1")
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if got := s.Items(); got[0] != "1" || got[1] != "2" {
		t.Fatalf("Items = %v", got)
	}
	if s.Add("1").Len() != 2 {
		t.Fatalf("Add of existing member changed the set")
	}
	if !s.Remove("1").Equal(NewEntitySet("2")) {
		t.Fatalf("Remove = %v", s.Remove("1").Items())
	}
	var zero EntitySet
	if !zero.IsEmpty() || zero.Items() != nil {
		t.Fatalf("zero set should be empty")
	}
}

func TestOrderedSetAlgebra(t *testing.T) {
	a := NewEntitySet("1", "2", "3")
	b := NewEntitySet("3", "2", "9")

	if got := a.Intersect(b).Items(); len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Fatalf("Intersect = %v, want [2 3]", got)
	}
	if !a.Intersects(b) {
		t.Fatalf("Intersects = false")
	}
	if a.Intersects(NewEntitySet("7")) {
		t.Fatalf("Intersects with disjoint set = true")
	}
	if got := a.Union(b).Items(); len(got) != 4 || got[3] != "9" {
		t.Fatalf("Union = %v", got)
	}
	if !NewStyleSet("BOLD", "ITALIC").Equal(NewStyleSet("ITALIC", "BOLD")) {
		t.Fatalf("Equal should ignore order")
	}
}

func TestOrderedSetIsPersistent(t *testing.T) {
	a := NewEntitySet("1")
	b := a.Add("2")
	_ = b.Remove("1")
	if a.Len() != 1 || b.Len() != 2 {
		t.Fatalf("mutation leaked: a=%v b=%v", a.Items(), b.Items())
	}
}
