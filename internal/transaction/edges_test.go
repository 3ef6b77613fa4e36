package transaction

import (
	"testing"

	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
)

func expectViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if _, ok := recover().(*invariant.Violation); !ok {
			t.Fatalf("expected invariant violation")
		}
	}()
	fn()
}

// tagged returns n characters, those in [from,to) carrying keys.
func tagged(n, from, to int, keys ...string) []*model.CharacterMetadata {
	out := model.RepeatCharacter(model.EmptyCharacter, n)
	for i := from; i < to; i++ {
		out[i] = model.NewCharacterMetadata(model.StyleSet{}, out[i].Entity().Union(model.NewEntitySet(keys...)))
	}
	return out
}

func stateWith(em *model.EntityMap, blocks ...*model.ContentBlock) *model.ContentState {
	return model.CreateFromBlockArray(blocks, em)
}

func oneEntity(m model.Mutability) (*model.EntityMap, string) {
	return model.NewEntityMap().Create("TOKEN", m, nil)
}

func keysAt(b *model.ContentBlock) [][]string {
	out := make([][]string, b.Length())
	for i := range out {
		out[i] = b.EntityAt(i).Items()
	}
	return out
}

func TestRemoveImmutableRunAtomically(t *testing.T) {
	em, key := oneEntity(model.Immutable)
	b := model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcdefgh", Characters: tagged(8, 0, 6, key)})
	cs := stateWith(em, b)

	out := RemoveEntitiesAtEdges(cs, model.CollapsedAt("a", 1))
	nb := out.BlockForKey("a")
	for i := 0; i < 8; i++ {
		if nb.EntityAt(i).Has(key) {
			t.Fatalf("offset %d still carries %s: %v", i, key, keysAt(nb))
		}
	}
	if out.SelectionAfter() != model.CollapsedAt("a", 1) {
		t.Fatalf("selectionAfter = %s", out.SelectionAfter())
	}
	if !b.EntityAt(0).Has(key) {
		t.Fatalf("input block mutated")
	}
}

func TestRemoveSegmented(t *testing.T) {
	em, key := oneEntity(model.Segmented)
	cs := stateWith(em, model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcd", Characters: tagged(4, 0, 4, key)}))
	out := RemoveEntitiesAtEdges(cs, model.Range("a", 0, "a", 2))
	if !out.BlockForKey("a").EntityAt(0).IsEmpty() {
		t.Fatalf("segmented entity cut by the end edge should be removed")
	}
}

func TestMutableEntitiesSurviveEdges(t *testing.T) {
	for _, m := range []model.Mutability{model.Mutable, model.MutableInterior} {
		em, key := oneEntity(m)
		b := model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcdef", Characters: tagged(6, 0, 6, key)})
		cs := stateWith(em, b)
		for start := 0; start <= 6; start++ {
			for end := start; end <= 6; end++ {
				out := RemoveEntitiesAtEdges(cs, model.Range("a", start, "a", end))
				if out.BlockForKey("a") != b {
					t.Fatalf("%s entity touched at %d..%d", m, start, end)
				}
			}
		}
	}
}

func TestNoChangeSharesEverything(t *testing.T) {
	em, key := oneEntity(model.Immutable)
	a := model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcd", Characters: tagged(4, 0, 2, key)})
	c := model.NewContentBlock(model.BlockConfig{Key: "c", Text: "xyz"})
	cs := stateWith(em, a, c)

	// Boundaries at the run's edges do not cut it.
	for _, sel := range []model.SelectionState{model.CollapsedAt("a", 0), model.CollapsedAt("a", 2), model.Range("a", 2, "c", 1)} {
		out := RemoveEntitiesAtEdges(cs, sel)
		if out.BlockMap() != cs.BlockMap() || out.EntityMap() != cs.EntityMap() {
			t.Fatalf("%s: expected shared maps", sel)
		}
		if out.SelectionAfter() != sel {
			t.Fatalf("%s: selectionAfter not updated", sel)
		}
	}
}

func TestEdgesAcrossBlocks(t *testing.T) {
	em := model.NewEntityMap()
	em, k1 := em.Create("TOKEN", model.Immutable, nil)
	em, k2 := em.Create("TOKEN", model.Immutable, nil)
	a := model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcd", Characters: tagged(4, 1, 4, k1)})
	mid := model.NewContentBlock(model.BlockConfig{Key: "m", Text: "mid"})
	c := model.NewContentBlock(model.BlockConfig{Key: "c", Text: "wxyz", Characters: tagged(4, 0, 3, k2)})
	cs := stateWith(em, a, mid, c)

	out := RemoveEntitiesAtEdges(cs, model.Range("a", 2, "c", 1))
	if !out.BlockForKey("a").EntityAt(1).IsEmpty() || !out.BlockForKey("a").EntityAt(3).IsEmpty() {
		t.Fatalf("start edge entity left behind: %v", keysAt(out.BlockForKey("a")))
	}
	if !out.BlockForKey("c").EntityAt(2).IsEmpty() {
		t.Fatalf("end edge entity left behind: %v", keysAt(out.BlockForKey("c")))
	}
	if out.BlockForKey("m") != mid {
		t.Fatalf("untouched block not shared")
	}
}

func TestEdgesSameBlockBothCut(t *testing.T) {
	em := model.NewEntityMap()
	em, k1 := em.Create("TOKEN", model.Immutable, nil)
	em, k2 := em.Create("TOKEN", model.Mutable, nil)
	em, k3 := em.Create("TOKEN", model.Segmented, nil)
	chars := tagged(10, 0, 3, k1)
	for i := 3; i < 10; i++ {
		chars[i] = model.NewCharacterMetadata(model.StyleSet{}, model.NewEntitySet(k2))
	}
	for i := 6; i < 9; i++ {
		chars[i] = model.NewCharacterMetadata(model.StyleSet{}, model.NewEntitySet(k3))
	}
	cs := stateWith(em, model.NewContentBlock(model.BlockConfig{Key: "a", Text: "0123456789", Characters: chars}))

	out := RemoveEntitiesAtEdges(cs, model.Range("a", 1, "a", 7))
	b := out.BlockForKey("a")
	for i := 0; i < 10; i++ {
		if b.EntityAt(i).Has(k1) || b.EntityAt(i).Has(k3) {
			t.Fatalf("cut entity survived at %d: %v", i, keysAt(b))
		}
	}
	if !b.EntityAt(4).Has(k2) || !b.EntityAt(9).Has(k2) {
		t.Fatalf("mutable entity removed: %v", keysAt(b))
	}
}

func TestEdgeRunIgnoresOverlappingEntities(t *testing.T) {
	// Only the cut key's own run is stripped; an overlapping entity keeps
	// its characters.
	em := model.NewEntityMap()
	em, imm := em.Create("TOKEN", model.Immutable, nil)
	em, mut := em.Create("TOKEN", model.Mutable, nil)
	chars := tagged(6, 0, 3, imm)
	for i := 2; i < 5; i++ {
		chars[i] = model.NewCharacterMetadata(model.StyleSet{}, chars[i].Entity().Add(mut))
	}
	cs := stateWith(em, model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcdef", Characters: chars}))
	b := RemoveEntitiesAtEdges(cs, model.CollapsedAt("a", 1)).BlockForKey("a")
	for i := 0; i < 6; i++ {
		if b.EntityAt(i).Has(imm) {
			t.Fatalf("immutable entity left at %d: %v", i, keysAt(b))
		}
	}
	if !b.EntityAt(2).Has(mut) || !b.EntityAt(3).Has(mut) {
		t.Fatalf("mutable entity lost: %v", keysAt(b))
	}
}

func TestEdgesUnknownBlock(t *testing.T) {
	cs := model.CreateFromText("x")
	expectViolation(t, func() { RemoveEntitiesAtEdges(cs, model.CollapsedAt("nope", 0)) })
}
