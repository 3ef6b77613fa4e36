package entity

import (
	"testing"

	"github.com/kobzarvs/qdraft/internal/model"
)

const linkKey = "123"

func chars(n int, key string, from, to int) []*model.CharacterMetadata {
	out := model.RepeatCharacter(model.EmptyCharacter, n)
	for i := from; i < to; i++ {
		out[i] = model.NewCharacterMetadata(model.NewStyleSet("BOLD"), model.NewEntitySet(key))
	}
	return out
}

// sampleState has "Bravo" fully covered by entity 123 and "Delta!" covered
// on offsets 1..4.
func sampleState(m model.Mutability) *model.ContentState {
	em := model.NewEntityMap().Put(linkKey, model.NewEntity("LINK", m, nil))
	return model.CreateFromBlockArray([]*model.ContentBlock{
		model.NewContentBlock(model.BlockConfig{Key: "a", Text: "Alpha"}),
		model.NewContentBlock(model.BlockConfig{Key: "b", Text: "Bravo", Type: "unordered-list-item", Characters: chars(5, linkKey, 0, 5)}),
		model.NewContentBlock(model.BlockConfig{Key: "c", Text: "Charlie"}),
		model.NewContentBlock(model.BlockConfig{Key: "d", Text: "Delta!", Characters: chars(6, linkKey, 1, 5)}),
	}, em)
}

// crossBlockState links the last character of "Charlie" and the first of
// "Delta" with one entity.
func crossBlockState(m model.Mutability) *model.ContentState {
	em := model.NewEntityMap().Put(linkKey, model.NewEntity("LINK", m, nil))
	return model.CreateFromBlockArray([]*model.ContentBlock{
		model.NewContentBlock(model.BlockConfig{Key: "c", Text: "Charlie", Characters: chars(7, linkKey, 6, 7)}),
		model.NewContentBlock(model.BlockConfig{Key: "d", Text: "Delta", Characters: chars(5, linkKey, 0, 1)}),
	}, em)
}

func expectKeys(t *testing.T, got model.EntitySet, want ...string) {
	t.Helper()
	if !got.Equal(model.NewEntitySet(want...)) {
		t.Fatalf("keys = %v, want %v", got.Items(), want)
	}
}

func TestCollapsedAtDocumentStart(t *testing.T) {
	cs := sampleState(model.Mutable)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("a", 0)))
}

func TestCollapsedAtBlockStartLooksBack(t *testing.T) {
	// The caret at c:0 sits after "Bravo", but the mutable check is skipped
	// across the block boundary.
	cs := sampleState(model.Mutable)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("c", 0)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("b", 0)))
}

func TestCollapsedInsideMutable(t *testing.T) {
	cs := sampleState(model.Mutable)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("b", 2)), linkKey)
}

func TestCollapsedAtRunEnd(t *testing.T) {
	cs := sampleState(model.Mutable)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("b", 5)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 5)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 1)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 3)), linkKey)
}

func TestCollapsedInsideMutableInterior(t *testing.T) {
	cs := sampleState(model.MutableInterior)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("b", 2)), linkKey)
}

func TestMutableInteriorOnEdge(t *testing.T) {
	cs := sampleState(model.MutableInterior)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 1)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 5)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 3)), linkKey)
}

func TestMutableInteriorAcrossBlocks(t *testing.T) {
	cs := crossBlockState(model.MutableInterior)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("d", 0)), linkKey)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("c", 7)), linkKey)
	// A plain mutable entity does not continue across the boundary.
	expectKeys(t, KeysForSelection(crossBlockState(model.Mutable), model.CollapsedAt("d", 0)))
}

func TestMutableInteriorAtLastBlockEnd(t *testing.T) {
	em := model.NewEntityMap().Put(linkKey, model.NewEntity("LINK", model.MutableInterior, nil))
	cs := model.CreateFromBlockArray([]*model.ContentBlock{
		model.NewContentBlock(model.BlockConfig{Key: "z", Text: "ab", Characters: chars(2, linkKey, 0, 2)}),
	}, em)
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("z", 2)))
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("z", 1)), linkKey)
}

func TestCollapsedNeverReturnsImmutableOrSegmented(t *testing.T) {
	for _, m := range []model.Mutability{model.Immutable, model.Segmented} {
		cs := sampleState(m)
		expectKeys(t, KeysForSelection(cs, model.CollapsedAt("b", 2)))
	}
}

func TestNonCollapsed(t *testing.T) {
	sel := model.Range("b", 2, "c", 2)
	expectKeys(t, KeysForSelection(sampleState(model.Mutable), sel), linkKey)
	expectKeys(t, KeysForSelection(sampleState(model.MutableInterior), sel), linkKey)
	expectKeys(t, KeysForSelection(sampleState(model.Immutable), sel))
	expectKeys(t, KeysForSelection(sampleState(model.Segmented), sel))
}

func TestNonCollapsedStartAtBlockEnd(t *testing.T) {
	expectKeys(t, KeysForSelection(sampleState(model.Mutable), model.Range("b", 5, "c", 2)))
}

func TestNonCollapsedMutableInteriorNearBlockEnd(t *testing.T) {
	cs := crossBlockState(model.MutableInterior)
	expectKeys(t, KeysForSelection(cs, model.Range("c", 6, "d", 3)), linkKey)
}

func TestBackwardSelectionUsesStart(t *testing.T) {
	cs := sampleState(model.Mutable)
	sel := cs.NormalizeSelection(model.SelectionState{AnchorKey: "c", AnchorOffset: 2, FocusKey: "b", FocusOffset: 2})
	expectKeys(t, KeysForSelection(cs, sel), linkKey)
}

func TestMixedEntitiesNeverLeakImmutable(t *testing.T) {
	em := model.NewEntityMap()
	muts := []model.Mutability{model.Mutable, model.Immutable, model.Segmented, model.MutableInterior}
	keys := make([]string, len(muts))
	for i, m := range muts {
		em, keys[i] = em.Create("E", m, nil)
	}
	all := model.NewCharacterMetadata(model.StyleSet{}, model.NewEntitySet(keys...))
	text := "abcdef"
	list := model.RepeatCharacter(all, len(text))
	list[0], list[5] = model.EmptyCharacter, model.EmptyCharacter
	cs := model.CreateFromBlockArray([]*model.ContentBlock{
		model.NewContentBlock(model.BlockConfig{Key: "x", Text: text, Characters: list}),
		model.NewContentBlock(model.BlockConfig{Key: "y", Text: text, Characters: list}),
	}, em)

	for _, bk := range []string{"x", "y"} {
		for start := 0; start <= len(text); start++ {
			for end := start; end <= len(text); end++ {
				got := KeysForSelection(cs, model.Range(bk, start, bk, end))
				if got.Has(keys[1]) || got.Has(keys[2]) {
					t.Fatalf("%s %d..%d returned %v", bk, start, end, got.Items())
				}
			}
		}
	}
	expectKeys(t, KeysForSelection(cs, model.CollapsedAt("x", 3)), keys[0], keys[3])
}
