package transaction

import (
	"slices"
	"testing"

	"github.com/kobzarvs/qdraft/internal/model"
)

func plainState(texts ...string) *model.ContentState {
	keys := []string{"a", "b", "c", "d"}
	blocks := make([]*model.ContentBlock, len(texts))
	for i, t := range texts {
		blocks[i] = model.NewContentBlock(model.BlockConfig{Key: keys[i], Text: t})
	}
	return model.CreateFromBlockArray(blocks, nil)
}

func TestRemoveRangeSameBlock(t *testing.T) {
	cs := plainState("hello world", "next")
	out := RemoveRange(cs, model.Range("a", 5, "a", 11))
	if got := out.BlockForKey("a").Text(); got != "hello" {
		t.Fatalf("text = %q", got)
	}
	if out.SelectionAfter() != model.CollapsedAt("a", 5) {
		t.Fatalf("selectionAfter = %s", out.SelectionAfter())
	}
	if out.BlockForKey("b") != cs.BlockForKey("b") {
		t.Fatalf("untouched block not shared")
	}
}

func TestRemoveRangeAcrossBlocks(t *testing.T) {
	cs := plainState("alpha", "bravo", "charlie", "delta")
	out := RemoveRange(cs, model.Range("a", 2, "c", 4))
	if got := out.BlockMap().Keys(); !slices.Equal(got, []string{"a", "d"}) {
		t.Fatalf("keys = %v", got)
	}
	if got := out.BlockForKey("a").Text(); got != "allie" {
		t.Fatalf("joined text = %q", got)
	}
	if out.BlockForKey("a").Length() != 5 {
		t.Fatalf("characters not joined")
	}
}

func TestRemoveRangeCollapsed(t *testing.T) {
	cs := plainState("abc")
	out := RemoveRange(cs, model.CollapsedAt("a", 1))
	if out.BlockMap() != cs.BlockMap() {
		t.Fatalf("collapsed removal changed blocks")
	}
}

func TestRemoveRangeTrimsCutEntities(t *testing.T) {
	em, key := oneEntity(model.Immutable)
	cs := stateWith(em, model.NewContentBlock(model.BlockConfig{Key: "a", Text: "abcdef", Characters: tagged(6, 0, 4, key)}))
	b := RemoveRange(cs, model.Range("a", 2, "a", 5)).BlockForKey("a")
	if b.Text() != "abf" {
		t.Fatalf("text = %q", b.Text())
	}
	if !b.EntityAt(0).IsEmpty() || !b.EntityAt(1).IsEmpty() {
		t.Fatalf("cut immutable entity left on the head: %v", keysAt(b))
	}
}

func TestRemoveRangeRejectsTreeJoin(t *testing.T) {
	cs := model.CreateFromBlockArray([]*model.ContentBlock{
		model.NewContentBlock(model.BlockConfig{Key: "p", Children: []string{"x"}}),
		model.NewContentBlock(model.BlockConfig{Key: "x", Text: "x", Parent: "p"}),
	}, nil)
	expectViolation(t, func() { RemoveRange(cs, model.Range("p", 0, "x", 1)) })
}

func TestInsertText(t *testing.T) {
	cs := plainState("héllo")
	bold := model.NewStyleSet("BOLD")
	out := InsertText(cs, model.CollapsedAt("a", 1), "😀", bold, model.EntitySet{})
	b := out.BlockForKey("a")
	if b.Text() != "h😀éllo" || b.Length() != 7 {
		t.Fatalf("text = %q length %d", b.Text(), b.Length())
	}
	if !b.InlineStyleAt(1).Has("BOLD") || !b.InlineStyleAt(2).Has("BOLD") || b.InlineStyleAt(3).Has("BOLD") {
		t.Fatalf("style not applied to inserted units")
	}
	if out.SelectionAfter() != model.CollapsedAt("a", 3) {
		t.Fatalf("caret = %s", out.SelectionAfter())
	}
	if out.SelectionBefore() != model.CollapsedAt("a", 1) {
		t.Fatalf("selectionBefore = %s", out.SelectionBefore())
	}
}

func TestInsertTextReplacesSelection(t *testing.T) {
	cs := plainState("one", "two")
	out := InsertText(cs, model.Range("a", 1, "b", 2), "--", model.StyleSet{}, model.EntitySet{})
	if out.BlockMap().Len() != 1 || out.FirstBlock().Text() != "o--o" {
		t.Fatalf("text = %q", out.PlainText(""))
	}
	if out.SelectionAfter() != model.CollapsedAt("a", 3) {
		t.Fatalf("caret = %s", out.SelectionAfter())
	}
}

func TestInsertTextRejectsNewlines(t *testing.T) {
	expectViolation(t, func() {
		InsertText(plainState("x"), model.CollapsedAt("a", 0), "a\nb", model.StyleSet{}, model.EntitySet{})
	})
	expectViolation(t, func() {
		InsertText(plainState("x"), model.CollapsedAt("a", 0), "a", model.StyleSet{}, model.NewEntitySet("42"))
	})
}

func TestInsertTextWithCarry(t *testing.T) {
	em := model.NewEntityMap()
	em, link := em.Create("LINK", model.Mutable, nil)
	em, token := em.Create("TOKEN", model.Immutable, nil)
	chars := tagged(8, 0, 4, link)
	for i := 4; i < 8; i++ {
		chars[i] = model.NewCharacterMetadata(model.StyleSet{}, model.NewEntitySet(token))
	}
	cs := stateWith(em, model.NewContentBlock(model.BlockConfig{Key: "a", Text: "linktokn", Characters: chars}))

	inside := InsertTextWithCarry(cs, model.CollapsedAt("a", 2), "XY", model.StyleSet{}).BlockForKey("a")
	if inside.Text() != "liXYnktokn" || !inside.EntityAt(2).Has(link) || !inside.EntityAt(3).Has(link) {
		t.Fatalf("mutable link not carried: %q %v", inside.Text(), keysAt(inside))
	}

	atEnd := InsertTextWithCarry(cs, model.CollapsedAt("a", 4), "Z", model.StyleSet{}).BlockForKey("a")
	if !atEnd.EntityAt(4).IsEmpty() {
		t.Fatalf("link carried past its end: %v", keysAt(atEnd))
	}

	inToken := InsertTextWithCarry(cs, model.CollapsedAt("a", 6), "Q", model.StyleSet{}).BlockForKey("a")
	for i := 0; i < inToken.Length(); i++ {
		if inToken.EntityAt(i).Has(token) {
			t.Fatalf("typing inside an immutable entity must remove it: %v", keysAt(inToken))
		}
	}
}

func TestSplitBlock(t *testing.T) {
	cs := plainState("hello world")
	cs = cs.MergeBlocks(cs.BlockForKey("a").WithType("header-one"))
	out := SplitBlock(cs, model.CollapsedAt("a", 5))
	keys := out.BlockMap().Keys()
	if len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("keys = %v", keys)
	}
	tail := out.BlockForKey(keys[1])
	if out.BlockForKey("a").Text() != "hello" || tail.Text() != " world" || tail.Type() != "header-one" {
		t.Fatalf("split = %q / %q (%s)", out.BlockForKey("a").Text(), tail.Text(), tail.Type())
	}
	if out.SelectionAfter() != model.CollapsedAt(tail.Key(), 0) {
		t.Fatalf("caret = %s", out.SelectionAfter())
	}
}
