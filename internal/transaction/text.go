package transaction

import (
	"slices"
	"strings"

	"github.com/kobzarvs/qdraft/internal/entity"
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

// RemoveRange deletes the selected text, joining the start and end blocks
// when sel spans several. Entities cut by the edges are trimmed first.
// Joining blocks that are tree nodes is a contract violation.
func RemoveRange(cs *model.ContentState, sel model.SelectionState) *model.ContentState {
	if sel.IsCollapsed() {
		return cs.WithSelectionBefore(sel).WithSelectionAfter(sel)
	}
	trimmed := RemoveEntitiesAtEdges(cs, sel)
	return removeRangeFromContent(trimmed, sel).WithSelectionBefore(sel)
}

func removeRangeFromContent(cs *model.ContentState, sel model.SelectionState) *model.ContentState {
	startKey, startOffset := sel.StartKey(), sel.StartOffset()
	endKey, endOffset := sel.EndKey(), sel.EndOffset()
	startBlock := cs.BlockForKey(startKey)
	endBlock := cs.BlockForKey(endKey)
	invariant.Check(startBlock != nil && endBlock != nil, "selection %s names unknown blocks", sel)
	after := model.CollapsedAt(startKey, startOffset)

	if startKey == endKey {
		chars := startBlock.CharacterList()
		text := startBlock.Text()
		nb := startBlock.WithText(
			unicodeutil.SliceUnits(text, 0, startOffset)+unicodeutil.SliceUnits(text, endOffset, len(chars)),
			slices.Concat(chars[:startOffset], chars[endOffset:]),
		)
		return cs.MergeBlocks(nb).WithSelectionAfter(after)
	}

	var doomed []string
	inRange := false
	cs.BlockMap().Range(func(b *model.ContentBlock) bool {
		if inRange {
			invariant.Check(!b.HasTreeLinks(), "cannot join tree block %q", b.Key())
			doomed = append(doomed, b.Key())
		}
		if b.Key() == startKey {
			invariant.Check(!b.HasTreeLinks(), "cannot join tree block %q", b.Key())
			inRange = true
		}
		return b.Key() != endKey
	})

	startChars, endChars := startBlock.CharacterList(), endBlock.CharacterList()
	nb := startBlock.WithText(
		unicodeutil.SliceUnits(startBlock.Text(), 0, startOffset)+unicodeutil.SliceUnits(endBlock.Text(), endOffset, len(endChars)),
		slices.Concat(startChars[:startOffset], endChars[endOffset:]),
	)
	bm := cs.BlockMap().Delete(doomed...).Merge(nb)
	return cs.WithBlockMap(bm).WithSelectionAfter(after)
}

// InsertText replaces the selected range with text whose characters carry
// style and entities. The caret lands after the inserted text. Text must
// not contain line breaks; use SplitBlock for those.
func InsertText(cs *model.ContentState, sel model.SelectionState, text string, style model.StyleSet, entities model.EntitySet) *model.ContentState {
	invariant.Check(!strings.ContainsAny(text, "\r\n"), "inserted text must not contain line breaks")
	for _, key := range entities.Items() {
		invariant.Check(cs.EntityMap().Has(key), "unknown entity key %q", key)
	}
	trimmed := RemoveEntitiesAtEdges(cs, sel)
	cleared := trimmed
	if !sel.IsCollapsed() {
		cleared = removeRangeFromContent(trimmed, sel)
	}
	if text == "" {
		return cleared.WithSelectionBefore(sel)
	}

	at := cleared.SelectionAfter()
	b := cleared.BlockForKey(at.AnchorKey)
	offset := at.AnchorOffset
	n := unicodeutil.UTF16Len(text)
	chars := b.CharacterList()
	ch := model.NewCharacterMetadata(style, entities)
	nb := b.WithText(
		unicodeutil.SliceUnits(b.Text(), 0, offset)+text+unicodeutil.SliceUnits(b.Text(), offset, len(chars)),
		slices.Concat(chars[:offset], model.RepeatCharacter(ch, n), chars[offset:]),
	)
	caret := model.CollapsedAt(b.Key(), offset+n)
	caret.HasFocus = sel.HasFocus
	return cleared.MergeBlocks(nb).WithSelectionBefore(sel).WithSelectionAfter(caret)
}

// InsertTextWithCarry inserts typed text. The entities that continue at
// sel are resolved with entity.KeysForSelection before the edges are
// trimmed.
func InsertTextWithCarry(cs *model.ContentState, sel model.SelectionState, text string, style model.StyleSet) *model.ContentState {
	return InsertText(cs, sel, text, style, entity.KeysForSelection(cs, sel))
}

// SplitBlock removes the selected range and splits the block at the caret.
// The head keeps the block's key; the tail gets a fresh key, the same type
// and depth, and receives the caret. Tree nodes cannot be split.
func SplitBlock(cs *model.ContentState, sel model.SelectionState) *model.ContentState {
	cleared := RemoveRange(cs, sel)
	at := cleared.SelectionAfter()
	b := cleared.BlockForKey(at.AnchorKey)
	invariant.Check(!b.HasTreeLinks(), "cannot split tree block %q", b.Key())

	offset := at.AnchorOffset
	chars := b.CharacterList()
	text := b.Text()
	head := b.WithText(unicodeutil.SliceUnits(text, 0, offset), chars[:offset])
	tail := model.NewContentBlock(model.BlockConfig{
		Type:       b.Type(),
		Depth:      b.Depth(),
		Text:       unicodeutil.SliceUnits(text, offset, len(chars)),
		Characters: slices.Clone(chars[offset:]),
		Data:       b.Data(),
	})
	bm := cleared.BlockMap().Merge(head).InsertAfter(head.Key(), tail)
	caret := model.CollapsedAt(tail.Key(), 0)
	caret.HasFocus = sel.HasFocus
	return cleared.WithBlockMap(bm).WithSelectionBefore(sel).WithSelectionAfter(caret)
}
