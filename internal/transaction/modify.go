package transaction

import (
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
)

// mapSelectedBlocks calls fn with each block sel touches and the code-unit
// span [start,end) selected in it. Blocks fn returns unchanged stay shared.
func mapSelectedBlocks(cs *model.ContentState, sel model.SelectionState, fn func(b *model.ContentBlock, start, end int) *model.ContentBlock) *model.ContentState {
	startKey, endKey := sel.StartKey(), sel.EndKey()
	invariant.Check(cs.BlockForKey(startKey) != nil, "selection starts in unknown block %q", startKey)
	invariant.Check(cs.BlockForKey(endKey) != nil, "selection ends in unknown block %q", endKey)

	var updated []*model.ContentBlock
	inRange := false
	cs.BlockMap().Range(func(b *model.ContentBlock) bool {
		if b.Key() == startKey {
			inRange = true
		}
		if !inRange {
			return true
		}
		start, end := 0, b.Length()
		if b.Key() == startKey {
			start = sel.StartOffset()
		}
		if b.Key() == endKey {
			end = sel.EndOffset()
		}
		if nb := fn(b, start, end); nb != b {
			updated = append(updated, nb)
		}
		return b.Key() != endKey
	})
	return cs.MergeBlocks(updated...)
}

// ApplyEntity trims entities cut by sel's edges and then adds key to every
// selected character. Characters may carry several entities.
func ApplyEntity(cs *model.ContentState, sel model.SelectionState, key string) *model.ContentState {
	invariant.Check(cs.EntityMap().Has(key), "unknown entity key %q", key)
	trimmed := RemoveEntitiesAtEdges(cs, sel)
	out := mapSelectedBlocks(trimmed, sel, func(b *model.ContentBlock, start, end int) *model.ContentBlock {
		return b.MapCharacters(start, end, func(c *model.CharacterMetadata) *model.CharacterMetadata {
			return model.ApplyEntity(c, key)
		})
	})
	return out.WithSelectionBefore(sel).WithSelectionAfter(sel)
}

// RemoveEntity drops key from every selected character.
func RemoveEntity(cs *model.ContentState, sel model.SelectionState, key string) *model.ContentState {
	out := mapSelectedBlocks(cs, sel, func(b *model.ContentBlock, start, end int) *model.ContentBlock {
		return b.MapCharacters(start, end, func(c *model.CharacterMetadata) *model.CharacterMetadata {
			return model.RemoveEntity(c, key)
		})
	})
	return out.WithSelectionBefore(sel).WithSelectionAfter(sel)
}

// ApplyInlineStyle adds style to every selected character.
func ApplyInlineStyle(cs *model.ContentState, sel model.SelectionState, style string) *model.ContentState {
	out := mapSelectedBlocks(cs, sel, func(b *model.ContentBlock, start, end int) *model.ContentBlock {
		return b.MapCharacters(start, end, func(c *model.CharacterMetadata) *model.CharacterMetadata {
			return model.ApplyStyle(c, style)
		})
	})
	return out.WithSelectionBefore(sel).WithSelectionAfter(sel)
}

// RemoveInlineStyle drops style from every selected character.
func RemoveInlineStyle(cs *model.ContentState, sel model.SelectionState, style string) *model.ContentState {
	out := mapSelectedBlocks(cs, sel, func(b *model.ContentBlock, start, end int) *model.ContentBlock {
		return b.MapCharacters(start, end, func(c *model.CharacterMetadata) *model.CharacterMetadata {
			return model.RemoveStyle(c, style)
		})
	})
	return out.WithSelectionBefore(sel).WithSelectionAfter(sel)
}

// CurrentInlineStyle returns the style new text at sel picks up: the style
// of the character before a caret, or of the first selected character,
// looking back through earlier blocks when the block is empty.
func CurrentInlineStyle(cs *model.ContentState, sel model.SelectionState) model.StyleSet {
	key, offset := sel.StartKey(), sel.StartOffset()
	b := cs.BlockForKey(key)
	invariant.Check(b != nil, "selection starts in unknown block %q", key)
	if !sel.IsCollapsed() && offset < b.Length() {
		return b.InlineStyleAt(offset)
	}
	if offset > 0 {
		return b.InlineStyleAt(offset - 1)
	}
	if sel.IsCollapsed() && b.Length() > 0 {
		return b.InlineStyleAt(0)
	}
	for prev := cs.BlockBefore(key); prev != nil; prev = cs.BlockBefore(prev.Key()) {
		if prev.Length() > 0 {
			return prev.InlineStyleAt(prev.Length() - 1)
		}
	}
	return model.StyleSet{}
}
