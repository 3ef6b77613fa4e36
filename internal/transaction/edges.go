// Package transaction holds the editing operations that produce a new
// content state from an old one and a selection.
package transaction

import (
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/ranges"
)

// RemoveEntitiesAtEdges strips entities that sel's start or end boundary
// cuts through, unless they are MUTABLE or MUTABLE_INTERIOR. A cut entity
// loses its whole covering run, never just part of it. The result always
// has selectionAfter set to sel; when no block changed every block and the
// entity map are shared with cs.
func RemoveEntitiesAtEdges(cs *model.ContentState, sel model.SelectionState) *model.ContentState {
	em := cs.EntityMap()
	var updated []*model.ContentBlock

	startKey := sel.StartKey()
	startBlock := cs.BlockForKey(startKey)
	invariant.Check(startBlock != nil, "selection starts in unknown block %q", startKey)
	newStart := removeForBlock(em, startBlock, sel.StartOffset())
	if newStart != startBlock {
		updated = append(updated, newStart)
	}

	endKey := sel.EndKey()
	endBlock := cs.BlockForKey(endKey)
	if startKey == endKey {
		endBlock = newStart
	}
	invariant.Check(endBlock != nil, "selection ends in unknown block %q", endKey)
	newEnd := removeForBlock(em, endBlock, sel.EndOffset())
	if newEnd != endBlock {
		updated = append(updated, newEnd)
	}

	if len(updated) == 0 {
		return cs.WithSelectionAfter(sel)
	}
	return cs.MergeBlocks(updated...).WithSelectionAfter(sel)
}

func removeForBlock(em *model.EntityMap, b *model.ContentBlock, offset int) *model.ContentBlock {
	after := b.EntityAt(offset)
	if after.IsEmpty() || offset <= 0 {
		return b
	}
	before := b.EntityAt(offset - 1)
	for _, key := range after.Items() {
		if !before.Has(key) {
			continue
		}
		if em.Get(key).Mutability().Extends() {
			continue
		}
		r := removalRange(b.CharacterList(), key, offset)
		b = b.MapCharacters(r.Start, r.End, func(c *model.CharacterMetadata) *model.CharacterMetadata {
			return model.RemoveEntity(c, key)
		})
	}
	return b
}

// removalRange finds the run of characters carrying key that covers offset.
func removalRange(chars []*model.CharacterMetadata, key string, offset int) ranges.Range {
	var found *ranges.Range
	ranges.Find(chars,
		func(a, b *model.CharacterMetadata) bool { return a.HasEntity(key) && b.HasEntity(key) },
		func(c *model.CharacterMetadata) bool { return c.HasEntity(key) },
		func(start, end int) {
			if r := (ranges.Range{Start: start, End: end}); r.Contains(offset) {
				found = &r
			}
		},
	)
	invariant.Check(found != nil, "no run of entity %q covers offset %d", key, offset)
	return *found
}
