// Package entity decides which entities carry onto text inserted at a
// selection.
package entity

import (
	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/model"
)

// KeysForSelection returns the entity keys that newly inserted text at sel
// should carry. MUTABLE entities continue when the characters on both
// sides of the insertion point carry them. MUTABLE_INTERIOR entities
// continue only when the point is strictly inside their run, which may
// span a block boundary. IMMUTABLE and SEGMENTED entities never continue.
// The result is empty, never nil-as-absent, when nothing qualifies.
func KeysForSelection(cs *model.ContentState, sel model.SelectionState) model.EntitySet {
	offset := sel.StartOffset()
	block := cs.BlockForKey(sel.StartKey())
	invariant.Check(block != nil, "selection starts in unknown block %q", sel.StartKey())

	var keys model.EntitySet
	checkMutable := true

	if sel.IsCollapsed() {
		if offset == 0 {
			block = cs.BlockBefore(block.Key())
			if block == nil {
				return keys
			}
			offset = block.Length()
			checkMutable = false
		}
		offset--
	} else if offset == block.Length() {
		checkMutable = false
	}

	em := cs.EntityMap()
	if checkMutable {
		here := filterKeys(em, block.EntityAt(offset), model.Mutable)
		next := filterKeys(em, block.EntityAt(offset+1), model.Mutable)
		keys = keys.Union(here.Intersect(next))
	}

	interior := filterKeys(em, block.EntityAt(offset), model.MutableInterior)
	if interior.IsEmpty() {
		return keys
	}
	offset++
	if offset >= block.Length() {
		block = cs.BlockAfter(block.Key())
		offset = 0
	}
	if block == nil {
		return keys
	}
	next := filterKeys(em, block.EntityAt(offset), model.MutableInterior)
	return keys.Union(next.Intersect(interior))
}

// filterKeys keeps the keys whose entity has mutability m.
func filterKeys(em *model.EntityMap, keys model.EntitySet, m model.Mutability) model.EntitySet {
	return keys.Filter(func(key string) bool {
		return em.Get(key).Mutability() == m
	})
}
