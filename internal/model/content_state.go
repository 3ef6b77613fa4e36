package model

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/kobzarvs/qdraft/internal/invariant"
)

// ContentState is one immutable version of a document.
type ContentState struct {
	blockMap        *BlockMap
	entityMap       *EntityMap
	selectionBefore SelectionState
	selectionAfter  SelectionState
}

// NewContentState assembles a state from its parts. Nil maps are replaced
// by empty ones.
func NewContentState(blockMap *BlockMap, entityMap *EntityMap, before, after SelectionState) *ContentState {
	if blockMap == nil {
		blockMap = emptyBlockMap()
	}
	if entityMap == nil {
		entityMap = NewEntityMap()
	}
	return &ContentState{blockMap: blockMap, entityMap: entityMap, selectionBefore: before, selectionAfter: after}
}

// CreateFromBlockArray builds a state whose selection is a caret at the
// start of the first block. An empty array yields one empty block. Linked
// blocks must form a valid forest.
func CreateFromBlockArray(blocks []*ContentBlock, entityMap *EntityMap) *ContentState {
	if len(blocks) == 0 {
		blocks = []*ContentBlock{NewContentBlock(BlockConfig{})}
	}
	bm := CreateFromArray(blocks)
	for _, b := range blocks {
		if b.HasTreeLinks() {
			err := ValidateTree(bm)
			invariant.Check(err == nil, "malformed block tree: %v", err)
			break
		}
	}
	sel := CollapsedAt(blocks[0].Key(), 0)
	return NewContentState(bm, entityMap, sel, sel)
}

// CreateFromText builds unstyled blocks, one per line of text.
func CreateFromText(text string) *ContentState {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	blocks := make([]*ContentBlock, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, NewContentBlock(BlockConfig{Text: line}))
	}
	return CreateFromBlockArray(blocks, nil)
}

func (c *ContentState) BlockMap() *BlockMap                 { return c.blockMap }
func (c *ContentState) EntityMap() *EntityMap               { return c.entityMap }
func (c *ContentState) SelectionBefore() SelectionState     { return c.selectionBefore }
func (c *ContentState) SelectionAfter() SelectionState      { return c.selectionAfter }
func (c *ContentState) BlocksAsArray() []*ContentBlock      { return c.blockMap.Blocks() }
func (c *ContentState) FirstBlock() *ContentBlock           { return c.blockMap.First() }
func (c *ContentState) LastBlock() *ContentBlock            { return c.blockMap.Last() }
func (c *ContentState) KeyBefore(key string) (string, bool) { return c.blockMap.KeyBefore(key) }
func (c *ContentState) KeyAfter(key string) (string, bool)  { return c.blockMap.KeyAfter(key) }

// BlockForKey returns the block keyed key, or nil.
func (c *ContentState) BlockForKey(key string) *ContentBlock {
	b, _ := c.blockMap.Get(key)
	return b
}

// BlockBefore returns the block preceding key in document order, or nil.
func (c *ContentState) BlockBefore(key string) *ContentBlock {
	k, ok := c.blockMap.KeyBefore(key)
	if !ok {
		return nil
	}
	return c.BlockForKey(k)
}

// BlockAfter returns the block following key in document order, or nil.
func (c *ContentState) BlockAfter(key string) *ContentBlock {
	k, ok := c.blockMap.KeyAfter(key)
	if !ok {
		return nil
	}
	return c.BlockForKey(k)
}

// EntityAt returns the entity keys on the character at offset of block key.
func (c *ContentState) EntityAt(key string, offset int) EntitySet {
	b := c.BlockForKey(key)
	if b == nil {
		return EntitySet{}
	}
	return b.EntityAt(offset)
}

// Entity returns the entity for key; unknown keys are a contract violation.
func (c *ContentState) Entity(key string) *Entity { return c.entityMap.Get(key) }

// PlainText joins block texts with delimiter ("\n" when empty).
func (c *ContentState) PlainText(delimiter string) string {
	if delimiter == "" {
		delimiter = "\n"
	}
	blocks := c.blockMap.Blocks()
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text()
	}
	return strings.Join(parts, delimiter)
}

// HasText reports whether the document holds anything beyond one empty block.
func (c *ContentState) HasText() bool {
	return c.blockMap.Len() > 1 || (c.blockMap.Len() == 1 && c.blockMap.First().Length() > 0)
}

func (c *ContentState) clone() *ContentState {
	n := *c
	return &n
}

func (c *ContentState) WithBlockMap(bm *BlockMap) *ContentState {
	n := c.clone()
	n.blockMap = bm
	return n
}

func (c *ContentState) WithEntityMap(em *EntityMap) *ContentState {
	n := c.clone()
	n.entityMap = em
	return n
}

func (c *ContentState) WithSelectionBefore(sel SelectionState) *ContentState {
	n := c.clone()
	n.selectionBefore = sel
	return n
}

func (c *ContentState) WithSelectionAfter(sel SelectionState) *ContentState {
	n := c.clone()
	n.selectionAfter = sel
	return n
}

// MergeBlocks replaces the given blocks, keeping every other block shared.
func (c *ContentState) MergeBlocks(blocks ...*ContentBlock) *ContentState {
	bm := c.blockMap.Merge(blocks...)
	if bm == c.blockMap {
		return c
	}
	return c.WithBlockMap(bm)
}

// CreateEntity registers an entity and returns the new state and its key.
func (c *ContentState) CreateEntity(entityType string, mutability Mutability, data map[string]any) (*ContentState, string) {
	em, key := c.entityMap.Create(entityType, mutability, data)
	return c.WithEntityMap(em), key
}

func (c *ContentState) MergeEntityData(key string, data map[string]any) *ContentState {
	return c.WithEntityMap(c.entityMap.MergeData(key, data))
}

func (c *ContentState) ReplaceEntityData(key string, data map[string]any) *ContentState {
	return c.WithEntityMap(c.entityMap.ReplaceData(key, data))
}

func (c *ContentState) SetEntityMutability(key string, mutability Mutability) *ContentState {
	em := c.entityMap.SetMutability(key, mutability)
	if em == c.entityMap {
		return c
	}
	return c.WithEntityMap(em)
}

// NormalizeSelection sets IsBackward from document order.
func (c *ContentState) NormalizeSelection(sel SelectionState) SelectionState {
	if sel.AnchorKey == sel.FocusKey {
		sel.IsBackward = sel.FocusOffset < sel.AnchorOffset
		return sel
	}
	sel.IsBackward = c.blockMap.IndexOf(sel.FocusKey) < c.blockMap.IndexOf(sel.AnchorKey)
	return sel
}

// ValidateEntities reports every entity key referenced by a character but
// missing from the entity map.
func (c *ContentState) ValidateEntities() error {
	var err error
	c.blockMap.Range(func(b *ContentBlock) bool {
		reported := map[string]bool{}
		for i, ch := range b.characters {
			for _, key := range ch.entity.items {
				if reported[key] || c.entityMap.Has(key) {
					continue
				}
				reported[key] = true
				err = multierr.Append(err, fmt.Errorf("block %q offset %d: unknown entity %q", b.key, i, key))
			}
		}
		return true
	})
	return err
}
