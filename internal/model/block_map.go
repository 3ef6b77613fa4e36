package model

import (
	"github.com/benbjohnson/immutable"

	"github.com/kobzarvs/qdraft/internal/invariant"
)

// BlockMap is a persistent mapping from block key to block that keeps
// document order. Replacing a block shares the key order with the previous
// map; only inserts and deletes rebuild it.
type BlockMap struct {
	keys   *immutable.List[string]
	blocks *immutable.Map[string, *ContentBlock]
}

func emptyBlockMap() *BlockMap {
	return &BlockMap{
		keys:   immutable.NewList[string](),
		blocks: immutable.NewMap[string, *ContentBlock](nil),
	}
}

// CreateFromArray builds a map in slice order. Duplicate keys are a
// contract violation.
func CreateFromArray(blocks []*ContentBlock) *BlockMap {
	lb := immutable.NewListBuilder[string]()
	mb := immutable.NewMapBuilder[string, *ContentBlock](nil)
	for _, b := range blocks {
		_, dup := mb.Get(b.Key())
		invariant.Check(!dup, "duplicate block key %q", b.Key())
		lb.Append(b.Key())
		mb.Set(b.Key(), b)
	}
	return &BlockMap{keys: lb.List(), blocks: mb.Map()}
}

func (m *BlockMap) Len() int { return m.keys.Len() }

func (m *BlockMap) Get(key string) (*ContentBlock, bool) {
	return m.blocks.Get(key)
}

func (m *BlockMap) Has(key string) bool {
	_, ok := m.blocks.Get(key)
	return ok
}

// Keys returns block keys in document order.
func (m *BlockMap) Keys() []string {
	out := make([]string, 0, m.keys.Len())
	itr := m.keys.Iterator()
	for !itr.Done() {
		_, k := itr.Next()
		out = append(out, k)
	}
	return out
}

// Blocks returns the blocks in document order.
func (m *BlockMap) Blocks() []*ContentBlock {
	out := make([]*ContentBlock, 0, m.keys.Len())
	m.Range(func(b *ContentBlock) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Range calls fn for each block in document order until fn returns false.
func (m *BlockMap) Range(fn func(*ContentBlock) bool) {
	itr := m.keys.Iterator()
	for !itr.Done() {
		_, k := itr.Next()
		b, _ := m.blocks.Get(k)
		if !fn(b) {
			return
		}
	}
}

// IndexOf returns the document position of key, or -1.
func (m *BlockMap) IndexOf(key string) int {
	if !m.Has(key) {
		return -1
	}
	itr := m.keys.Iterator()
	for !itr.Done() {
		i, k := itr.Next()
		if k == key {
			return i
		}
	}
	return -1
}

func (m *BlockMap) at(i int) *ContentBlock {
	if i < 0 || i >= m.keys.Len() {
		return nil
	}
	b, _ := m.blocks.Get(m.keys.Get(i))
	return b
}

func (m *BlockMap) First() *ContentBlock { return m.at(0) }
func (m *BlockMap) Last() *ContentBlock  { return m.at(m.keys.Len() - 1) }

// KeyBefore returns the key preceding key in document order.
func (m *BlockMap) KeyBefore(key string) (string, bool) {
	i := m.IndexOf(key)
	if i <= 0 {
		return "", false
	}
	return m.keys.Get(i - 1), true
}

// KeyAfter returns the key following key in document order.
func (m *BlockMap) KeyAfter(key string) (string, bool) {
	i := m.IndexOf(key)
	if i < 0 || i+1 >= m.keys.Len() {
		return "", false
	}
	return m.keys.Get(i + 1), true
}

// Set replaces the block with the same key in place, or appends it.
func (m *BlockMap) Set(b *ContentBlock) *BlockMap {
	keys := m.keys
	if !m.Has(b.Key()) {
		keys = keys.Append(b.Key())
	}
	return &BlockMap{keys: keys, blocks: m.blocks.Set(b.Key(), b)}
}

// Merge replaces or appends every block, in order.
func (m *BlockMap) Merge(blocks ...*ContentBlock) *BlockMap {
	out := m
	for _, b := range blocks {
		if cur, ok := out.Get(b.Key()); ok && cur == b {
			continue
		}
		out = out.Set(b)
	}
	return out
}

// Delete removes the given keys.
func (m *BlockMap) Delete(keys ...string) *BlockMap {
	drop := make(map[string]struct{}, len(keys))
	blocks := m.blocks
	for _, k := range keys {
		if m.Has(k) {
			drop[k] = struct{}{}
			blocks = blocks.Delete(k)
		}
	}
	if len(drop) == 0 {
		return m
	}
	lb := immutable.NewListBuilder[string]()
	itr := m.keys.Iterator()
	for !itr.Done() {
		_, k := itr.Next()
		if _, gone := drop[k]; !gone {
			lb.Append(k)
		}
	}
	return &BlockMap{keys: lb.List(), blocks: blocks}
}

// InsertAfter places blocks directly after the block keyed after. An empty
// after inserts at the front.
func (m *BlockMap) InsertAfter(after string, blocks ...*ContentBlock) *BlockMap {
	pos := 0
	if after != "" {
		pos = m.IndexOf(after)
		invariant.Check(pos >= 0, "cannot insert after unknown block %q", after)
		pos++
	}
	lb := immutable.NewListBuilder[string]()
	mapped := m.blocks
	itr := m.keys.Iterator()
	for !itr.Done() {
		i, k := itr.Next()
		if i == pos {
			for _, b := range blocks {
				lb.Append(b.Key())
			}
		}
		lb.Append(k)
	}
	if pos >= m.keys.Len() {
		for _, b := range blocks {
			lb.Append(b.Key())
		}
	}
	for _, b := range blocks {
		invariant.Check(!m.Has(b.Key()), "duplicate block key %q", b.Key())
		mapped = mapped.Set(b.Key(), b)
	}
	return &BlockMap{keys: lb.List(), blocks: mapped}
}
