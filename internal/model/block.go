package model

import (
	"maps"
	"slices"

	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/ranges"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

// DefaultBlockType is used when a block is created without a type.
const DefaultBlockType = "unstyled"

// BlockConfig describes a block to create. Zero fields take defaults: a
// generated key, DefaultBlockType, and one EmptyCharacter per code unit.
// The tree fields are only set for blocks that take part in a forest.
type BlockConfig struct {
	Key        string
	Type       string
	Text       string
	Characters []*CharacterMetadata
	Depth      int
	Data       map[string]any

	Parent      string
	Children    []string
	PrevSibling string
	NextSibling string
}

// ContentBlock is one paragraph-like unit of the document.
type ContentBlock struct {
	key        string
	blockType  string
	text       string
	characters []*CharacterMetadata
	depth      int
	data       map[string]any

	parent      string
	children    []string
	prevSibling string
	nextSibling string
}

// NewContentBlock builds a block from cfg.
func NewContentBlock(cfg BlockConfig) *ContentBlock {
	b := &ContentBlock{
		key:         cfg.Key,
		blockType:   cfg.Type,
		text:        cfg.Text,
		depth:       cfg.Depth,
		data:        maps.Clone(cfg.Data),
		parent:      cfg.Parent,
		children:    slices.Clone(cfg.Children),
		prevSibling: cfg.PrevSibling,
		nextSibling: cfg.NextSibling,
	}
	if b.key == "" {
		b.key = GenKey()
	}
	if b.blockType == "" {
		b.blockType = DefaultBlockType
	}
	if cfg.Characters == nil {
		b.characters = RepeatCharacter(EmptyCharacter, unicodeutil.UTF16Len(cfg.Text))
	} else {
		b.characters = slices.Clone(cfg.Characters)
	}
	b.checkLength()
	return b
}

func (b *ContentBlock) checkLength() {
	n := unicodeutil.UTF16Len(b.text)
	invariant.Check(len(b.characters) == n,
		"block %q has %d characters for %d code units of text", b.key, len(b.characters), n)
}

func (b *ContentBlock) Key() string  { return b.key }
func (b *ContentBlock) Type() string { return b.blockType }
func (b *ContentBlock) Text() string { return b.text }
func (b *ContentBlock) Depth() int   { return b.depth }

// Length is the text length in UTF-16 code units.
func (b *ContentBlock) Length() int { return len(b.characters) }

// Data returns a copy of the block's opaque data.
func (b *ContentBlock) Data() map[string]any { return maps.Clone(b.data) }

// DataValue returns one data field.
func (b *ContentBlock) DataValue(name string) (any, bool) {
	v, ok := b.data[name]
	return v, ok
}

// CharacterList returns a copy of the per-unit metadata.
func (b *ContentBlock) CharacterList() []*CharacterMetadata {
	return slices.Clone(b.characters)
}

// CharacterAt returns the metadata at offset, or EmptyCharacter when offset
// is out of range.
func (b *ContentBlock) CharacterAt(offset int) *CharacterMetadata {
	if offset < 0 || offset >= len(b.characters) {
		return EmptyCharacter
	}
	return b.characters[offset]
}

// EntityAt returns the entity keys at offset; out of range yields the empty set.
func (b *ContentBlock) EntityAt(offset int) EntitySet {
	return b.CharacterAt(offset).entity
}

// InlineStyleAt returns the styles at offset; out of range yields the empty set.
func (b *ContentBlock) InlineStyleAt(offset int) StyleSet {
	return b.CharacterAt(offset).style
}

func haveEqualEntity(a, c *CharacterMetadata) bool { return a.entity.Equal(c.entity) }
func haveEqualStyle(a, c *CharacterMetadata) bool  { return a.style.Equal(c.style) }

// FindEntityRanges reports runs of identical entity sets accepted by filter.
func (b *ContentBlock) FindEntityRanges(filter func(*CharacterMetadata) bool, found func(start, end int)) {
	ranges.Find(b.characters, haveEqualEntity, filter, found)
}

// FindStyleRanges reports runs of identical style sets accepted by filter.
func (b *ContentBlock) FindStyleRanges(filter func(*CharacterMetadata) bool, found func(start, end int)) {
	ranges.Find(b.characters, haveEqualStyle, filter, found)
}

func (b *ContentBlock) Parent() string      { return b.parent }
func (b *ContentBlock) Children() []string  { return slices.Clone(b.children) }
func (b *ContentBlock) PrevSibling() string { return b.prevSibling }
func (b *ContentBlock) NextSibling() string { return b.nextSibling }

// HasTreeLinks reports whether the block is a node of a forest.
func (b *ContentBlock) HasTreeLinks() bool {
	return b.parent != "" || len(b.children) > 0 || b.prevSibling != "" || b.nextSibling != ""
}

// IsLeaf reports whether the block has no children.
func (b *ContentBlock) IsLeaf() bool { return len(b.children) == 0 }

func (b *ContentBlock) clone() *ContentBlock {
	c := *b
	return &c
}

func (b *ContentBlock) WithKey(key string) *ContentBlock {
	c := b.clone()
	c.key = key
	return c
}

func (b *ContentBlock) WithType(blockType string) *ContentBlock {
	if blockType == b.blockType {
		return b
	}
	c := b.clone()
	c.blockType = blockType
	return c
}

func (b *ContentBlock) WithDepth(depth int) *ContentBlock {
	if depth == b.depth {
		return b
	}
	c := b.clone()
	c.depth = depth
	return c
}

func (b *ContentBlock) WithData(data map[string]any) *ContentBlock {
	c := b.clone()
	c.data = maps.Clone(data)
	return c
}

// WithText replaces text and characters together. Nil characters means
// one EmptyCharacter per code unit.
func (b *ContentBlock) WithText(text string, characters []*CharacterMetadata) *ContentBlock {
	c := b.clone()
	c.text = text
	if characters == nil {
		c.characters = RepeatCharacter(EmptyCharacter, unicodeutil.UTF16Len(text))
	} else {
		c.characters = slices.Clone(characters)
	}
	c.checkLength()
	return c
}

// WithCharacters replaces the character list; its length must match the text.
func (b *ContentBlock) WithCharacters(characters []*CharacterMetadata) *ContentBlock {
	c := b.clone()
	c.characters = slices.Clone(characters)
	c.checkLength()
	return c
}

// MapCharacters applies fn to the characters in [start, end). The receiver
// is returned when fn changes nothing.
func (b *ContentBlock) MapCharacters(start, end int, fn func(*CharacterMetadata) *CharacterMetadata) *ContentBlock {
	start = max(start, 0)
	end = min(end, len(b.characters))
	var chars []*CharacterMetadata
	for i := start; i < end; i++ {
		next := fn(b.characters[i])
		if next == b.characters[i] {
			continue
		}
		if chars == nil {
			chars = slices.Clone(b.characters)
		}
		chars[i] = next
	}
	if chars == nil {
		return b
	}
	c := b.clone()
	c.characters = chars
	return c
}

func (b *ContentBlock) WithParent(parent string) *ContentBlock {
	c := b.clone()
	c.parent = parent
	return c
}

func (b *ContentBlock) WithChildren(children []string) *ContentBlock {
	c := b.clone()
	c.children = slices.Clone(children)
	return c
}

func (b *ContentBlock) WithPrevSibling(key string) *ContentBlock {
	c := b.clone()
	c.prevSibling = key
	return c
}

func (b *ContentBlock) WithNextSibling(key string) *ContentBlock {
	c := b.clone()
	c.nextSibling = key
	return c
}
