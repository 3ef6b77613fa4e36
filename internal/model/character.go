package model

import (
	"strings"
	"sync"
)

// CharacterMetadata is the style and entity annotation of one code unit.
// Instances are interned: equal configurations built through
// NewCharacterMetadata share one pointer.
type CharacterMetadata struct {
	style  StyleSet
	entity EntitySet
}

// EmptyCharacter carries no style and no entity.
var EmptyCharacter = &CharacterMetadata{}

var characterPool sync.Map

func poolKey(style StyleSet, entity EntitySet) string {
	var sb strings.Builder
	for _, s := range style.items {
		sb.WriteString(s)
		sb.WriteByte(0)
	}
	sb.WriteByte(1)
	for _, e := range entity.items {
		sb.WriteString(e)
		sb.WriteByte(0)
	}
	return sb.String()
}

// NewCharacterMetadata returns the shared instance for style and entity.
func NewCharacterMetadata(style StyleSet, entity EntitySet) *CharacterMetadata {
	if style.IsEmpty() && entity.IsEmpty() {
		return EmptyCharacter
	}
	key := poolKey(style, entity)
	if c, ok := characterPool.Load(key); ok {
		return c.(*CharacterMetadata)
	}
	c, _ := characterPool.LoadOrStore(key, &CharacterMetadata{style: style, entity: entity})
	return c.(*CharacterMetadata)
}

func (c *CharacterMetadata) Style() StyleSet   { return c.style }
func (c *CharacterMetadata) Entity() EntitySet { return c.entity }

func (c *CharacterMetadata) HasStyle(style string) bool { return c.style.Has(style) }
func (c *CharacterMetadata) HasEntity(key string) bool  { return c.entity.Has(key) }

// Equal compares style and entity contents.
func (c *CharacterMetadata) Equal(o *CharacterMetadata) bool {
	if c == o {
		return true
	}
	return c.style.Equal(o.style) && c.entity.Equal(o.entity)
}

func ApplyStyle(c *CharacterMetadata, style string) *CharacterMetadata {
	if c.style.Has(style) {
		return c
	}
	return NewCharacterMetadata(c.style.Add(style), c.entity)
}

func RemoveStyle(c *CharacterMetadata, style string) *CharacterMetadata {
	if !c.style.Has(style) {
		return c
	}
	return NewCharacterMetadata(c.style.Remove(style), c.entity)
}

func ApplyEntity(c *CharacterMetadata, key string) *CharacterMetadata {
	if c.entity.Has(key) {
		return c
	}
	return NewCharacterMetadata(c.style, c.entity.Add(key))
}

func RemoveEntity(c *CharacterMetadata, key string) *CharacterMetadata {
	if !c.entity.Has(key) {
		return c
	}
	return NewCharacterMetadata(c.style, c.entity.Remove(key))
}

// RepeatCharacter returns n references to c.
func RepeatCharacter(c *CharacterMetadata, n int) []*CharacterMetadata {
	out := make([]*CharacterMetadata, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// BuildCharacterList zips per-unit style and entity sets. The shorter slice
// is padded with empty sets.
func BuildCharacterList(styles []StyleSet, entities []EntitySet) []*CharacterMetadata {
	n := len(styles)
	if len(entities) > n {
		n = len(entities)
	}
	out := make([]*CharacterMetadata, n)
	for i := range out {
		var s StyleSet
		var e EntitySet
		if i < len(styles) {
			s = styles[i]
		}
		if i < len(entities) {
			e = entities[i]
		}
		out[i] = NewCharacterMetadata(s, e)
	}
	return out
}
