// Package decorator marks spans of a block for special rendering: links,
// mentions, hashtags. A Composite runs several strategies over a block and
// gives every claimed span a key "<decorator>.<occurrence>".
package decorator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

const delimiter = "."

// Strategy reports spans [start,end) of b, in code units, through found.
type Strategy func(b *model.ContentBlock, cs *model.ContentState, found func(start, end int))

// Decorator names a strategy so renderers can pick a look for its spans.
type Decorator struct {
	Name     string
	Strategy Strategy
}

// Composite applies decorators in order. Earlier decorators win: a span
// that overlaps an already claimed unit is skipped.
type Composite struct {
	decorators []Decorator
}

func NewComposite(decorators ...Decorator) *Composite {
	return &Composite{decorators: decorators}
}

// Decorations returns one key per code unit of b, "" where undecorated.
func (c *Composite) Decorations(b *model.ContentBlock, cs *model.ContentState) []string {
	out := make([]string, b.Length())
	for i, d := range c.decorators {
		counter := 0
		d.Strategy(b, cs, func(start, end int) {
			start, end = max(start, 0), min(end, len(out))
			if !canOccupy(out, start, end) {
				return
			}
			key := strconv.Itoa(i) + delimiter + strconv.Itoa(counter)
			for j := start; j < end; j++ {
				out[j] = key
			}
			counter++
		})
	}
	return out
}

func canOccupy(out []string, start, end int) bool {
	for i := start; i < end; i++ {
		if out[i] != "" {
			return false
		}
	}
	return start < end
}

// DecoratorForKey returns the decorator that produced key.
func (c *Composite) DecoratorForKey(key string) (Decorator, bool) {
	idx, _, ok := strings.Cut(key, delimiter)
	if !ok {
		return Decorator{}, false
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(c.decorators) {
		return Decorator{}, false
	}
	return c.decorators[i], true
}

// EntityStrategy finds runs of characters carrying an entity of
// entityType.
func EntityStrategy(entityType string) Strategy {
	return func(b *model.ContentBlock, cs *model.ContentState, found func(start, end int)) {
		em := cs.EntityMap()
		b.FindEntityRanges(func(c *model.CharacterMetadata) bool {
			for _, key := range c.Entity().Items() {
				if e, ok := em.Lookup(key); ok && e.Type() == entityType {
					return true
				}
			}
			return false
		}, found)
	}
}

// RegexpStrategy finds every match of re in the block text.
func RegexpStrategy(re *regexp.Regexp) Strategy {
	return func(b *model.ContentBlock, _ *model.ContentState, found func(start, end int)) {
		text := b.Text()
		for _, m := range re.FindAllStringIndex(text, -1) {
			found(unicodeutil.ByteToUnit(text, m[0]), unicodeutil.ByteToUnit(text, m[1]))
		}
	}
}
