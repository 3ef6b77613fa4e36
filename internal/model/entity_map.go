package model

import (
	"maps"
	"strconv"

	"github.com/benbjohnson/immutable"

	"github.com/kobzarvs/qdraft/internal/invariant"
)

// EntityMap is the append-only registry of entities. Keys are decimal
// strings handed out in increasing order and never reused.
type EntityMap struct {
	entities *immutable.Map[string, *Entity]
	order    *immutable.List[string]
	lastKey  int
}

// NewEntityMap returns an empty registry.
func NewEntityMap() *EntityMap {
	return &EntityMap{
		entities: immutable.NewMap[string, *Entity](nil),
		order:    immutable.NewList[string](),
	}
}

func (m *EntityMap) Len() int { return m.order.Len() }

// Keys returns entity keys in creation order.
func (m *EntityMap) Keys() []string {
	out := make([]string, 0, m.order.Len())
	itr := m.order.Iterator()
	for !itr.Done() {
		_, k := itr.Next()
		out = append(out, k)
	}
	return out
}

// Has reports whether key is registered.
func (m *EntityMap) Has(key string) bool {
	_, ok := m.entities.Get(key)
	return ok
}

// Lookup returns the entity for key without treating absence as fatal.
func (m *EntityMap) Lookup(key string) (*Entity, bool) {
	return m.entities.Get(key)
}

// Get returns the entity for key. Unknown keys are a contract violation:
// only keys present on some character may be queried.
func (m *EntityMap) Get(key string) *Entity {
	e, ok := m.entities.Get(key)
	invariant.Check(ok, "unknown entity key %q", key)
	return e
}

// Create registers a new entity and returns the new map with its key.
func (m *EntityMap) Create(entityType string, mutability Mutability, data map[string]any) (*EntityMap, string) {
	return m.Add(NewEntity(entityType, mutability, data))
}

// Add registers e under the next free key.
func (m *EntityMap) Add(e *Entity) (*EntityMap, string) {
	next := m.lastKey + 1
	for m.Has(strconv.Itoa(next)) {
		next++
	}
	key := strconv.Itoa(next)
	return &EntityMap{
		entities: m.entities.Set(key, e),
		order:    m.order.Append(key),
		lastKey:  next,
	}, key
}

// Put registers e under an explicit key, as done when seeding a document
// with known keys. Numeric keys advance the counter so Create never
// collides with them.
func (m *EntityMap) Put(key string, e *Entity) *EntityMap {
	order := m.order
	if !m.Has(key) {
		order = order.Append(key)
	}
	last := m.lastKey
	if n, err := strconv.Atoi(key); err == nil && n > last {
		last = n
	}
	return &EntityMap{entities: m.entities.Set(key, e), order: order, lastKey: last}
}

func (m *EntityMap) replace(key string, e *Entity) *EntityMap {
	return &EntityMap{entities: m.entities.Set(key, e), order: m.order, lastKey: m.lastKey}
}

// MergeData shallow-merges partial into the entity's data.
func (m *EntityMap) MergeData(key string, partial map[string]any) *EntityMap {
	e := m.Get(key)
	data := maps.Clone(e.data)
	if data == nil {
		data = map[string]any{}
	}
	maps.Copy(data, partial)
	return m.replace(key, e.withData(data))
}

// ReplaceData swaps the entity's data for data.
func (m *EntityMap) ReplaceData(key string, data map[string]any) *EntityMap {
	e := m.Get(key)
	return m.replace(key, e.withData(maps.Clone(data)))
}

// SetMutability changes the entity's mutability class.
func (m *EntityMap) SetMutability(key string, mutability Mutability) *EntityMap {
	e := m.Get(key)
	if e.mutability == mutability {
		return m
	}
	return m.replace(key, e.withMutability(mutability))
}
