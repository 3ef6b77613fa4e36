package model

// OrderedSet is a small persistent set that remembers insertion order.
// The zero value is the empty set.
type OrderedSet[T comparable] struct {
	items []T
}

// EntitySet is the set of entity keys active on one character.
type EntitySet = OrderedSet[string]

// StyleSet is the set of inline style names active on one character.
type StyleSet = OrderedSet[string]

// NewOrderedSet builds a set from items, dropping duplicates.
func NewOrderedSet[T comparable](items ...T) OrderedSet[T] {
	var s OrderedSet[T]
	for _, it := range items {
		if !s.Has(it) {
			s.items = append(s.items, it)
		}
	}
	return s
}

// NewEntitySet builds an EntitySet from keys.
func NewEntitySet(keys ...string) EntitySet { return NewOrderedSet(keys...) }

// NewStyleSet builds a StyleSet from style names.
func NewStyleSet(styles ...string) StyleSet { return NewOrderedSet(styles...) }

func (s OrderedSet[T]) Len() int      { return len(s.items) }
func (s OrderedSet[T]) IsEmpty() bool { return len(s.items) == 0 }

func (s OrderedSet[T]) Has(v T) bool {
	for _, it := range s.items {
		if it == v {
			return true
		}
	}
	return false
}

// Items returns the members in insertion order.
func (s OrderedSet[T]) Items() []T {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s OrderedSet[T]) Add(v T) OrderedSet[T] {
	if s.Has(v) {
		return s
	}
	items := make([]T, len(s.items), len(s.items)+1)
	copy(items, s.items)
	return OrderedSet[T]{items: append(items, v)}
}

func (s OrderedSet[T]) Remove(v T) OrderedSet[T] {
	if !s.Has(v) {
		return s
	}
	return s.Filter(func(it T) bool { return it != v })
}

// Filter keeps the members for which keep returns true.
func (s OrderedSet[T]) Filter(keep func(T) bool) OrderedSet[T] {
	var items []T
	for _, it := range s.items {
		if keep(it) {
			items = append(items, it)
		}
	}
	if len(items) == len(s.items) {
		return s
	}
	return OrderedSet[T]{items: items}
}

// Union appends the members of o missing from s.
func (s OrderedSet[T]) Union(o OrderedSet[T]) OrderedSet[T] {
	out := s
	for _, it := range o.items {
		out = out.Add(it)
	}
	return out
}

// Intersect keeps the members of s that o also has, in s's order.
func (s OrderedSet[T]) Intersect(o OrderedSet[T]) OrderedSet[T] {
	return s.Filter(o.Has)
}

// Intersects reports whether s and o share a member.
func (s OrderedSet[T]) Intersects(o OrderedSet[T]) bool {
	for _, it := range s.items {
		if o.Has(it) {
			return true
		}
	}
	return false
}

// Equal compares contents; order does not matter.
func (s OrderedSet[T]) Equal(o OrderedSet[T]) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for _, it := range s.items {
		if !o.Has(it) {
			return false
		}
	}
	return true
}
