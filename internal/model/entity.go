package model

import (
	"errors"
	"fmt"
	"maps"

	"github.com/mitchellh/mapstructure"
)

// Mutability controls how an entity reacts to edits at and inside its run.
type Mutability string

const (
	// Mutable entities extend with typing on both sides and survive edits.
	Mutable Mutability = "MUTABLE"
	// Immutable entities are removed entirely when edited.
	Immutable Mutability = "IMMUTABLE"
	// Segmented entities are atomic segments; edits split rather than extend them.
	Segmented Mutability = "SEGMENTED"
	// MutableInterior entities extend only when the edit point is strictly inside the run.
	MutableInterior Mutability = "MUTABLE_INTERIOR"
)

// ErrInvalidMutability is returned for an unknown mutability name.
var ErrInvalidMutability = errors.New("invalid entity mutability")

// ParseMutability validates a serialized mutability name.
func ParseMutability(s string) (Mutability, error) {
	switch m := Mutability(s); m {
	case Mutable, Immutable, Segmented, MutableInterior:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMutability, s)
}

// Extends reports whether typing may carry the entity forward.
func (m Mutability) Extends() bool {
	return m == Mutable || m == MutableInterior
}

// Entity is an annotation instance: link, mention, embed.
type Entity struct {
	entityType string
	mutability Mutability
	data       map[string]any
}

// NewEntity creates an entity. Data is copied.
func NewEntity(entityType string, mutability Mutability, data map[string]any) *Entity {
	if data == nil {
		data = map[string]any{}
	}
	return &Entity{entityType: entityType, mutability: mutability, data: maps.Clone(data)}
}

func (e *Entity) Type() string           { return e.entityType }
func (e *Entity) Mutability() Mutability { return e.mutability }

// Data returns a copy of the entity's opaque data.
func (e *Entity) Data() map[string]any { return maps.Clone(e.data) }

// DecodeData decodes the opaque data into out, a pointer to a struct whose
// fields are matched by name or `mapstructure` tag.
func (e *Entity) DecodeData(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(e.data); err != nil {
		return fmt.Errorf("decode %s entity data: %w", e.entityType, err)
	}
	return nil
}

func (e *Entity) withData(data map[string]any) *Entity {
	return &Entity{entityType: e.entityType, mutability: e.mutability, data: data}
}

func (e *Entity) withMutability(m Mutability) *Entity {
	return &Entity{entityType: e.entityType, mutability: m, data: e.data}
}
