// Package encoding converts content states to and from the raw serialized
// document: per-block text with inline style and entity ranges counted in
// Unicode scalar values, plus an entity map keyed by raw index strings.
package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawKey is an entity reference in a raw document. It is always emitted
// as a string; numeric keys are accepted on input.
type RawKey string

func (k *RawKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = RawKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity key must be a string or a number: %w", err)
	}
	*k = RawKey(n.String())
	return nil
}

func (k *RawKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: entity key must be a scalar", node.Line)
	}
	*k = RawKey(node.Value)
	return nil
}

// RawEntityRange marks Length scalars starting at Offset with entity Key.
type RawEntityRange struct {
	Offset int    `json:"offset" yaml:"offset"`
	Length int    `json:"length" yaml:"length"`
	Key    RawKey `json:"key" yaml:"key"`
}

// RawInlineStyleRange marks Length scalars starting at Offset with Style.
type RawInlineStyleRange struct {
	Offset int    `json:"offset" yaml:"offset"`
	Length int    `json:"length" yaml:"length"`
	Style  string `json:"style" yaml:"style"`
}

// RawBlock is one serialized block. Children is only used by tree
// documents.
type RawBlock struct {
	Key               string                `json:"key" yaml:"key"`
	Text              string                `json:"text" yaml:"text"`
	Type              string                `json:"type" yaml:"type"`
	Depth             int                   `json:"depth" yaml:"depth"`
	InlineStyleRanges []RawInlineStyleRange `json:"inlineStyleRanges" yaml:"inlineStyleRanges"`
	EntityRanges      []RawEntityRange      `json:"entityRanges" yaml:"entityRanges"`
	Data              map[string]any        `json:"data" yaml:"data"`
	Children          []RawBlock            `json:"children,omitempty" yaml:"children,omitempty"`
}

// RawEntity is one serialized entity.
type RawEntity struct {
	Type       string         `json:"type" yaml:"type"`
	Mutability string         `json:"mutability" yaml:"mutability"`
	Data       map[string]any `json:"data" yaml:"data"`
}

// RawContentState is the serialized document.
type RawContentState struct {
	Blocks    []RawBlock           `json:"blocks" yaml:"blocks"`
	EntityMap map[string]RawEntity `json:"entityMap" yaml:"entityMap"`
}

// IsTree reports whether any block nests children.
func (r *RawContentState) IsTree() bool {
	for _, b := range r.Blocks {
		if len(b.Children) > 0 {
			return true
		}
	}
	return false
}
