package model

import "fmt"

// SelectionState is an anchor/focus pair of block positions. Offsets are
// code units, 0 <= offset <= block length. Start and End order the pair by
// IsBackward, which ContentState.NormalizeSelection derives from document
// order.
type SelectionState struct {
	AnchorKey    string
	AnchorOffset int
	FocusKey     string
	FocusOffset  int
	IsBackward   bool
	HasFocus     bool
}

// CollapsedAt returns a caret at offset in the block keyed key.
func CollapsedAt(key string, offset int) SelectionState {
	return SelectionState{AnchorKey: key, AnchorOffset: offset, FocusKey: key, FocusOffset: offset}
}

// Range returns a forward selection from (startKey, startOffset) to (endKey, endOffset).
func Range(startKey string, startOffset int, endKey string, endOffset int) SelectionState {
	return SelectionState{AnchorKey: startKey, AnchorOffset: startOffset, FocusKey: endKey, FocusOffset: endOffset}
}

func (s SelectionState) IsCollapsed() bool {
	return s.AnchorKey == s.FocusKey && s.AnchorOffset == s.FocusOffset
}

func (s SelectionState) StartKey() string {
	if s.IsBackward {
		return s.FocusKey
	}
	return s.AnchorKey
}

func (s SelectionState) StartOffset() int {
	if s.IsBackward {
		return s.FocusOffset
	}
	return s.AnchorOffset
}

func (s SelectionState) EndKey() string {
	if s.IsBackward {
		return s.AnchorKey
	}
	return s.FocusKey
}

func (s SelectionState) EndOffset() int {
	if s.IsBackward {
		return s.AnchorOffset
	}
	return s.FocusOffset
}

// Collapse returns a caret at the selection's start.
func (s SelectionState) Collapse() SelectionState {
	sel := CollapsedAt(s.StartKey(), s.StartOffset())
	sel.HasFocus = s.HasFocus
	return sel
}

func (s SelectionState) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d backward=%t", s.AnchorKey, s.AnchorOffset, s.FocusKey, s.FocusOffset, s.IsBackward)
}
