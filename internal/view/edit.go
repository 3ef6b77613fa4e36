package view

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qdraft/internal/invariant"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/transaction"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

const (
	styleBold      = "BOLD"
	styleItalic    = "ITALIC"
	styleUnderline = "UNDERLINE"
)

// HandleKey applies ev and reports whether the view should close.
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	v.status = ""
	if name := keyString(ev); name != "" {
		action, ok := v.keymap[name]
		if !ok {
			return false
		}
		return v.execAction(action)
	}
	if ev.Key() == tcell.KeyRune {
		v.typeText(string(ev.Rune()))
	}
	return false
}

func (v *View) execAction(action string) bool {
	switch action {
	case "quit":
		return true
	case "move_left":
		v.moveHorizontal(-1, false)
	case "move_right":
		v.moveHorizontal(1, false)
	case "extend_left":
		v.moveHorizontal(-1, true)
	case "extend_right":
		v.moveHorizontal(1, true)
	case "move_up":
		v.moveVertical(-1, false)
	case "move_down":
		v.moveVertical(1, false)
	case "extend_up":
		v.moveVertical(-1, true)
	case "extend_down":
		v.moveVertical(1, true)
	case "line_start":
		v.SetSelection(model.CollapsedAt(v.sel.FocusKey, 0))
	case "line_end":
		b := v.cs.BlockForKey(v.sel.FocusKey)
		v.SetSelection(model.CollapsedAt(b.Key(), b.Length()))
	case "collapse_selection":
		v.SetSelection(model.CollapsedAt(v.sel.FocusKey, v.sel.FocusOffset))
	case "backspace":
		v.deleteBackward()
	case "delete_char":
		v.deleteForward()
	case "split_block":
		v.splitBlock()
	case "toggle_bold":
		v.toggleStyle(styleBold)
	case "toggle_italic":
		v.toggleStyle(styleItalic)
	case "toggle_underline":
		v.toggleStyle(styleUnderline)
	case "save":
		v.save()
	default:
		logger.Named("view").Debugw("unknown action", "action", action)
	}
	return false
}

// SetSelection moves the selection, trimming entities its edges cut.
func (v *View) SetSelection(sel model.SelectionState) {
	sel = v.clampSelection(sel)
	sel.HasFocus = true
	v.styleOverride = nil
	v.sel = sel
	if !v.readOnly {
		v.apply(func(cs *model.ContentState) *model.ContentState {
			return transaction.RemoveEntitiesAtEdges(cs, sel)
		})
	}
	if v.onSelect != nil {
		v.onSelect(v.sel)
	}
}

func (v *View) clampSelection(sel model.SelectionState) model.SelectionState {
	first := v.cs.FirstBlock()
	anchor := v.cs.BlockForKey(sel.AnchorKey)
	if anchor == nil {
		anchor = first
		sel.AnchorOffset = 0
	}
	focus := v.cs.BlockForKey(sel.FocusKey)
	if focus == nil {
		focus = first
		sel.FocusOffset = 0
	}
	sel.AnchorKey = anchor.Key()
	sel.FocusKey = focus.Key()
	sel.AnchorOffset = min(max(sel.AnchorOffset, 0), anchor.Length())
	sel.FocusOffset = min(max(sel.FocusOffset, 0), focus.Length())
	return v.cs.NormalizeSelection(sel)
}

// apply runs an edit. Contract violations become a status message and
// leave the content untouched.
func (v *View) apply(edit func(cs *model.ContentState) *model.ContentState) bool {
	var err error
	next := func() *model.ContentState {
		defer invariant.Recover(&err)
		return edit(v.cs)
	}()
	if err != nil {
		v.setStatus(err.Error())
		return false
	}
	if next.BlockMap() != v.cs.BlockMap() || next.EntityMap() != v.cs.EntityMap() {
		v.dirty = true
		v.stale = true
	}
	v.cs = next
	return true
}

// edit applies a content change and moves the caret to where it left
// the selection.
func (v *View) edit(fn func(cs *model.ContentState) *model.ContentState) {
	if v.readOnly {
		v.setStatus("read-only")
		return
	}
	if !v.apply(fn) {
		return
	}
	sel := v.cs.SelectionAfter()
	sel.HasFocus = true
	v.sel = v.cs.NormalizeSelection(sel)
	v.styleOverride = nil
	if v.onSelect != nil {
		v.onSelect(v.sel)
	}
}

func (v *View) moveHorizontal(dir int, extend bool) {
	if !extend && !v.sel.IsCollapsed() {
		if dir < 0 {
			v.SetSelection(model.CollapsedAt(v.sel.StartKey(), v.sel.StartOffset()))
		} else {
			v.SetSelection(model.CollapsedAt(v.sel.EndKey(), v.sel.EndOffset()))
		}
		return
	}
	key, offset := v.stepFocus(dir)
	v.moveFocus(key, offset, extend)
}

// stepFocus returns the position one grapheme from the focus, crossing
// into the neighbouring block at an edge.
func (v *View) stepFocus(dir int) (string, int) {
	b := v.cs.BlockForKey(v.sel.FocusKey)
	offset := v.sel.FocusOffset
	if dir < 0 {
		if offset > 0 {
			return b.Key(), unicodeutil.PrevGrapheme(b.Text(), offset)
		}
		if prev := v.cs.BlockBefore(b.Key()); prev != nil {
			return prev.Key(), prev.Length()
		}
		return b.Key(), 0
	}
	if offset < b.Length() {
		return b.Key(), unicodeutil.NextGrapheme(b.Text(), offset)
	}
	if next := v.cs.BlockAfter(b.Key()); next != nil {
		return next.Key(), 0
	}
	return b.Key(), offset
}

func (v *View) moveVertical(dir int, extend bool) {
	var target *model.ContentBlock
	if dir < 0 {
		target = v.cs.BlockBefore(v.sel.FocusKey)
	} else {
		target = v.cs.BlockAfter(v.sel.FocusKey)
	}
	if target == nil {
		return
	}
	offset := min(v.sel.FocusOffset, target.Length())
	if offset < target.Length() {
		// Snap to the start of the grapheme holding offset.
		offset = unicodeutil.PrevGrapheme(target.Text(), offset+1)
	}
	v.moveFocus(target.Key(), offset, extend)
}

func (v *View) moveFocus(key string, offset int, extend bool) {
	if !extend {
		v.SetSelection(model.CollapsedAt(key, offset))
		return
	}
	sel := v.sel
	sel.FocusKey, sel.FocusOffset = key, offset
	v.SetSelection(sel)
}

func (v *View) typeText(text string) {
	style := transaction.CurrentInlineStyle(v.cs, v.sel)
	if v.styleOverride != nil {
		style = *v.styleOverride
	}
	sel := v.sel
	v.edit(func(cs *model.ContentState) *model.ContentState {
		return transaction.InsertTextWithCarry(cs, sel, text, style)
	})
}

func (v *View) deleteBackward() {
	sel := v.sel
	if sel.IsCollapsed() {
		key, offset := v.stepFocus(-1)
		if key == sel.FocusKey && offset == sel.FocusOffset {
			return
		}
		sel = v.cs.NormalizeSelection(model.SelectionState{
			AnchorKey: sel.FocusKey, AnchorOffset: sel.FocusOffset,
			FocusKey: key, FocusOffset: offset,
		})
	}
	v.edit(func(cs *model.ContentState) *model.ContentState {
		return transaction.RemoveRange(cs, sel)
	})
}

func (v *View) deleteForward() {
	sel := v.sel
	if sel.IsCollapsed() {
		key, offset := v.stepFocus(1)
		if key == sel.FocusKey && offset == sel.FocusOffset {
			return
		}
		sel = model.Range(sel.FocusKey, sel.FocusOffset, key, offset)
	}
	v.edit(func(cs *model.ContentState) *model.ContentState {
		return transaction.RemoveRange(cs, sel)
	})
}

func (v *View) splitBlock() {
	sel := v.sel
	v.edit(func(cs *model.ContentState) *model.ContentState {
		return transaction.SplitBlock(cs, sel)
	})
}

// toggleStyle adds style to the selection unless every selected character
// already has it. With a collapsed selection it only changes what the next
// typed text gets.
func (v *View) toggleStyle(style string) {
	current := transaction.CurrentInlineStyle(v.cs, v.sel)
	if v.styleOverride != nil {
		current = *v.styleOverride
	}
	if v.sel.IsCollapsed() {
		next := current.Add(style)
		if current.Has(style) {
			next = current.Remove(style)
		}
		v.styleOverride = &next
		return
	}
	sel := v.sel
	if v.selectionHasStyle(style) {
		v.apply(func(cs *model.ContentState) *model.ContentState {
			return transaction.RemoveInlineStyle(cs, sel, style)
		})
		return
	}
	v.apply(func(cs *model.ContentState) *model.ContentState {
		return transaction.ApplyInlineStyle(cs, sel, style)
	})
}

func (v *View) selectionHasStyle(style string) bool {
	all, seen := true, false
	startKey, endKey := v.sel.StartKey(), v.sel.EndKey()
	inRange := false
	v.cs.BlockMap().Range(func(b *model.ContentBlock) bool {
		if b.Key() == startKey {
			inRange = true
		}
		if !inRange {
			return true
		}
		start, end := 0, b.Length()
		if b.Key() == startKey {
			start = v.sel.StartOffset()
		}
		if b.Key() == endKey {
			end = v.sel.EndOffset()
		}
		for i := start; i < end; i++ {
			seen = true
			if !b.InlineStyleAt(i).Has(style) {
				all = false
				return false
			}
		}
		return b.Key() != endKey
	})
	return seen && all
}

func (v *View) save() {
	if v.readOnly {
		v.setStatus("read-only")
		return
	}
	if v.onSave == nil {
		v.setStatus("no save target")
		return
	}
	if err := v.onSave(v.cs); err != nil {
		v.setStatus("save failed: " + err.Error())
		logger.Named("view").Errorw("save failed", "name", v.name, "error", err)
		return
	}
	v.dirty = false
	v.setStatus("saved")
}
