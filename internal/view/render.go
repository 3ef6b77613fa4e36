package view

import (
	"cmp"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/kobzarvs/qdraft/internal/highlight"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/transaction"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

var headerLevels = map[string]int{
	"header-one":   1,
	"header-two":   2,
	"header-three": 3,
	"header-four":  4,
	"header-five":  5,
	"header-six":   6,
}

func (v *View) Render(s tcell.Screen) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}
	v.refreshHighlights()

	statusY := h - 1
	v.viewHeight = max(h-1, 0)
	blocks := v.cs.BlocksAsArray()
	focusRow := v.cs.BlockMap().IndexOf(v.sel.FocusKey)
	v.ensureVisible(focusRow)

	s.SetStyle(v.pal.main)
	s.Clear()

	sel := v.selectionRows()
	depths := treeDepths(v.cs)
	counters := map[int]int{}
	cx, cy := 0, -1
	for i, b := range blocks {
		marker := listMarker(b, counters)
		y := i - v.scroll
		if y < 0 || y >= v.viewHeight {
			continue
		}
		x := v.drawBlock(s, y, w, b, depths[b.Key()], marker, sel.forRow(i))
		if i == focusRow {
			cx, cy = x, y
		}
	}

	if statusY >= 0 {
		v.renderStatusline(s, w, statusY)
	}
	if cy < 0 || v.readOnly {
		s.HideCursor()
	} else {
		s.SetCursorStyle(tcell.CursorStyleSteadyBar)
		s.ShowCursor(min(cx, w-1), cy)
	}
	s.Show()
}

func (v *View) ensureVisible(row int) {
	if row < 0 || v.viewHeight == 0 {
		return
	}
	if row < v.scroll {
		v.scroll = row
	}
	if row >= v.scroll+v.viewHeight {
		v.scroll = row - v.viewHeight + 1
	}
}

// listMarker returns the prefix drawn before a block's text. Ordered list
// items are numbered per depth; any other block restarts the numbering.
func listMarker(b *model.ContentBlock, counters map[int]int) string {
	if b.Type() != "ordered-list-item" {
		clear(counters)
	}
	switch b.Type() {
	case "unordered-list-item":
		return "• "
	case "ordered-list-item":
		for d := range counters {
			if d > b.Depth() {
				delete(counters, d)
			}
		}
		counters[b.Depth()]++
		return strconv.Itoa(counters[b.Depth()]) + ". "
	case "blockquote":
		return "│ "
	case "atomic":
		return "▣ "
	}
	if n, ok := headerLevels[b.Type()]; ok {
		return strings.Repeat("#", n) + " "
	}
	return ""
}

// treeDepths counts ancestors of tree blocks. Flat blocks are absent.
func treeDepths(cs *model.ContentState) map[string]int {
	out := map[string]int{}
	limit := cs.BlockMap().Len()
	for _, b := range cs.BlocksAsArray() {
		if !b.HasTreeLinks() {
			continue
		}
		depth := 0
		for p := b.Parent(); p != "" && depth < limit; depth++ {
			parent := cs.BlockForKey(p)
			if parent == nil {
				break
			}
			p = parent.Parent()
		}
		out[b.Key()] = depth
	}
	return out
}

func (v *View) blockStyle(b *model.ContentBlock) tcell.Style {
	switch {
	case b.Type() == highlight.CodeBlockType:
		return v.pal.code
	case b.Type() == "blockquote":
		return v.pal.quote
	}
	if _, ok := headerLevels[b.Type()]; ok {
		return v.pal.header
	}
	return v.pal.main
}

// drawBlock draws one block on row y and returns the column of the caret
// if the focus is in this block.
func (v *View) drawBlock(s tcell.Screen, y, w int, b *model.ContentBlock, treeDepth int, marker string, sel selRange) int {
	base := v.blockStyle(b)
	depth := b.Depth()
	if b.HasTreeLinks() {
		depth = treeDepth
	}
	x := 0
	for _, r := range strings.Repeat("  ", depth) + marker {
		if x >= w {
			break
		}
		s.SetContent(x, y, r, nil, v.pal.gutter)
		x++
	}
	if b.Type() == highlight.CodeBlockType {
		for cx := x; cx < w; cx++ {
			s.SetContent(cx, y, ' ', nil, base)
		}
	}
	if !b.IsLeaf() && b.Length() == 0 && x < w {
		s.SetContent(x, y, '▾', nil, v.pal.gutter)
	}

	decos := v.decorator.Decorations(b, v.cs)
	spans := v.spans[b.Key()]
	focus := b.Key() == v.sel.FocusKey
	caretX := x

	text := b.Text()
	unit := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		if focus && unit == v.sel.FocusOffset {
			caretX = x
		}
		width := max(g.Width(), 1)
		if x+width <= w {
			runes := g.Runes()
			st := v.cellStyle(b, base, unit, decos, spans)
			if sel.contains(unit) {
				st = st.Foreground(v.pal.selFg).Background(v.pal.selBg)
			}
			s.SetContent(x, y, runes[0], runes[1:], st)
		}
		x += width
		unit += unicodeutil.UTF16Len(cluster)
	}
	if focus && v.sel.FocusOffset >= unit {
		caretX = x
	}
	if sel.eol && x < w {
		s.SetContent(x, y, ' ', nil, base.Background(v.pal.selBg))
	}
	return caretX
}

func (v *View) cellStyle(b *model.ContentBlock, base tcell.Style, unit int, decos []string, spans []highlight.Span) tcell.Style {
	st := base
	for _, name := range b.InlineStyleAt(unit).Items() {
		switch name {
		case "BOLD":
			st = st.Bold(true)
		case "ITALIC":
			st = st.Italic(true)
		case "UNDERLINE":
			st = st.Underline(true)
		case "STRIKETHROUGH":
			st = st.StrikeThrough(true)
		case "CODE":
			st = st.Background(v.pal.codeBg)
		}
	}
	for _, span := range spans {
		if unit >= span.Start && unit < span.End {
			st = st.Foreground(v.pal.syntaxColor(span.Kind))
			break
		}
	}
	if unit < len(decos) && decos[unit] != "" {
		if d, ok := v.decorator.DecoratorForKey(decos[unit]); ok {
			c, ok := v.pal.entities[d.Name]
			if !ok {
				c = v.pal.decoration
			}
			st = st.Foreground(c)
			if d.Name == "LINK" {
				st = st.Underline(true)
			}
		}
	}
	return st
}

// selRange is the selected part of one row, in code units.
type selRange struct {
	start, end int
	eol        bool // selection continues past the end of the row
}

func (r selRange) contains(unit int) bool { return unit >= r.start && unit < r.end }

type selRows struct {
	startRow, startOffset int
	endRow, endOffset     int
	collapsed             bool
}

func (v *View) selectionRows() selRows {
	bm := v.cs.BlockMap()
	return selRows{
		startRow:    bm.IndexOf(v.sel.StartKey()),
		startOffset: v.sel.StartOffset(),
		endRow:      bm.IndexOf(v.sel.EndKey()),
		endOffset:   v.sel.EndOffset(),
		collapsed:   v.sel.IsCollapsed(),
	}
}

func (r selRows) forRow(row int) selRange {
	if r.collapsed || row < r.startRow || row > r.endRow {
		return selRange{}
	}
	out := selRange{start: 0, end: int(^uint(0) >> 1)}
	if row == r.startRow {
		out.start = r.startOffset
	}
	if row == r.endRow {
		out.end = r.endOffset
	} else {
		out.eol = true
	}
	return out
}

func (v *View) renderStatusline(s tcell.Screen, w, y int) {
	name := v.name
	if name == "" {
		name = "[No Name]"
	} else {
		name = filepath.Base(name)
	}
	dirty := ""
	if v.dirty {
		dirty = "*"
	}
	b := v.cs.BlockForKey(v.sel.FocusKey)
	left := fmt.Sprintf(" %s%s | %s ", name, dirty, b.Type())
	if v.status != "" {
		left = fmt.Sprintf(" %s%s | %s | %s ", name, dirty, b.Type(), v.status)
	}
	style := transaction.CurrentInlineStyle(v.cs, v.sel)
	if v.styleOverride != nil {
		style = *v.styleOverride
	}
	right := fmt.Sprintf(" %s:%d", v.sel.FocusKey, v.sel.FocusOffset)
	if label := v.entityLabel(); label != "" {
		right = " " + label + " |" + right
	}
	if !style.IsEmpty() {
		right += " | " + strings.Join(style.Items(), ",")
	}

	for x, r := range composeStatusLine(left, right, w) {
		if x >= w {
			break
		}
		s.SetContent(x, y, r, nil, v.pal.status)
	}
}

// entityTarget is what the status line shows of an entity's data.
type entityTarget struct {
	URL  string `mapstructure:"url"`
	Src  string `mapstructure:"src"`
	Name string `mapstructure:"name"`
}

// entityLabel describes the entity under the caret: its type and target.
func (v *View) entityLabel() string {
	keys := v.cs.EntityAt(v.sel.FocusKey, v.sel.FocusOffset)
	if keys.IsEmpty() && v.sel.FocusOffset > 0 {
		keys = v.cs.EntityAt(v.sel.FocusKey, v.sel.FocusOffset-1)
	}
	for _, key := range keys.Items() {
		e, ok := v.cs.EntityMap().Lookup(key)
		if !ok {
			continue
		}
		var target entityTarget
		if err := e.DecodeData(&target); err != nil {
			logger.Named("view").Debugw("entity data not shown", "key", key, "error", err)
			return e.Type()
		}
		if t := cmp.Or(target.URL, target.Src, target.Name); t != "" {
			return e.Type() + " " + t
		}
		return e.Type()
	}
	return ""
}

func composeStatusLine(left, right string, width int) []rune {
	if width <= 0 {
		return nil
	}
	leftRunes := []rune(left)
	rightRunes := []rune(right)
	if len(leftRunes)+len(rightRunes) > width {
		if len(rightRunes) >= width {
			rightRunes = rightRunes[len(rightRunes)-width:]
			leftRunes = nil
		} else {
			leftRunes = leftRunes[:width-len(rightRunes)]
		}
	}
	line := make([]rune, 0, width)
	line = append(line, leftRunes...)
	for range width - len(leftRunes) - len(rightRunes) {
		line = append(line, ' ')
	}
	return append(line, rightRunes...)
}
