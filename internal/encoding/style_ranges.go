package encoding

import (
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/ranges"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

// DecodeInlineStyleRanges expands style ranges into one style set per code
// unit of text.
func DecodeInlineStyleRanges(text string, rs []RawInlineStyleRange) []model.StyleSet {
	out := make([]model.StyleSet, unicodeutil.UTF16Len(text))
	for _, r := range rs {
		start, end := unitSpan(text, r.Offset, r.Length)
		for i := start; i < end; i++ {
			out[i] = out[i].Add(r.Style)
		}
	}
	return out
}

// EncodeInlineStyleRanges emits the maximal runs of every inline style in
// the block, in scalar units.
func EncodeInlineStyleRanges(b *model.ContentBlock) []RawInlineStyleRange {
	chars := b.CharacterList()
	var styles model.StyleSet
	for _, c := range chars {
		styles = styles.Union(c.Style())
	}
	var out []RawInlineStyleRange
	for _, style := range styles.Items() {
		present := make([]bool, len(chars))
		for i, c := range chars {
			present[i] = c.HasStyle(style)
		}
		ranges.Find(present, boolEqual, isTrue, func(start, end int) {
			offset, length := scalarSpan(b.Text(), start, end)
			out = append(out, RawInlineStyleRange{Offset: offset, Length: length, Style: style})
		})
	}
	return out
}
