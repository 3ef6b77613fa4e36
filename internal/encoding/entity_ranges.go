package encoding

import (
	"github.com/kobzarvs/qdraft/internal/model"
	"github.com/kobzarvs/qdraft/internal/ranges"
	"github.com/kobzarvs/qdraft/internal/unicodeutil"
)

// DecodeEntityRanges expands ranges into one entity set per code unit of
// text. Offsets and lengths are scalar counts; overlapping ranges
// accumulate.
func DecodeEntityRanges(text string, rs []RawEntityRange) []model.EntitySet {
	out := make([]model.EntitySet, unicodeutil.UTF16Len(text))
	for _, r := range rs {
		start, end := unitSpan(text, r.Offset, r.Length)
		for i := start; i < end; i++ {
			out[i] = out[i].Add(string(r.Key))
		}
	}
	return out
}

// EncodeEntityRanges emits the maximal runs of every entity key present in
// the block, in scalar units. Keys appear in first-seen order and each
// key's ranges run left to right.
func EncodeEntityRanges(b *model.ContentBlock) []RawEntityRange {
	chars := b.CharacterList()
	var out []RawEntityRange
	for _, key := range entityKeys(chars) {
		present := make([]bool, len(chars))
		for i, c := range chars {
			present[i] = c.HasEntity(key)
		}
		ranges.Find(present, boolEqual, isTrue, func(start, end int) {
			offset, length := scalarSpan(b.Text(), start, end)
			out = append(out, RawEntityRange{Offset: offset, Length: length, Key: RawKey(key)})
		})
	}
	return out
}

func entityKeys(chars []*model.CharacterMetadata) []string {
	var seen model.EntitySet
	for _, c := range chars {
		seen = seen.Union(c.Entity())
	}
	return seen.Items()
}

func boolEqual(a, b bool) bool { return a == b }
func isTrue(v bool) bool       { return v }

// unitSpan converts a scalar offset and length into a code-unit
// [start,end). Spans are clipped to the text.
func unitSpan(text string, offset, length int) (int, int) {
	if length <= 0 {
		return 0, 0
	}
	start, end := max(offset, 0), offset+length
	if end <= start {
		return 0, 0
	}
	return unicodeutil.UnitOffset(text, start), unicodeutil.UnitOffset(text, end)
}

func scalarSpan(text string, start, end int) (int, int) {
	offset := unicodeutil.Strlen(unicodeutil.SliceUnits(text, 0, start))
	return offset, unicodeutil.Strlen(unicodeutil.SliceUnits(text, start, end))
}
