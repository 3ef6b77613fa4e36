// Package ranges finds maximal runs in a sequence.
package ranges

// Range is a half-open index range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of elements covered by r.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether offset lies within [Start, End].
// The end is inclusive so a caret sitting right after a run still touches it.
func (r Range) Contains(offset int) bool {
	return r.Start <= offset && offset <= r.End
}

// Find walks items and calls found once for every maximal run in which
// each adjacent pair satisfies areEqual and whose last element satisfies
// filter. Runs are reported left to right.
func Find[T any](items []T, areEqual func(a, b T) bool, filter func(T) bool, found func(start, end int)) {
	if len(items) == 0 {
		return
	}
	cursor := 0
	for i := 1; i < len(items); i++ {
		prev := items[i-1]
		if areEqual(prev, items[i]) {
			continue
		}
		if filter(prev) {
			found(cursor, i)
		}
		cursor = i
	}
	if filter(items[len(items)-1]) {
		found(cursor, len(items))
	}
}
