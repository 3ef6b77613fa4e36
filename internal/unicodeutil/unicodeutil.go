// Package unicodeutil converts between the three ways document text is
// measured: UTF-8 bytes (Go strings), UTF-16 code units (block offsets and
// per-character metadata), and Unicode scalar values (serialized ranges).
//
// Characters outside the Basic Multilingual Plane occupy two code units but
// one scalar value. Offsets that land inside such a pair round down to the
// start of the pair when slicing, and count the pair when measuring.
package unicodeutil

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// UTF16Len returns the number of UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// Strlen returns the number of scalar values in s.
func Strlen(s string) int {
	return utf8.RuneCountInString(s)
}

// UnitOffset converts a scalar offset into a code-unit offset. Offsets are
// clamped to [0, Strlen(s)].
func UnitOffset(s string, scalar int) int {
	if scalar <= 0 {
		return 0
	}
	units, count := 0, 0
	for _, r := range s {
		if count == scalar {
			break
		}
		units += runeUnits(r)
		count++
	}
	return units
}

// ByteOffset returns the byte index in s at code-unit offset unit.
func ByteOffset(s string, unit int) int {
	if unit <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		n := runeUnits(r)
		if units+n > unit {
			return i
		}
		units += n
	}
	return len(s)
}

// ByteToUnit returns the code-unit offset of byte index off in s.
func ByteToUnit(s string, off int) int {
	if off <= 0 {
		return 0
	}
	if off > len(s) {
		off = len(s)
	}
	return UTF16Len(s[:off])
}

// SliceUnits returns s[start:end) measured in code units.
func SliceUnits(s string, start, end int) string {
	if end < start {
		end = start
	}
	return s[ByteOffset(s, start):ByteOffset(s, end)]
}

// Substr returns length scalars of s starting at scalar start. A negative
// length means "to the end".
func Substr(s string, start, length int) string {
	total := Strlen(s)
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if length >= 0 && start+length < total {
		end = start + length
	}
	return Substring(s, start, end)
}

// Substring returns the scalars of s in [start, end).
func Substring(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	from, to := len(s), len(s)
	count := 0
	for i := range s {
		if count == start {
			from = i
		}
		if count == end {
			to = i
			break
		}
		count++
	}
	if from > to {
		return ""
	}
	return s[from:to]
}

// NextGrapheme returns the code-unit offset of the first grapheme boundary
// after unit, or UTF16Len(s) at the end of the text.
func NextGrapheme(s string, unit int) int {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		_, to := g.Positions()
		if u := ByteToUnit(s, to); u > unit {
			return u
		}
	}
	return UTF16Len(s)
}

// PrevGrapheme returns the code-unit offset of the last grapheme boundary
// before unit, or 0.
func PrevGrapheme(s string, unit int) int {
	prev := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		from, _ := g.Positions()
		u := ByteToUnit(s, from)
		if u >= unit {
			break
		}
		prev = u
	}
	return prev
}
