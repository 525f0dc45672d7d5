package spoiler

import (
	"fmt"
	"sort"
	"unicode/utf16"
)

// unitOffsets returns the UTF-16 offset of every character of text, followed by the total length.
func unitOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	units := 0
	for _, r := range text {
		offsets = append(offsets, units)
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		units += n
	}
	return append(offsets, units)
}

// FromUTF16 converts ranges measured in UTF-16 code units of text into character ranges.
// An offset that falls inside a surrogate pair or past the end returns ErrInvalidRange.
func FromUTF16(text string, ranges []Range) ([]Range, error) {
	offsets := unitOffsets(text)
	total := offsets[len(offsets)-1]
	toChar := func(unit int) (int, bool) {
		i := sort.SearchInts(offsets, unit)
		return i, i < len(offsets) && offsets[i] == unit
	}

	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Start < 0 || r.Length < 0 {
			return nil, fmt.Errorf("%w: {start:%d length:%d} is negative", ErrInvalidRange, r.Start, r.Length)
		}
		if r.Start > total || r.Length > total-r.Start {
			return nil, fmt.Errorf("%w: {start:%d length:%d} outside text of %d utf-16 units",
				ErrInvalidRange, r.Start, r.Length, total)
		}
		start, ok := toChar(r.Start)
		if !ok {
			return nil, fmt.Errorf("%w: utf-16 offset %d is not a character boundary", ErrInvalidRange, r.Start)
		}
		end, ok := toChar(r.End())
		if !ok {
			return nil, fmt.Errorf("%w: utf-16 offset %d is not a character boundary", ErrInvalidRange, r.End())
		}
		out = append(out, Range{Start: start, Length: end - start})
	}
	return out, nil
}

// ToUTF16 converts character ranges of text into UTF-16 code unit ranges.
func ToUTF16(text string, ranges []Range) ([]Range, error) {
	offsets := unitOffsets(text)
	size := len(offsets) - 1

	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Start < 0 || r.Length < 0 || r.Start > size || r.Length > size-r.Start {
			return nil, fmt.Errorf("%w: {start:%d length:%d} outside text of %d characters",
				ErrInvalidRange, r.Start, r.Length, size)
		}
		start := offsets[r.Start]
		out = append(out, Range{Start: start, Length: offsets[r.End()] - start})
	}
	return out, nil
}
