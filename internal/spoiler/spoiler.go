// Package spoiler carries spoiler ranges through text-only media.
//
// Wrap marks each range with a pair of Marker characters; Unwrap scans the marked
// text and returns the plain text together with the recovered ranges. Marker
// characters already present in the input are replaced by Fallback before
// wrapping, so every marker in the output belongs to the protocol.
//
// Offsets and lengths count Unicode code points. Use FromUTF16 and ToUTF16 for
// platforms that express entities in UTF-16 code units. Invalid UTF-8 in the input
// is decoded as U+FFFD, one replacement character per bad byte, and the output
// carries the replacement.
package spoiler

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// Marker delimits a spoiler span in wrapped text.
	Marker = '^'
	// Fallback replaces markers found in source text.
	Fallback = '*'
)

var (
	// ErrInvalidRange reports negative, out of bounds or overlapping ranges.
	ErrInvalidRange = errors.New("invalid spoiler range")
	// ErrMalformedMarkup reports a marker without a closing partner.
	ErrMalformedMarkup = errors.New("malformed spoiler markup")
)

// Range is a half-open span [Start, Start+Length) of characters.
type Range struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// End returns the exclusive end offset.
func (r Range) End() int {
	return r.Start + r.Length
}

// Sanitize replaces every Marker in text with Fallback.
func Sanitize(text string) string {
	return strings.ReplaceAll(text, string(Marker), string(Fallback))
}

// Wrap sanitizes text and surrounds every range with markers.
//
// Ranges may be given in any order; they are sorted by start (stable) on a copy.
// Ranges must lie within text and must not overlap; adjacent and empty ranges are
// allowed. Violations return ErrInvalidRange and no output.
func Wrap(text string, ranges []Range) (string, error) {
	clean := []rune(Sanitize(text))

	sorted := slices.Clone(ranges)
	slices.SortStableFunc(sorted, func(a, b Range) int {
		return cmp.Compare(a.Start, b.Start)
	})
	if err := validate(sorted, len(clean)); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text) + 2*len(sorted))

	prev := 0
	for _, r := range sorted {
		b.WriteString(string(clean[prev:r.Start]))
		b.WriteRune(Marker)
		b.WriteString(string(clean[r.Start:r.End()]))
		b.WriteRune(Marker)
		prev = r.End()
	}
	b.WriteString(string(clean[prev:]))

	return b.String(), nil
}

func validate(sorted []Range, size int) error {
	for i, r := range sorted {
		switch {
		case r.Start < 0 || r.Length < 0:
			return fmt.Errorf("%w: {start:%d length:%d} is negative", ErrInvalidRange, r.Start, r.Length)
		case r.Start > size || r.Length > size-r.Start:
			return fmt.Errorf("%w: {start:%d length:%d} exceeds text of %d characters", ErrInvalidRange, r.Start, r.Length, size)
		case i > 0 && r.Start < sorted[i-1].End():
			prev := sorted[i-1]
			return fmt.Errorf("%w: {start:%d length:%d} overlaps {start:%d length:%d}",
				ErrInvalidRange, r.Start, r.Length, prev.Start, prev.Length)
		}
	}
	return nil
}

// Unwrap removes markers from marked and returns the plain text and the spans
// they delimited, in left to right order. Range offsets refer to the returned text.
//
// A trailing marker without a partner yields ErrMalformedMarkup together with a
// best-effort result: spans closed before it are decoded and the dangling marker
// and everything after it are kept verbatim.
func Unwrap(marked string) (string, []Range, error) {
	var out strings.Builder
	out.Grow(len(marked))
	ranges := []Range{}

	var (
		inside   bool
		written  int // characters written to out
		spanFrom int // character offset in out where the open span began
		openByte int // byte offset of the open marker in marked
		openOut  int // byte length of out when the span opened
	)

	for i, r := range marked {
		if r != Marker {
			out.WriteRune(r)
			written++
			continue
		}
		if inside {
			ranges = append(ranges, Range{Start: spanFrom, Length: written - spanFrom})
			inside = false
			continue
		}
		inside = true
		spanFrom = written
		openByte = i
		openOut = out.Len()
	}

	if inside {
		text := out.String()[:openOut] + marked[openByte:]
		return text, ranges, fmt.Errorf("%w: unmatched marker at character %d", ErrMalformedMarkup, spanFrom)
	}
	return out.String(), ranges, nil
}
