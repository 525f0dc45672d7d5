package spoiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromUTF16(t *testing.T) {
	// The emoji takes two UTF-16 code units and one character.
	text := "😀 hidden part"

	got, err := FromUTF16(text, []Range{{Start: 3, Length: 6}})
	require.NoError(t, err)
	require.Equal(t, []Range{{Start: 2, Length: 6}}, got)

	got, err = FromUTF16(text, []Range{{Start: 0, Length: 2}})
	require.NoError(t, err)
	require.Equal(t, []Range{{Start: 0, Length: 1}}, got)

	got, err = FromUTF16("ascii only", []Range{{Start: 6, Length: 4}})
	require.NoError(t, err)
	require.Equal(t, []Range{{Start: 6, Length: 4}}, got)
}

func TestFromUTF16Invalid(t *testing.T) {
	text := "😀 hidden"

	_, err := FromUTF16(text, []Range{{Start: 1, Length: 2}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = FromUTF16(text, []Range{{Start: 3, Length: 40}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = FromUTF16(text, []Range{{Start: -1, Length: 1}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = FromUTF16(text, []Range{{Start: 2, Length: math.MaxInt}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = FromUTF16(text, []Range{{Start: math.MaxInt, Length: math.MaxInt}})
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestToUTF16(t *testing.T) {
	text := "a😀b😀c"

	got, err := ToUTF16(text, []Range{{Start: 1, Length: 3}, {Start: 4, Length: 1}})
	require.NoError(t, err)
	require.Equal(t, []Range{{Start: 1, Length: 5}, {Start: 6, Length: 1}}, got)

	back, err := FromUTF16(text, got)
	require.NoError(t, err)
	require.Equal(t, []Range{{Start: 1, Length: 3}, {Start: 4, Length: 1}}, back)

	_, err = ToUTF16(text, []Range{{Start: 4, Length: 2}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = ToUTF16(text, []Range{{Start: 1, Length: math.MaxInt}})
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = ToUTF16(text, []Range{{Start: math.MaxInt, Length: 1}})
	require.ErrorIs(t, err, ErrInvalidRange)
}
