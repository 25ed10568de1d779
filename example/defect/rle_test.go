package main

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRLE(t *testing.T) {
	rle, err := parseRLE("3 2 10 4")
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 10, 4}, rle)

	rle, err = parseRLE("")
	require.NoError(t, err)
	require.Nil(t, rle)

	_, err = parseRLE("3 2 10")
	require.Error(t, err)

	_, err = parseRLE("3 two")
	require.Error(t, err)
}

func TestRLE2Mask(t *testing.T) {
	// 4x4 image, column-major indexing: run starting at 5 of length 2
	// covers (x=1, y=1) and (x=1, y=2).
	img, err := rle2Mask([]int{5, 2}, []int64{4, 4})
	require.NoError(t, err)

	mask, ok := img.(*image.Gray)
	require.True(t, ok)
	require.Equal(t, uint8(255), mask.GrayAt(1, 1).Y)
	require.Equal(t, uint8(255), mask.GrayAt(1, 2).Y)
	require.Equal(t, uint8(0), mask.GrayAt(0, 0).Y)
	require.Equal(t, uint8(0), mask.GrayAt(1, 3).Y)
}

func TestRLE2MaskOutOfRange(t *testing.T) {
	_, err := rle2Mask([]int{14, 4}, []int64{4, 4})
	require.Error(t, err)
}
