package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationBatch(t *testing.T) {
	orig := BatchSize
	defer func() { BatchSize = orig }()

	BatchSize = 8
	require.Equal(t, 8, validationBatch(100))
	require.Equal(t, 3, validationBatch(3))
	require.Equal(t, 1, validationBatch(1))
}

func TestEDASummaryEmpty(t *testing.T) {
	var areas []float64
	require.NotPanics(t, func() {
		areas = edaSummary(nil)
	})
	require.Nil(t, areas)
}

func TestEDASummary(t *testing.T) {
	anns := []Annotation{
		{ID: "a", RLE: []int{3, 2, 10, 4}, Label: 1},
		{ID: "b"},
		{ID: "c", RLE: []int{1, 6}, Label: 1},
	}

	areas := edaSummary(anns)
	require.Equal(t, []float64{6, 6}, areas)
}
