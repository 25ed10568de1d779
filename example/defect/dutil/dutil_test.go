package dutil_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sugarme/msdanet/example/defect/dutil"
)

type intDataset struct {
	items []int
}

func (ds *intDataset) Len() int { return len(ds.items) }

func (ds *intDataset) Item(idx int) (interface{}, error) {
	return ds.items[idx], nil
}

func (ds *intDataset) DType() reflect.Type {
	return reflect.TypeOf(0)
}

func newIntDataset(n int) *intDataset {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return &intDataset{items: items}
}

func TestBatchSampler(t *testing.T) {
	s, err := dutil.NewBatchSampler(10, 3, false, false)
	require.NoError(t, err)

	batches := s.Sample()
	require.Equal(t, 4, len(batches))
	require.Equal(t, []int{0, 1, 2}, batches[0])
	require.Equal(t, []int{9}, batches[3])
}

func TestBatchSamplerDropLast(t *testing.T) {
	s, err := dutil.NewBatchSampler(10, 3, true, false)
	require.NoError(t, err)

	batches := s.Sample()
	require.Equal(t, 3, len(batches))
	for _, b := range batches {
		require.Equal(t, 3, len(b))
	}
}

func TestBatchSamplerShuffle(t *testing.T) {
	s, err := dutil.NewBatchSampler(100, 10, true, true)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, b := range s.Sample() {
		for _, idx := range b {
			require.False(t, seen[idx])
			seen[idx] = true
		}
	}
	require.Equal(t, 100, len(seen))
}

func TestBatchSamplerInvalid(t *testing.T) {
	_, err := dutil.NewBatchSampler(0, 3, false, false)
	require.Error(t, err)

	_, err = dutil.NewBatchSampler(10, 0, false, false)
	require.Error(t, err)

	_, err = dutil.NewBatchSampler(10, 11, false, false)
	require.Error(t, err)
}

func TestDataLoader(t *testing.T) {
	ds := newIntDataset(7)
	s, err := dutil.NewBatchSampler(ds.Len(), 3, false, false)
	require.NoError(t, err)

	dl, err := dutil.NewDataLoader(ds, s)
	require.NoError(t, err)
	require.Equal(t, 3, dl.Len())

	var got []int
	for dl.HasNext() {
		b, err := dl.Next()
		require.NoError(t, err)
		got = append(got, b.([]int)...)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, got)

	_, err = dl.Next()
	require.Error(t, err)

	dl.Reset()
	require.True(t, dl.HasNext())
}
