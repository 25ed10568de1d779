package dutil

import (
	"fmt"
	"math/rand"
	"reflect"
)

// Dataset represents a map-style dataset of samples.
type Dataset interface {
	// Item returns the sample at the given index.
	Item(idx int) (interface{}, error)
	// DType returns the reflect.Type of a single sample.
	DType() reflect.Type
	Len() int
}

// Sampler yields index batches over a dataset.
type Sampler interface {
	Sample() [][]int
	BatchSize() int
}

// BatchSampler samples dataset indices in batches, optionally
// shuffled, optionally dropping the last incomplete batch.
type BatchSampler struct {
	n         int
	batchSize int
	dropLast  bool
	shuffle   bool
}

func NewBatchSampler(n, batchSize int, dropLast, shuffle bool) (*BatchSampler, error) {
	if n <= 0 {
		return nil, fmt.Errorf("Invalid dataset size: %v\n", n)
	}
	if batchSize <= 0 || batchSize > n {
		return nil, fmt.Errorf("Invalid batch size: %v (data size %v)\n", batchSize, n)
	}

	return &BatchSampler{
		n:         n,
		batchSize: batchSize,
		dropLast:  dropLast,
		shuffle:   shuffle,
	}, nil
}

func (s *BatchSampler) BatchSize() int {
	return s.batchSize
}

// Sample returns batches of dataset indices.
func (s *BatchSampler) Sample() [][]int {
	indices := make([]int, s.n)
	for i := 0; i < s.n; i++ {
		indices[i] = i
	}

	if s.shuffle {
		rand.Shuffle(s.n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	var batches [][]int
	for start := 0; start < s.n; start += s.batchSize {
		end := start + s.batchSize
		if end > s.n {
			if s.dropLast {
				break
			}
			end = s.n
		}
		batches = append(batches, indices[start:end])
	}

	return batches
}

// DataLoader iterates a dataset in the order given by a sampler,
// returning one batch of samples at a time.
type DataLoader struct {
	dataset Dataset
	batches [][]int
	current int
}

func NewDataLoader(data Dataset, s Sampler) (*DataLoader, error) {
	if data == nil {
		return nil, fmt.Errorf("Dataset is nil.\n")
	}
	if s == nil {
		return nil, fmt.Errorf("Sampler is nil.\n")
	}

	return &DataLoader{
		dataset: data,
		batches: s.Sample(),
		current: 0,
	}, nil
}

// Len returns the number of batches.
func (dl *DataLoader) Len() int {
	return len(dl.batches)
}

func (dl *DataLoader) HasNext() bool {
	return dl.current < len(dl.batches)
}

// Next returns the next batch as a slice of the dataset sample type.
// The concrete return type is []T where T is dataset.DType().
func (dl *DataLoader) Next() (interface{}, error) {
	if !dl.HasNext() {
		return nil, fmt.Errorf("No more data to load.\n")
	}

	indices := dl.batches[dl.current]
	dl.current++

	elemType := dl.dataset.DType()
	batch := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(indices))
	for _, idx := range indices {
		item, err := dl.dataset.Item(idx)
		if err != nil {
			return nil, err
		}
		batch = reflect.Append(batch, reflect.ValueOf(item))
	}

	return batch.Interface(), nil
}

// Reset rewinds the loader to the first batch.
func (dl *DataLoader) Reset() {
	dl.current = 0
}
