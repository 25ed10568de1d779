package main

import (
	"fmt"
	"reflect"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"
)

// DefectDataset implements dutil.Dataset over prepared image/mask png
// pairs. Masks are reduced to 1/8 of the image resolution, matching
// the segmentation output.
type DefectDataset struct {
	anns []Annotation
}

func NewDefectDataset(anns []Annotation) *DefectDataset {
	return &DefectDataset{anns: anns}
}

func (ds *DefectDataset) Len() int {
	return len(ds.anns)
}

// Sample is one training example.
type Sample struct {
	image ts.Tensor // (3, H, W) in [0, 1]
	mask  ts.Tensor // (1, H/8, W/8) in {0, 1}
	label ts.Tensor // (1,) image-level defect label
}

// Item implements the Dataset interface.
func (ds *DefectDataset) Item(idx int) (interface{}, error) {
	ann := ds.anns[idx]
	imgPath := fmt.Sprintf("%v/prep/image/%v.png", DataPath, ann.ID)
	maskPath := fmt.Sprintf("%v/prep/mask/%v.png", DataPath, ann.ID)

	imgTs, err := vision.Load(imgPath)
	if err != nil {
		return nil, err
	}
	img := imgTs.MustDiv1(ts.FloatScalar(255.0), true)

	maskTs, err := vision.Load(maskPath)
	if err != nil {
		img.MustDrop()
		return nil, err
	}

	maskGray, err := rgb2GrayScale(maskTs)
	if err != nil {
		img.MustDrop()
		maskTs.MustDrop()
		return nil, err
	}
	maskTs.MustDrop()

	mask, err := reduceMask(maskGray)
	maskGray.MustDrop()
	if err != nil {
		img.MustDrop()
		return nil, err
	}

	label := ts.MustOfSlice([]float64{ann.Label}).MustTotype(gotch.Float, true)

	return Sample{
		image: *img,
		mask:  *mask,
		label: *label,
	}, nil
}

func (ds *DefectDataset) DType() reflect.Type {
	return reflect.TypeOf(Sample{})
}

// reduceMask downsamples a (H, W) grayscale mask to (1, H/8, W/8) and
// re-binarizes it.
func reduceMask(gray *ts.Tensor) (*ts.Tensor, error) {
	size := gray.MustSize()
	if len(size) != 2 {
		return nil, fmt.Errorf("Expect 2D mask. Got shape %v\n", size)
	}
	h, w := size[0], size[1]
	if h%8 != 0 || w%8 != 0 {
		return nil, fmt.Errorf("Mask size %vx%v is not a multiple of 8.\n", h, w)
	}

	x := gray.MustView([]int64{1, 1, h, w}, false)
	x = x.MustTotype(gotch.Float, true)
	x = x.MustDiv1(ts.FloatScalar(255.0), true)
	small := x.MustUpsampleBilinear2d([]int64{h / 8, w / 8}, false, nil, nil, true)

	bin := small.MustGt(ts.FloatScalar(0.5), true).MustTotype(gotch.Float, true)
	mask := bin.MustSqueeze1(0, true)

	return mask, nil
}

// stackSamples collates a batch into (image, mask, label) tensors.
func stackSamples(samples []Sample) (image, mask, label *ts.Tensor) {
	var images, masks, labels []ts.Tensor
	for _, s := range samples {
		images = append(images, s.image)
		masks = append(masks, s.mask)
		labels = append(labels, s.label)
	}

	image = ts.MustStack(images, 0)
	for _, x := range images {
		x.MustDrop()
	}
	mask = ts.MustStack(masks, 0)
	for _, x := range masks {
		x.MustDrop()
	}
	label = ts.MustStack(labels, 0)
	for _, x := range labels {
		x.MustDrop()
	}

	return image, mask, label
}
