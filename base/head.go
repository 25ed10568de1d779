package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates new SegmentationHead (nn.SequentialT):
// a 1x1 convolution followed by feature norm. It keeps the input
// resolution; it is not an upsampling head.
func NewSegmentationHead(p *nn.Path, cIn, cOut int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2d(p.Sub("conv"), cIn, cOut, 1, 0, 1))
	seq.Add(NewFeatureNorm(p.Sub("norm"), cOut))

	return seq
}
