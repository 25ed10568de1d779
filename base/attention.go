package base

import (
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// PixelGate fuses two feature maps of matching shape via a learned
// per-pixel blend weight.
//
// Channel-wise max and mean of both inputs (4 single-channel maps) feed
// a single convolution producing the blend weight w in (0,1); the output
// is in2*w + in1*(1-w), so in2 is favored where w is high.
type PixelGate struct {
	conv *nn.Conv2D
}

// NewPixelGate creates a PixelGate with the given kernel size
// (typically 7; padding = ksize/2 keeps the spatial size).
func NewPixelGate(p *nn.Path, ksize int64) *PixelGate {
	return &PixelGate{
		conv: Conv2d(p.Sub("conv"), 4, 1, ksize, ksize/2, 1),
	}
}

// ForwardT blends in1 and in2. Both must share [B H W]; channel counts
// must match for the blend itself.
func (m *PixelGate) ForwardT(in1, in2 *ts.Tensor, train bool) *ts.Tensor {
	max1 := in1.MustAmax([]int64{1}, true, false)
	mean1 := in1.MustMean1([]int64{1}, true, gotch.Float, false)
	max2 := in2.MustAmax([]int64{1}, true, false)
	mean2 := in2.MustMean1([]int64{1}, true, gotch.Float, false)

	stats := ts.MustCat([]ts.Tensor{*max1, *mean1, *max2, *mean2}, 1)
	max1.MustDrop()
	mean1.MustDrop()
	max2.MustDrop()
	mean2.MustDrop()

	w := m.conv.ForwardT(stats, train).MustSigmoid(true)
	stats.MustDrop()

	// 1 - w
	wInv := w.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)

	second := in2.MustMul(w, false)
	first := in1.MustMul(wInv, false)
	res := second.MustAdd(first, true)

	w.MustDrop()
	wInv.MustDrop()
	first.MustDrop()

	return res
}
