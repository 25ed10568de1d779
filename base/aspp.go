package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// ASPP is atrous spatial pyramid pooling: a global-pooled branch plus
// four parallel convolutions at growing dilation rates, concatenated and
// fused back to `depth` channels by a 1x1 convolution.
// Ref. https://arxiv.org/abs/1706.05587
type ASPP struct {
	pool *nn.Conv2D // 1x1 on the global-pooled branch
	c1   *nn.Conv2D // 1x1
	d6   *nn.Conv2D // 3x3, dilation 6
	d12  *nn.Conv2D // 3x3, dilation 12
	d18  *nn.Conv2D // 3x3, dilation 18
	fuse *nn.Conv2D // 1x1, 5*depth -> depth
}

// NewASPP creates an ASPP block mapping cIn to depth channels.
func NewASPP(p *nn.Path, cIn, depth int64) *ASPP {
	return &ASPP{
		pool: Conv2d(p.Sub("pool"), cIn, depth, 1, 0, 1),
		c1:   Conv2d(p.Sub("c1"), cIn, depth, 1, 0, 1),
		d6:   Conv2dDilated(p.Sub("d6"), cIn, depth, 6),
		d12:  Conv2dDilated(p.Sub("d12"), cIn, depth, 12),
		d18:  Conv2dDilated(p.Sub("d18"), cIn, depth, 18),
		fuse: Conv2d(p.Sub("fuse"), 5*depth, depth, 1, 0, 1),
	}
}

// ForwardT implements ts.ModuleT for ASPP. Spatial size is preserved.
func (m *ASPP) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	size := x.MustSize()

	avg := x.MustAdaptiveAvgPool2d([]int64{1, 1}, false)
	pooled := m.pool.ForwardT(avg, train).MustRelu(true)
	avg.MustDrop()
	global := Interpolate(pooled, size[2:])
	pooled.MustDrop()

	b1 := m.c1.ForwardT(x, train).MustRelu(true)
	b6 := m.d6.ForwardT(x, train).MustRelu(true)
	b12 := m.d12.ForwardT(x, train).MustRelu(true)
	b18 := m.d18.ForwardT(x, train).MustRelu(true)

	cat := ts.MustCat([]ts.Tensor{*global, *b1, *b6, *b12, *b18}, 1)
	global.MustDrop()
	b1.MustDrop()
	b6.MustDrop()
	b12.MustDrop()
	b18.MustDrop()

	res := m.fuse.ForwardT(cat, train)
	cat.MustDrop()

	return res
}
