package msdanet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

// Decoder mirrors the encoder's three resolution levels: each stage
// upsamples by 2x and forwards through a conv block.
type Decoder struct {
	up1 *nn.SequentialT
	up2 *nn.SequentialT
	up3 *nn.SequentialT
}

// NewDecoder creates a Decoder consuming the deepest encoder feature.
func NewDecoder(p *nn.Path) *Decoder {
	return &Decoder{
		up1: base.ConvBlock(p.Sub("up1"), chanDeep, chanDec1, 3, 1, 1),
		up2: base.ConvBlock(p.Sub("up2"), chanDec1, chanDec2, 3, 1, 1),
		up3: base.ConvBlock(p.Sub("up3"), chanDec2, chanDec3, 3, 1, 1),
	}
}

// ForwardAll forwards the deepest feature [B 1024 H/8 W/8] and returns
// the decoded maps [d1 [B 64 H/4 W/4], d2 [B 64 H/2 W/2], d3 [B 32 H W]].
func (d *Decoder) ForwardAll(deep *ts.Tensor, train bool) []*ts.Tensor {
	size := deep.MustSize()
	h, w := size[2], size[3]

	u1 := base.Interpolate(deep, []int64{h * 2, w * 2})
	d1 := d.up1.ForwardT(u1, train)
	u1.MustDrop()

	u2 := base.Interpolate(d1, []int64{h * 4, w * 4})
	d2 := d.up2.ForwardT(u2, train)
	u2.MustDrop()

	u3 := base.Interpolate(d2, []int64{h * 8, w * 8})
	d3 := d.up3.ForwardT(u3, train)
	u3.MustDrop()

	return []*ts.Tensor{d1, d2, d3}
}
