package scconv

import (
	"fmt"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

// CRU is the channel reconstruct unit: channels are split into an upper
// and a lower group, squeezed, transformed through grouped/pointwise
// convolutions per group, and the two transforms are fused by a softmax
// channel gate.
// Ref. https://arxiv.org/abs/2306.05032 (SCConv)
type CRU struct {
	opChannel int64
	up        int64
	low       int64

	squeeze1 *nn.Conv2D // 1x1, up -> up/r
	squeeze2 *nn.Conv2D // 1x1, low -> low/r
	gwc      *nn.Conv2D // 3x3 grouped, up/r -> opChannel
	pwc1     *nn.Conv2D // 1x1, up/r -> opChannel
	pwc2     *nn.Conv2D // 1x1, low/r -> opChannel - low/r
}

// NewCRU creates a CRU producing opChannel output channels.
// alpha is the upper-group fraction, squeezeRatio the channel squeeze
// factor and groupSize the grouped-convolution group count.
func NewCRU(p *nn.Path, opChannel int64, alpha float64, squeezeRatio, groupSize int64) (*CRU, error) {
	up := int64(alpha * float64(opChannel))
	low := opChannel - up

	if up < squeezeRatio || low < squeezeRatio {
		return nil, fmt.Errorf("cru: op channel %v too small for split %v/%v at squeeze ratio %v", opChannel, up, low, squeezeRatio)
	}

	upSq := up / squeezeRatio
	lowSq := low / squeezeRatio
	if upSq%groupSize != 0 || opChannel%groupSize != 0 {
		return nil, fmt.Errorf("cru: squeezed upper count %v or op channel %v not divisible by group size %v", upSq, opChannel, groupSize)
	}

	return &CRU{
		opChannel: opChannel,
		up:        up,
		low:       low,
		squeeze1:  base.Conv2dNoBias(p.Sub("squeeze1"), up, upSq, 1, 0, 1),
		squeeze2:  base.Conv2dNoBias(p.Sub("squeeze2"), low, lowSq, 1, 0, 1),
		gwc:       base.Conv2dGrouped(p.Sub("gwc"), upSq, opChannel, groupSize),
		pwc1:      base.Conv2dNoBias(p.Sub("pwc1"), upSq, opChannel, 1, 0, 1),
		pwc2:      base.Conv2dNoBias(p.Sub("pwc2"), lowSq, opChannel-lowSq, 1, 0, 1),
	}, nil
}

// ForwardT implements ts.ModuleT for CRU. The output always has
// opChannel channels at the input spatial size.
func (m *CRU) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	xUp := x.MustNarrow(1, 0, m.up, false)
	xLow := x.MustNarrow(1, m.up, m.low, false)

	upSq := m.squeeze1.ForwardT(xUp, train)
	lowSq := m.squeeze2.ForwardT(xLow, train)
	xUp.MustDrop()
	xLow.MustDrop()

	// Y1: grouped + pointwise transforms of the upper group.
	g := m.gwc.ForwardT(upSq, train)
	pw := m.pwc1.ForwardT(upSq, train)
	upSq.MustDrop()
	y1 := g.MustAdd(pw, true)
	pw.MustDrop()

	// Y2: pointwise transform concatenated with the squeezed lower group.
	p2 := m.pwc2.ForwardT(lowSq, train)
	y2 := ts.MustCat([]ts.Tensor{*p2, *lowSq}, 1)
	p2.MustDrop()
	lowSq.MustDrop()

	both := ts.MustCat([]ts.Tensor{*y1, *y2}, 1) // [B 2*opChannel H W]
	y1.MustDrop()
	y2.MustDrop()

	pooled := both.MustAdaptiveAvgPool2d([]int64{1, 1}, false)
	gate := pooled.MustSoftmax(1, gotch.Float, true)
	weighted := both.MustMul(gate, true)
	gate.MustDrop()

	o1 := weighted.MustNarrow(1, 0, m.opChannel, false)
	o2 := weighted.MustNarrow(1, m.opChannel, m.opChannel, false)
	res := o1.MustAdd(o2, true)
	o2.MustDrop()
	weighted.MustDrop()

	return res
}
