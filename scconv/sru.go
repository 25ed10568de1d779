package scconv

import (
	"fmt"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

// SRU is the spatial reconstruct unit: channels are weighted by a
// learned informativeness gate, partitioned at a threshold into an
// informative part and a residual part, and the two masked tensors are
// reconstructed by cross-adding their channel halves.
// Ref. https://arxiv.org/abs/2306.05032 (SCConv)
type SRU struct {
	gn        *base.GroupBatchNorm
	channels  int64
	threshold float64
}

// NewSRU creates an SRU. The channel count must be even (for the
// half-split) and divisible by the norm group count.
func NewSRU(p *nn.Path, channels, groups int64, gateThreshold float64) (*SRU, error) {
	if channels%2 != 0 {
		return nil, fmt.Errorf("sru: channel count %v must be even", channels)
	}

	gn, err := base.NewGroupBatchNorm(p.Sub("gn"), channels, groups)
	if err != nil {
		return nil, err
	}

	return &SRU{
		gn:        gn,
		channels:  channels,
		threshold: gateThreshold,
	}, nil
}

// ForwardT implements ts.ModuleT for SRU. Output shape equals input
// shape.
func (m *SRU) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	gn := m.gn.ForwardT(x, train)

	// Per-channel weight: learned scale over the sum of all scales.
	sum := m.gn.Weight.MustSum(gotch.Float, false)
	w := m.gn.Weight.MustDiv(sum, false).MustView([]int64{1, m.channels, 1, 1}, true)
	sum.MustDrop()

	gate := gn.MustMul(w, true).MustSigmoid(true)
	w.MustDrop()

	// Above the threshold a channel element is fully informative on one
	// path and fully suppressed on the other; at or below, the gate value
	// itself is used on both.
	info := gate.MustGt(ts.FloatScalar(m.threshold), false).MustTotype(gotch.Float, true)
	rest := info.MustMul1(ts.FloatScalar(-1), false).MustAdd1(ts.FloatScalar(1), true)

	w2 := rest.MustMul(gate, true) // where(gate > t, 0, gate)
	w1 := w2.MustAdd(info, false)  // where(gate > t, 1, gate)
	info.MustDrop()
	gate.MustDrop()

	x1 := x.MustMul(w1, false)
	x2 := x.MustMul(w2, false)
	w1.MustDrop()
	w2.MustDrop()

	// Cross-sum the channel halves.
	half := m.channels / 2
	x1a := x1.MustNarrow(1, 0, half, false)
	x1b := x1.MustNarrow(1, half, half, false)
	x2a := x2.MustNarrow(1, 0, half, false)
	x2b := x2.MustNarrow(1, half, half, false)

	upper := x1a.MustAdd(x2b, true)
	lower := x1b.MustAdd(x2a, true)
	x2a.MustDrop()
	x2b.MustDrop()
	x1.MustDrop()
	x2.MustDrop()

	res := ts.MustCat([]ts.Tensor{*upper, *lower}, 1)
	upper.MustDrop()
	lower.MustDrop()

	return res
}
