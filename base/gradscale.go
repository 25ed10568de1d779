package base

import (
	"fmt"

	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// GradScale is a pass-through operator: forward returns its input
// unchanged while backward rescales the incoming gradient by an
// externally configured multiplier. The multiplier receives no gradient
// itself.
//
// The multiplier has no default. The training loop must call SetScale
// before any training-mode forward pass; an unconfigured training
// forward is a hard failure rather than a silent no-op that would change
// training dynamics.
type GradScale struct {
	name string
	mask *ts.Tensor
}

// NewGradScale creates an unconfigured GradScale.
func NewGradScale(name string) *GradScale {
	return &GradScale{name: name}
}

// SetScale installs the gradient multiplier, replacing any previous one.
func (m *GradScale) SetScale(v float64, device gotch.Device) {
	if m.mask != nil {
		m.mask.MustDrop()
	}

	m.mask = ts.MustOfSlice([]float64{v}).MustTotype(gotch.Float, true).MustTo(device, true)
}

// Configured reports whether a multiplier has been set.
func (m *GradScale) Configured() bool {
	return m.mask != nil
}

// ForwardT implements ts.ModuleT for GradScale.
//
// The output is computed as detach(x) + (x - detach(x)) * mask: the
// non-detached term is exactly zero in forward, so the output is
// bit-identical to the input, while the only gradient path runs through
// the mask product.
func (m *GradScale) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	if !train {
		// No gradient exists to scale.
		return x.MustDetach(false)
	}

	if m.mask == nil {
		panic(fmt.Sprintf("grad scale %q: multiplier not configured", m.name))
	}

	xd := x.MustDetach(false)
	diff := x.MustSub(xd, false)
	scaled := diff.MustMul(m.mask, true)
	res := xd.MustAdd(scaled, true)
	scaled.MustDrop()

	return res
}
