package base

import (
	"fmt"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// GroupBatchNorm normalizes grouped channel statistics of a [BCHW]
// tensor, then applies a learned per-channel affine transform.
//
// Channels are viewed as `Groups` groups; mean and standard deviation
// are computed per group per batch element over the grouped channel and
// spatial elements.
type GroupBatchNorm struct {
	Weight *ts.Tensor // [C 1 1]
	Bias   *ts.Tensor // [C 1 1]
	Groups int64
	Eps    float64
}

// NewGroupBatchNorm creates GroupBatchNorm.
// Fails if the channel count is not divisible by the group count.
func NewGroupBatchNorm(p *nn.Path, channels, groups int64) (*GroupBatchNorm, error) {
	if groups < 1 || channels%groups != 0 {
		return nil, fmt.Errorf("group batch norm: channel count %v is not divisible by group count %v", channels, groups)
	}

	return &GroupBatchNorm{
		Weight: p.Ones("weight", []int64{channels, 1, 1}),
		Bias:   p.Zeros("bias", []int64{channels, 1, 1}),
		Groups: groups,
		Eps:    1e-10,
	}, nil
}

// NewFeatureNorm creates the per-channel variant (group count tied to
// the channel count) used after every convolution block.
func NewFeatureNorm(p *nn.Path, channels int64) *GroupBatchNorm {
	// groups == channels always divides
	fn, _ := NewGroupBatchNorm(p, channels, channels)
	return fn
}

// ForwardT implements ts.ModuleT for GroupBatchNorm.
func (m *GroupBatchNorm) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	size := x.MustSize() // [B C H W]

	grouped := x.MustView([]int64{size[0], m.Groups, -1}, false)
	mean := grouped.MustMean1([]int64{2}, true, gotch.Float, false)
	std := grouped.MustStd1([]int64{2}, false, true, false)
	sd := std.MustAdd1(ts.FloatScalar(m.Eps), true)

	norm := grouped.MustSub(mean, true).MustDiv(sd, true)
	mean.MustDrop()
	sd.MustDrop()

	scaled := norm.MustView(size, true).MustMul(m.Weight, true)
	res := scaled.MustAdd(m.Bias, true)

	return res
}
