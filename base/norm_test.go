package base_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

func TestGroupBatchNormStatistics(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	gn, err := base.NewGroupBatchNorm(vs.Root().Sub("gn"), 8, 2)
	require.NoError(t, err)

	x := ts.MustRandn([]int64{2, 8, 6, 6}, gotch.Float, gotch.CPU)
	out := gn.ForwardT(x, true)

	// The affine transform is identity at init, so per-group statistics
	// of the output are those of the normalized tensor.
	grouped := out.MustView([]int64{2, 2, -1}, false)
	mean := grouped.MustMean1([]int64{2}, false, gotch.Float, false)
	std := grouped.MustStd1([]int64{2}, false, false, false)

	for _, m := range mean.Float64Values() {
		require.InDelta(t, 0.0, m, 1e-4)
	}
	for _, s := range std.Float64Values() {
		require.InDelta(t, 1.0, s, 1e-3)
	}

	mean.MustDrop()
	std.MustDrop()
	grouped.MustDrop()
	out.MustDrop()
	x.MustDrop()
}

func TestGroupBatchNormShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	gn, err := base.NewGroupBatchNorm(vs.Root().Sub("gn"), 16, 4)
	require.NoError(t, err)

	x := ts.MustRand([]int64{3, 16, 5, 7}, gotch.Float, gotch.CPU)
	out := gn.ForwardT(x, true)

	require.Equal(t, []int64{3, 16, 5, 7}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestGroupBatchNormBadGroups(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	_, err := base.NewGroupBatchNorm(vs.Root().Sub("gn"), 8, 3)
	require.Error(t, err)

	_, err = base.NewGroupBatchNorm(vs.Root().Sub("gn2"), 8, 0)
	require.Error(t, err)
}

func TestFeatureNormShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	fn := base.NewFeatureNorm(vs.Root().Sub("fn"), 4)

	x := ts.MustRand([]int64{2, 4, 8, 8}, gotch.Float, gotch.CPU)
	out := fn.ForwardT(x, true)

	require.Equal(t, []int64{2, 4, 8, 8}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}
