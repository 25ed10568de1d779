package base_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

func TestGradScaleForwardIdentity(t *testing.T) {
	gs := base.NewGradScale("volume")
	gs.SetScale(0.25, gotch.CPU)

	x := ts.MustOfSlice([]float64{1.5, -2.0, 0.0, 3.25}).MustView([]int64{1, 4}, true)
	out := gs.ForwardT(x, true)

	require.Equal(t, x.Float64Values(), out.Float64Values())

	out.MustDrop()
	x.MustDrop()
}

func TestGradScaleBackward(t *testing.T) {
	gs := base.NewGradScale("volume")
	gs.SetScale(0.5, gotch.CPU)

	x := ts.MustOfSlice([]float64{1.0, 2.0, 3.0}).MustSetRequiresGrad(true, false)
	out := gs.ForwardT(x, true)
	loss := out.MustSum(gotch.Double, false)
	loss.MustBackward()

	grad := x.MustGrad(false)
	for _, g := range grad.Float64Values() {
		require.InDelta(t, 0.5, g, 1e-6)
	}

	grad.MustDrop()
	loss.MustDrop()
	out.MustDrop()
	x.MustDrop()
}

func TestGradScaleUnitMultiplier(t *testing.T) {
	gs := base.NewGradScale("volume")
	gs.SetScale(1.0, gotch.CPU)

	x := ts.MustOfSlice([]float64{-1.0, 4.0}).MustSetRequiresGrad(true, false)
	out := gs.ForwardT(x, true)
	require.Equal(t, x.Float64Values(), out.Float64Values())

	loss := out.MustSum(gotch.Double, false)
	loss.MustBackward()

	grad := x.MustGrad(false)
	for _, g := range grad.Float64Values() {
		require.InDelta(t, 1.0, g, 1e-6)
	}

	grad.MustDrop()
	loss.MustDrop()
	out.MustDrop()
	x.MustDrop()
}

func TestGradScaleUnconfigured(t *testing.T) {
	gs := base.NewGradScale("globMax")
	require.False(t, gs.Configured())

	x := ts.MustOfSlice([]float64{1.0, 2.0})

	// Training forward without a configured multiplier is a hard failure.
	require.Panics(t, func() {
		gs.ForwardT(x, true)
	})

	// Inference forward has no gradient to scale and passes through.
	out := gs.ForwardT(x, false)
	require.Equal(t, x.Float64Values(), out.Float64Values())

	out.MustDrop()
	x.MustDrop()
}
