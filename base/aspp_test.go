package base_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

func TestASPPShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	aspp := base.NewASPP(vs.Root().Sub("aspp"), 16, 8)

	x := ts.MustRand([]int64{2, 16, 32, 32}, gotch.Float, gotch.CPU)
	out := aspp.ForwardT(x, false)

	// Depth changes, spatial size is preserved.
	require.Equal(t, []int64{2, 8, 32, 32}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestASPPSmallInput(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	aspp := base.NewASPP(vs.Root().Sub("aspp"), 4, 4)

	// Smaller than the largest dilation: padding still preserves size.
	x := ts.MustRand([]int64{1, 4, 8, 8}, gotch.Float, gotch.CPU)
	out := aspp.ForwardT(x, false)

	require.Equal(t, []int64{1, 4, 8, 8}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}
