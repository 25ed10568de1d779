package scconv_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/scconv"
)

func TestSRUShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	sru, err := scconv.NewSRU(vs.Root().Sub("sru"), 16, 4, 0.5)
	require.NoError(t, err)

	x := ts.MustRand([]int64{2, 16, 8, 8}, gotch.Float, gotch.CPU)
	out := sru.ForwardT(x, true)

	require.Equal(t, []int64{2, 16, 8, 8}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestSRUOddChannels(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	_, err := scconv.NewSRU(vs.Root().Sub("sru"), 7, 1, 0.5)
	require.Error(t, err)
}

func TestCRUOutputChannels(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	cru, err := scconv.NewCRU(vs.Root().Sub("cru"), 16, 0.5, 2, 2)
	require.NoError(t, err)

	x := ts.MustRand([]int64{2, 16, 8, 8}, gotch.Float, gotch.CPU)
	out := cru.ForwardT(x, true)

	// Output channel count always equals the configured op channel.
	require.Equal(t, []int64{2, 16, 8, 8}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}

func TestCRUTooSmall(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	_, err := scconv.NewCRU(vs.Root().Sub("cru"), 2, 0.5, 2, 2)
	require.Error(t, err)
}

func TestScConvShape(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	sc, err := scconv.NewScConv(vs.Root().Sub("sc"), 64)
	require.NoError(t, err)

	x := ts.MustRand([]int64{2, 64, 16, 16}, gotch.Float, gotch.CPU)
	out := sc.ForwardT(x, true)

	require.Equal(t, []int64{2, 64, 16, 16}, out.MustSize())

	out.MustDrop()
	x.MustDrop()
}
