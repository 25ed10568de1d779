package msdanet_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/msdanet"
)

func TestNewMSDANet(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	_, err := msdanet.New(vs.Root().Sub("net"), msdanet.Config{
		Width:      512,
		Height:     512,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.NoError(t, err)
}

func TestNewMSDANetBadSize(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)

	// Not a multiple of 8.
	_, err := msdanet.New(vs.Root().Sub("net1"), msdanet.Config{
		Width:      500,
		Height:     512,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")

	// Too small for the decision branch.
	_, err = msdanet.New(vs.Root().Sub("net2"), msdanet.Config{
		Width:      64,
		Height:     64,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.Error(t, err)

	// No input channels.
	_, err = msdanet.New(vs.Root().Sub("net3"), msdanet.Config{
		Width:      512,
		Height:     512,
		InChannels: 0,
		Device:     gotch.CPU,
	})
	require.Error(t, err)
}

func TestMSDANetForward(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := msdanet.New(vs.Root().Sub("net"), msdanet.Config{
		Width:      512,
		Height:     512,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.NoError(t, err)

	image := ts.MustRand([]int64{2, 3, 512, 512}, gotch.Float, gotch.CPU)

	ts.NoGrad(func() {
		logit, mask := net.ForwardT(image, false)

		require.Equal(t, []int64{2, 1}, logit.MustSize())
		require.Equal(t, []int64{2, 1, 64, 64}, mask.MustSize())

		logit.MustDrop()
		mask.MustDrop()
	})

	image.MustDrop()
}

func TestMSDANetUnconfiguredMultipliers(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := msdanet.New(vs.Root().Sub("net"), msdanet.Config{
		Width:      128,
		Height:     128,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.NoError(t, err)

	image := ts.MustRand([]int64{1, 3, 128, 128}, gotch.Float, gotch.CPU)

	// Training forward before SetGradientMultipliers is a hard failure.
	require.Panics(t, func() {
		logit, mask := net.ForwardT(image, true)
		logit.MustDrop()
		mask.MustDrop()
	})

	image.MustDrop()
}

func TestMSDANetTrainForward(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	net, err := msdanet.New(vs.Root().Sub("net"), msdanet.Config{
		Width:      128,
		Height:     128,
		InChannels: 3,
		Device:     gotch.CPU,
	})
	require.NoError(t, err)

	net.SetGradientMultipliers(1.0)

	image := ts.MustRand([]int64{2, 3, 128, 128}, gotch.Float, gotch.CPU)
	logit, mask := net.ForwardT(image, true)

	require.Equal(t, []int64{2, 1}, logit.MustSize())
	require.Equal(t, []int64{2, 1, 16, 16}, mask.MustSize())

	logit.MustDrop()
	mask.MustDrop()
	image.MustDrop()
}
