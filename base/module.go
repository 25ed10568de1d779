package base

import (
	"reflect"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dNoBias creates Conv2D with no bias.
func Conv2dNoBias(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dDilated creates a 3x3 Conv2D whose padding matches its dilation
// so the spatial size is preserved.
func Conv2dDilated(p *nn.Path, cIn, cOut, dilation int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Padding = []int64{dilation, dilation}
	config.Dilation = []int64{dilation, dilation}

	return nn.NewConv2D(p, cIn, cOut, 3, config)
}

// Conv2dGrouped creates a 3x3 grouped Conv2D with no bias.
func Conv2dGrouped(p *nn.Path, cIn, cOut, groups int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Bias = false
	config.Padding = []int64{1, 1}
	config.Groups = groups

	return nn.NewConv2D(p, cIn, cOut, 3, config)
}

// ConvBlock creates a SequentialT composing of Conv2D no bias, feature
// norm and a ReLU activation.
func ConvBlock(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2dNoBias(p.Sub("conv"), cIn, cOut, ksize, padding, stride))
	seq.Add(NewFeatureNorm(p.Sub("norm"), cOut))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// MaxPool2 halves the spatial size: [BCHW] => [B C H/2 W/2]
// ksize = 2; stride = 2; padding = 0; dilation = 1; ceil = false
func MaxPool2(x *ts.Tensor) *ts.Tensor {
	return x.MustMaxPool2d([]int64{2, 2}, []int64{2, 2}, []int64{0, 0}, []int64{1, 1}, false, false)
}

// Interpolate resizes x to outSize (HxW) using `bilinear` algorithm.
// x should be in shape [Batch CHW].
func Interpolate(x *ts.Tensor, outSize []int64) *ts.Tensor {
	xSize := x.MustSize()
	if reflect.DeepEqual(xSize[2:], outSize) {
		return x.MustDetach(false)
	}

	return x.MustUpsampleBilinear2d(outSize, false, nil, nil, false)
}
