package msdanet

import (
	"fmt"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

// The decision sub-network pools the fused volume down to 1/128 of the
// input resolution.
const minInputSize int64 = 128

// Config holds MSDANet construction parameters.
type Config struct {
	Width      int64
	Height     int64
	InChannels int64
	Device     gotch.Device
}

// MSDANet is a dual-head network for surface defect inspection: a
// segmentation head producing a dense mask at 1/8 input resolution, and
// a classification head regressing one defect logit per example from
// the attention-fused multi-scale feature volume and the mask.
//
// Gradient flow from the classification head into the encoder/decoder
// is throttled by three gradient-scale multipliers (fused volume,
// global max statistic, global avg statistic), set in lockstep by
// SetGradientMultipliers. The three are kept separate so they could be
// controlled independently.
type MSDANet struct {
	enc     *Encoder
	dec     *Decoder
	segHead *nn.SequentialT

	aspp0 *base.ASPP // deepest decoder input, 1/8
	aspp1 *base.ASPP // decoder out, 1/4
	aspp2 *base.ASPP // decoder out, 1/2
	aspp3 *base.ASPP // decoder out, 1/1

	gate0 *base.PixelGate
	gate1 *base.PixelGate
	gate2 *base.PixelGate
	gate3 *base.PixelGate

	cls      *Classifier
	gsVolume *base.GradScale

	device gotch.Device
}

// New creates an MSDANet. Width and height must be positive multiples
// of 8 and at least 128.
func New(p *nn.Path, cfg Config) (*MSDANet, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width%8 != 0 || cfg.Height%8 != 0 {
		return nil, fmt.Errorf("msdanet: input size %vx%v must be a positive multiple of 8", cfg.Width, cfg.Height)
	}
	if cfg.Width < minInputSize || cfg.Height < minInputSize {
		return nil, fmt.Errorf("msdanet: input size %vx%v too small, the decision branch pools to 1/%v resolution", cfg.Width, cfg.Height, minInputSize)
	}
	if cfg.InChannels < 1 {
		return nil, fmt.Errorf("msdanet: input channel count %v must be positive", cfg.InChannels)
	}

	if err := checkPlan(cfg.InChannels); err != nil {
		return nil, err
	}

	cls, err := NewClassifier(p.Sub("cls"))
	if err != nil {
		return nil, err
	}

	return &MSDANet{
		enc:      NewEncoder(p.Sub("enc"), cfg.InChannels),
		dec:      NewDecoder(p.Sub("dec")),
		segHead:  base.NewSegmentationHead(p.Sub("seg"), chanDeep, chanMask),
		aspp0:    base.NewASPP(p.Sub("aspp0"), chanDeep, chanFuse0),
		aspp1:    base.NewASPP(p.Sub("aspp1"), chanDec1, chanFuse1),
		aspp2:    base.NewASPP(p.Sub("aspp2"), chanDec2, chanFuse2),
		aspp3:    base.NewASPP(p.Sub("aspp3"), chanDec3, chanFuse3),
		gate0:    base.NewPixelGate(p.Sub("gate0"), 7),
		gate1:    base.NewPixelGate(p.Sub("gate1"), 7),
		gate2:    base.NewPixelGate(p.Sub("gate2"), 7),
		gate3:    base.NewPixelGate(p.Sub("gate3"), 7),
		cls:      cls,
		gsVolume: base.NewGradScale("volume"),
		device:   cfg.Device,
	}, nil
}

// SetGradientMultipliers sets all three gradient-scale multipliers to
// v. The training loop calls this between steps; a training-mode
// forward before the first call fails.
func (n *MSDANet) SetGradientMultipliers(v float64) {
	n.gsVolume.SetScale(v, n.device)
	n.cls.gsMax.SetScale(v, n.device)
	n.cls.gsAvg.SetScale(v, n.device)
}

// ForwardT forwards one batch [B Cin H W] and returns the per-example
// classification logit [B 1] and the segmentation mask [B 1 H/8 W/8].
func (n *MSDANet) ForwardT(x *ts.Tensor, train bool) (logit, mask *ts.Tensor) {
	feats := n.enc.ForwardAll(x, train)
	s1, s2, s3, s4 := feats[0], feats[1], feats[2], feats[3]
	deep := feats[4]

	mask = n.segHead.ForwardT(deep, train) // [B 1 H/8 W/8]

	decs := n.dec.ForwardAll(deep, train)
	d1, d2, d3 := decs[0], decs[1], decs[2]

	// Multi-scale pyramid context, blended against the encoder skips.
	a0 := n.aspp0.ForwardT(deep, train)
	f0 := n.gate0.ForwardT(s4, a0, train) // [B 64 H/8 W/8]
	a0.MustDrop()
	a1 := n.aspp1.ForwardT(d1, train)
	f1 := n.gate1.ForwardT(s3, a1, train) // [B 64 H/4 W/4]
	a1.MustDrop()
	a2 := n.aspp2.ForwardT(d2, train)
	f2 := n.gate2.ForwardT(s2, a2, train) // [B 64 H/2 W/2]
	a2.MustDrop()
	a3 := n.aspp3.ForwardT(d3, train)
	f3 := n.gate3.ForwardT(s1, a3, train) // [B 32 H W]
	a3.MustDrop()

	for _, f := range feats {
		f.MustDrop()
	}
	for _, d := range decs {
		d.MustDrop()
	}

	// Progressive downsample-concatenate, finest level first.
	f2Size := f2.MustSize()
	v1 := base.Interpolate(f3, f2Size[2:])
	c1 := ts.MustCat([]ts.Tensor{*v1, *f2}, 1) // [B 96 H/2 W/2]
	v1.MustDrop()
	f3.MustDrop()
	f2.MustDrop()

	f1Size := f1.MustSize()
	v2 := base.Interpolate(c1, f1Size[2:])
	c2 := ts.MustCat([]ts.Tensor{*v2, *f1}, 1) // [B 160 H/4 W/4]
	v2.MustDrop()
	c1.MustDrop()
	f1.MustDrop()

	f0Size := f0.MustSize()
	v3 := base.Interpolate(c2, f0Size[2:])
	c3 := ts.MustCat([]ts.Tensor{*v3, *f0}, 1) // [B 224 H/8 W/8]
	v3.MustDrop()
	c2.MustDrop()
	f0.MustDrop()

	volume := ts.MustCat([]ts.Tensor{*c3, *mask}, 1) // [B 225 H/8 W/8]
	c3.MustDrop()

	scaled := n.gsVolume.ForwardT(volume, train)
	volume.MustDrop()

	logit = n.cls.ForwardT(scaled, mask, train) // [B 1]
	scaled.MustDrop()

	return logit, mask
}
