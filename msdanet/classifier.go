package msdanet

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
	"github.com/sugarme/msdanet/scconv"
)

// Classifier is the decision sub-network: it re-processes the fused
// multi-scale volume together with the segmentation mask through two
// convolution paths, pools globally and regresses a single logit per
// example.
type Classifier struct {
	aspp   *base.ASPP
	sc     *scconv.ScConv
	convA1 *nn.SequentialT
	convA2 *nn.SequentialT

	convB1 *nn.SequentialT
	convB2 *nn.SequentialT
	convB3 *nn.SequentialT

	fc *nn.Linear

	gsMax *base.GradScale
	gsAvg *base.GradScale
}

// NewClassifier creates the decision sub-network.
func NewClassifier(p *nn.Path) (*Classifier, error) {
	sc, err := scconv.NewScConv(p.Sub("scconv"), chanClsTrunk)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		aspp:   base.NewASPP(p.Sub("aspp"), chanVolume, chanClsTrunk),
		sc:     sc,
		convA1: base.ConvBlock(p.Sub("convA1"), chanClsTrunk, chanClsMidA, 3, 1, 1),
		convA2: base.ConvBlock(p.Sub("convA2"), chanClsMidA, chanClsOutA, 3, 1, 1),
		convB1: base.ConvBlock(p.Sub("convB1"), chanVolume, chanClsB1, 3, 1, 1),
		convB2: base.ConvBlock(p.Sub("convB2"), chanClsB1, chanClsB2, 3, 1, 1),
		convB3: base.ConvBlock(p.Sub("convB3"), chanClsCatB, chanClsOutB, 3, 1, 1),
		fc:     nn.NewLinear(p.Sub("fc"), statCount, 1, nn.DefaultLinearConfig()),
		gsMax:  base.NewGradScale("globMax"),
		gsAvg:  base.NewGradScale("globAvg"),
	}, nil
}

// ForwardT forwards the gradient-scaled volume [B 225 H/8 W/8] and the
// segmentation mask [B 1 H/8 W/8]; returns the logit [B 1].
func (c *Classifier) ForwardT(volume, mask *ts.Tensor, train bool) *ts.Tensor {
	batch := volume.MustSize()[0]

	v := base.MaxPool2(volume) // [B 225 H/16 W/16]

	// Path A: pyramid context + split-reconstruct trunk.
	a0 := c.aspp.ForwardT(v, train)
	a1 := c.sc.ForwardT(a0, train)
	a0.MustDrop()
	aMid := c.convA1.ForwardT(a1, train) // [B 16 H/16 W/16]
	a1.MustDrop()
	aOut := c.convA2.ForwardT(aMid, train) // [B 8 H/16 W/16]

	// Path B: strided conv stack with a mid-level injection of path A.
	b1 := c.convB1.ForwardT(v, train)
	v.MustDrop()
	b1p := base.MaxPool2(b1) // [B 8 H/32 W/32]
	b1.MustDrop()
	b2 := c.convB2.ForwardT(b1p, train)
	b1p.MustDrop()
	b2p := base.MaxPool2(b2) // [B 16 H/64 W/64]
	b2.MustDrop()

	b2pSize := b2p.MustSize()
	aMidDown := base.Interpolate(aMid, b2pSize[2:]) // [B 16 H/64 W/64]
	aMid.MustDrop()
	bCat := ts.MustCat([]ts.Tensor{*b2p, *aMidDown}, 1) // [B 32 H/64 W/64]
	b2p.MustDrop()
	aMidDown.MustDrop()
	b3 := c.convB3.ForwardT(bCat, train)
	bCat.MustDrop()
	bOut := base.MaxPool2(b3) // [B 32 H/128 W/128]
	b3.MustDrop()

	bOutSize := bOut.MustSize()
	aDown := base.Interpolate(aOut, bOutSize[2:]) // [B 8 H/128 W/128]
	aOut.MustDrop()
	feats := ts.MustCat([]ts.Tensor{*aDown, *bOut}, 1) // [B 40 H/128 W/128]
	aDown.MustDrop()
	bOut.MustDrop()

	// Global statistics of the decision features and the mask.
	fMax := feats.MustAmax([]int64{2, 3}, true, false)
	fAvg := feats.MustAdaptiveAvgPool2d([]int64{1, 1}, false)
	feats.MustDrop()

	sMaxRaw := mask.MustAmax([]int64{2, 3}, true, false)
	sAvgRaw := mask.MustAdaptiveAvgPool2d([]int64{1, 1}, false)
	sMax := c.gsMax.ForwardT(sMaxRaw, train)
	sMaxRaw.MustDrop()
	sAvg := c.gsAvg.ForwardT(sAvgRaw, train)
	sAvgRaw.MustDrop()

	fMaxFlat := fMax.MustView([]int64{batch, -1}, true)
	fAvgFlat := fAvg.MustView([]int64{batch, -1}, true)
	sMaxFlat := sMax.MustView([]int64{batch, -1}, true)
	sAvgFlat := sAvg.MustView([]int64{batch, -1}, true)

	stats := ts.MustCat([]ts.Tensor{*fMaxFlat, *fAvgFlat, *sMaxFlat, *sAvgFlat}, 1) // [B 82]
	fMaxFlat.MustDrop()
	fAvgFlat.MustDrop()
	sMaxFlat.MustDrop()
	sAvgFlat.MustDrop()

	logit := c.fc.Forward(stats) // [B 1]
	stats.MustDrop()

	return logit
}
