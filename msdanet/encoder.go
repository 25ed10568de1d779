package msdanet

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/base"
)

// Encoder is the ten-block convolution stack with three pooling points:
// after block 1, block 4 and block 8.
type Encoder struct {
	block1  *nn.SequentialT
	stage2  *nn.SequentialT // blocks 2-4
	stage3  *nn.SequentialT // blocks 5-8
	block9  *nn.SequentialT
	block10 *nn.SequentialT
}

// NewEncoder creates an Encoder consuming cIn input channels.
func NewEncoder(p *nn.Path, cIn int64) *Encoder {
	stage2 := nn.SeqT()
	stage2.Add(base.ConvBlock(p.Sub("block2"), chanStage1, chanStage2, 3, 1, 1))
	stage2.Add(base.ConvBlock(p.Sub("block3"), chanStage2, chanStage2, 3, 1, 1))
	stage2.Add(base.ConvBlock(p.Sub("block4"), chanStage2, chanStage2, 3, 1, 1))

	stage3 := nn.SeqT()
	stage3.Add(base.ConvBlock(p.Sub("block5"), chanStage2, chanStage3, 3, 1, 1))
	for i := 6; i <= 8; i++ {
		stage3.Add(base.ConvBlock(p.Sub(fmt.Sprintf("block%d", i)), chanStage3, chanStage3, 3, 1, 1))
	}

	return &Encoder{
		block1:  base.ConvBlock(p.Sub("block1"), cIn, chanStage1, 3, 1, 1),
		stage2:  stage2,
		stage3:  stage3,
		block9:  base.ConvBlock(p.Sub("block9"), chanStage3, chanDeep, 3, 1, 1),
		block10: base.ConvBlock(p.Sub("block10"), chanDeep, chanDeep, 3, 1, 1),
	}
}

// ForwardAll forwards the input and returns the skip pyramid:
// s1 [B 32 H W], s2 [B 64 H/2 W/2], s3 [B 64 H/4 W/4],
// s4 [B 64 H/8 W/8] and deep [B 1024 H/8 W/8].
func (e *Encoder) ForwardAll(x *ts.Tensor, train bool) []*ts.Tensor {
	s1 := e.block1.ForwardT(x, train)
	p1 := base.MaxPool2(s1)
	s2 := e.stage2.ForwardT(p1, train)
	p1.MustDrop()
	p2 := base.MaxPool2(s2)
	s3 := e.stage3.ForwardT(p2, train)
	p2.MustDrop()
	s4 := base.MaxPool2(s3)
	b9 := e.block9.ForwardT(s4, train)
	deep := e.block10.ForwardT(b9, train)
	b9.MustDrop()

	return []*ts.Tensor{s1, s2, s3, s4, deep}
}
