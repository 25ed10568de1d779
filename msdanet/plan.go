package msdanet

import "fmt"

// Channel schedule of the network. Every fusion point concatenates or
// blends tensors whose channel counts must line up exactly; the counts
// live here as data and are validated by checkPlan before any layer is
// built.
const (
	chanStage1 int64 = 32   // B1
	chanStage2 int64 = 64   // B2..B4
	chanStage3 int64 = 64   // B5..B8
	chanDeep   int64 = 1024 // B9, B10

	chanDec1 int64 = 64 // decoder at 1/4
	chanDec2 int64 = 64 // decoder at 1/2
	chanDec3 int64 = 32 // decoder at 1/1

	chanMask int64 = 1

	// Fused levels, deepest first. Each equals the encoder skip it is
	// blended with.
	chanFuse0 int64 = chanStage3 // 1/8
	chanFuse1 int64 = chanStage3 // 1/4
	chanFuse2 int64 = chanStage2 // 1/2
	chanFuse3 int64 = chanStage1 // 1/1

	chanVolume int64 = chanFuse3 + chanFuse2 + chanFuse1 + chanFuse0 + chanMask

	chanClsTrunk int64 = 64 // decision path A after ASPP + ScConv
	chanClsMidA  int64 = 16
	chanClsOutA  int64 = 8
	chanClsB1    int64 = 8
	chanClsB2    int64 = 16
	chanClsCatB  int64 = chanClsB2 + chanClsMidA
	chanClsOutB  int64 = 32
	chanClsFeats int64 = chanClsOutA + chanClsOutB

	statCount int64 = 2*chanClsFeats + 2*chanMask
)

// stage is one tensor-transforming step: channels consumed and
// produced. Pooling and resampling steps keep channels and are not
// listed.
type stage struct {
	name string
	in   int64
	out  int64
}

// checkPlan validates the channel schedule: chained stages, blend
// partners and concatenation sums. It runs before any parameter is
// created so a misconfigured graph fails at construction, not mid
// forward pass.
func checkPlan(cIn int64) error {
	chains := [][]stage{
		{
			{"block1", cIn, chanStage1},
			{"block2", chanStage1, chanStage2},
			{"block3", chanStage2, chanStage2},
			{"block4", chanStage2, chanStage2},
			{"block5", chanStage2, chanStage3},
			{"block6", chanStage3, chanStage3},
			{"block7", chanStage3, chanStage3},
			{"block8", chanStage3, chanStage3},
			{"block9", chanStage3, chanDeep},
			{"block10", chanDeep, chanDeep},
		},
		{
			{"up1", chanDeep, chanDec1},
			{"up2", chanDec1, chanDec2},
			{"up3", chanDec2, chanDec3},
		},
		{
			{"clsAspp", chanVolume, chanClsTrunk},
			{"clsScConv", chanClsTrunk, chanClsTrunk},
			{"clsConvA1", chanClsTrunk, chanClsMidA},
			{"clsConvA2", chanClsMidA, chanClsOutA},
		},
		{
			{"clsConvB1", chanVolume, chanClsB1},
			{"clsConvB2", chanClsB1, chanClsB2},
		},
	}

	for _, chain := range chains {
		for i := 1; i < len(chain); i++ {
			if chain[i].in != chain[i-1].out {
				return fmt.Errorf("channel plan: %v consumes %v channels but %v produces %v", chain[i].name, chain[i].in, chain[i-1].name, chain[i-1].out)
			}
		}
	}

	// Attention blends require matching channel counts on both inputs.
	blends := []struct {
		name       string
		skip, aspp int64
	}{
		{"fuse0", chanStage3, chanFuse0},
		{"fuse1", chanStage3, chanFuse1},
		{"fuse2", chanStage2, chanFuse2},
		{"fuse3", chanStage1, chanFuse3},
	}
	for _, b := range blends {
		if b.skip != b.aspp {
			return fmt.Errorf("channel plan: %v blends %v encoder channels with %v pyramid channels", b.name, b.skip, b.aspp)
		}
	}

	// Concatenation points.
	if got := chanFuse3 + chanFuse2 + chanFuse1 + chanFuse0 + chanMask; got != chanVolume {
		return fmt.Errorf("channel plan: fused volume sums to %v channels, want %v", got, chanVolume)
	}
	if got := chanClsB2 + chanClsMidA; got != chanClsCatB {
		return fmt.Errorf("channel plan: clsConvB3 consumes %v channels but its concat produces %v", chanClsCatB, got)
	}
	if got := 2*chanClsFeats + 2*chanMask; got != statCount {
		return fmt.Errorf("channel plan: global statistics sum to %v, want %v", got, statCount)
	}

	return nil
}
