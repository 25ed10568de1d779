package metric_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/msdanet/metric"
)

func TestDiceCoeff(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	dice := metric.DiceCoeff(pred, target)
	require.InDelta(t, 0.8571, dice, 1e-4)
}

func TestIoU(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	iou := metric.IoU(pred, target)
	require.InDelta(t, 0.7500, iou, 1e-4)
}

func TestJaccardIndex(t *testing.T) {
	pslice := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	tslice := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	pred := ts.MustOfSlice(pslice).MustView([]int64{1, 3, 3}, true)
	target := ts.MustOfSlice(tslice).MustView([]int64{1, 3, 3}, true)

	// class 0: 5/6, class 1: 3/4
	jac := metric.JaccardIndex(pred, target, 2)
	require.InDelta(t, (5.0/6.0+3.0/4.0)/2, jac, 1e-4)
}

func TestSegLoss(t *testing.T) {
	logit := ts.MustOfSlice([]float64{2.0, -2.0, -2.0, 2.0}).MustView([]int64{1, 1, 2, 2}, true)
	mask := ts.MustOfSlice([]float64{1.0, 0.0, 0.0, 1.0}).MustView([]int64{1, 1, 2, 2}, true)

	loss := metric.SegLoss(logit, mask)
	v := loss.Float64Values()[0]
	loss.MustDrop()

	// Well-separated logits: small but positive loss.
	require.Greater(t, v, 0.0)
	require.Less(t, v, 0.5)
}
