package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// binarize thresholds a tensor at 0.5 and returns a double tensor of
// zeros and ones.
func binarize(x *ts.Tensor) *ts.Tensor {
	return x.MustTotype(gotch.Double, false).MustGt(ts.FloatScalar(0.5), true).MustTotype(gotch.Double, true)
}

func sumValue(x *ts.Tensor) float64 {
	return x.MustSum(gotch.Double, false).Float64Values()[0]
}

// DiceCoeff measures overlap between prediction and target after
// thresholding at 0.5: 2*|P∩T| / (|P|+|T|).
// Ref. http://campar.in.tum.de/pub/milletari2016Vnet/milletari2016Vnet.pdf
func DiceCoeff(pred, target *ts.Tensor) float64 {
	p := binarize(pred)
	t := binarize(target)

	pt := p.MustMul(t, false)
	overlap := sumValue(pt)
	pt.MustDrop()
	union := sumValue(p) + sumValue(t)
	p.MustDrop()
	t.MustDrop()

	if union == 0 {
		return 1.0
	}

	return 2 * overlap / union
}

// IoU is intersection over union of the thresholded prediction and
// target.
func IoU(pred, target *ts.Tensor) float64 {
	p := binarize(pred)
	t := binarize(target)

	pt := p.MustMul(t, false)
	overlap := sumValue(pt)
	pt.MustDrop()
	union := sumValue(p) + sumValue(t) - overlap
	p.MustDrop()
	t.MustDrop()

	if union == 0 {
		return 1.0
	}

	return overlap / union
}

// JaccardIndex averages per-class IoU over nClasses integer class
// labels.
func JaccardIndex(pred, target *ts.Tensor, nClasses int64) float64 {
	var total float64
	for c := int64(0); c < nClasses; c++ {
		p := pred.MustEq(ts.IntScalar(c), false).MustTotype(gotch.Double, true)
		t := target.MustEq(ts.IntScalar(c), false).MustTotype(gotch.Double, true)

		pt := p.MustMul(t, false)
		overlap := sumValue(pt)
		pt.MustDrop()
		union := sumValue(p) + sumValue(t) - overlap
		p.MustDrop()
		t.MustDrop()

		if union == 0 {
			total += 1.0
		} else {
			total += overlap / union
		}
	}

	return total / float64(nClasses)
}

// BCEWithLogitsLoss is binary cross entropy with logits, mean reduced.
func BCEWithLogitsLoss(logit, target *ts.Tensor) *ts.Tensor {
	logitR := logit.MustReshape([]int64{-1}, false)
	targetR := target.MustReshape([]int64{-1}, false)

	// NOTE: reduction: none = 0; mean = 1; sum = 2.
	retVal := logitR.MustBinaryCrossEntropyWithLogits(targetR, ts.NewTensor(), ts.NewTensor(), 1, true)
	targetR.MustDrop()

	return retVal
}

// SoftDiceLoss is 1 - soft dice over the last two (spatial) dims,
// averaged over the batch.
// Ref. https://www.jeremyjordan.me/semantic-segmentation
func SoftDiceLoss(x, y *ts.Tensor) *ts.Tensor {
	dims := []int64{-2, -1}
	smooth := 1.0

	xyMul := x.MustMul(y, false)
	tp := xyMul.MustSum1(dims, false, gotch.Double, true)

	y1 := y.MustAdd1(ts.FloatScalar(-1), false)
	xy1Mul := y1.MustMul(x, true)
	fp := xy1Mul.MustSum1(dims, false, gotch.Double, true)

	x1 := x.MustAdd1(ts.FloatScalar(-1), false)
	x1yMul := x1.MustMul(y, true)
	fn := x1yMul.MustSum1(dims, false, gotch.Double, true)

	numerator := tp.MustMul1(ts.FloatScalar(2.0), false).MustAdd1(ts.FloatScalar(smooth), true)
	denominator := numerator.MustAdd(fp, false).MustAdd(fn, true)

	dc := numerator.MustDiv(denominator, true)

	tp.MustDrop()
	fp.MustDrop()
	fn.MustDrop()
	denominator.MustDrop()

	mean := dc.MustMean(gotch.Double, true)
	retVal := mean.MustMul1(ts.FloatScalar(-1), true).MustAdd1(ts.FloatScalar(1), true)

	return retVal
}

// SegLoss is the segmentation objective: weighted BCE with logits plus
// soft dice on the sigmoid probabilities.
func SegLoss(logit, mask *ts.Tensor) *ts.Tensor {
	bce := BCEWithLogitsLoss(logit, mask).MustMul1(ts.FloatScalar(0.8), true)
	prob := logit.MustSigmoid(false)
	dice := SoftDiceLoss(prob, mask).MustMul1(ts.FloatScalar(0.2), true)
	prob.MustDrop()

	retVal := bce.MustAdd(dice, true)
	dice.MustDrop()

	return retVal
}

// ClsLoss is binary cross entropy with logits on the per-example
// defect logit.
func ClsLoss(logit, label *ts.Tensor) *ts.Tensor {
	return BCEWithLogitsLoss(logit, label)
}

// TotalLoss is the joint objective: segWeight*SegLoss + clsWeight*ClsLoss.
func TotalLoss(segLogit, clsLogit, segTarget, clsTarget *ts.Tensor, segWeight, clsWeight float64) *ts.Tensor {
	seg := SegLoss(segLogit, segTarget).MustMul1(ts.FloatScalar(segWeight), true)
	cls := ClsLoss(clsLogit, clsTarget).MustMul1(ts.FloatScalar(clsWeight), true)

	retVal := seg.MustAdd(cls, true)
	cls.MustDrop()

	return retVal
}
