package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sugarme/msdanet/example/defect/dutil"
	"github.com/sugarme/msdanet/metric"
	"github.com/sugarme/msdanet/msdanet"
)

// loss weights for the joint objective
const (
	segWeight = 1.0
	clsWeight = 0.1
)

func buildNet(vs *nn.VarStore) *msdanet.MSDANet {
	net, err := msdanet.New(vs.Root().Sub("msdanet"), msdanet.Config{
		Width:      int64(ImageSize),
		Height:     int64(ImageSize),
		InChannels: 3,
		Device:     Device,
	})
	if err != nil {
		log.Fatal(err)
	}
	return net
}

func buildOptimizer(vs *nn.VarStore) *nn.Optimizer {
	var (
		opt *nn.Optimizer
		err error
	)
	switch OptStr {
	case "SGD":
		opt, err = nn.DefaultSGDConfig().Build(vs, LR)
	case "Adam":
		opt, err = nn.DefaultAdamConfig().Build(vs, LR)
	default:
		err = fmt.Errorf("Unspecified/Invalid Optimizer option: '%v'.\n", OptStr)
	}
	if err != nil {
		log.Fatal(err)
	}
	return opt
}

// gradMultiplier ramps the backward multipliers linearly from 0 to 1
// over the warm-up period, so the decision branch does not disturb the
// segmentation branch early in training.
func gradMultiplier(step int) float64 {
	if GradWarmup <= 0 || step >= GradWarmup {
		return 1.0
	}
	return float64(step) / float64(GradWarmup)
}

// trainSplit reads prepared samples and splits off a validation set.
func trainSplit() (train, valid []Annotation) {
	annFile := fmt.Sprintf("%v/annotations.csv", DataPath)
	anns, err := readAnnotations(annFile)
	if err != nil {
		log.Fatal(err)
	}

	prepImgPath := fmt.Sprintf("%v/prep/image", DataPath)
	files, err := ioutil.ReadDir(prepImgPath)
	if err != nil {
		log.Fatal(err)
	}
	prepared := make(map[string]bool)
	for _, f := range files {
		id := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		prepared[id] = true
	}

	// every 5th sample goes to validation
	n := 0
	for _, ann := range anns {
		if !prepared[ann.ID] {
			continue
		}
		if n%5 == 4 {
			valid = append(valid, ann)
		} else {
			train = append(train, ann)
			// augmented copies always train
			if augID := ann.ID + "_aug"; prepared[augID] {
				aug := ann
				aug.ID = augID
				train = append(train, aug)
			}
		}
		n++
	}

	if len(train) == 0 {
		log.Fatal("No prepared training samples found. Run the 'image' task first.")
	}

	return train, valid
}

func runTrain() {
	trainAnns, validAnns := trainSplit()
	fmt.Printf("Samples: %v train / %v validation\n", len(trainAnns), len(validAnns))

	vs := nn.NewVarStore(Device)
	net := buildNet(vs)
	opt := buildOptimizer(vs)

	trainDS := NewDefectDataset(trainAnns)

	var lossHistory []float64
	step := 0
	for epoch := 0; epoch < Epochs; epoch++ {
		s, err := dutil.NewBatchSampler(trainDS.Len(), BatchSize, true, true)
		if err != nil {
			log.Fatal(err)
		}
		trainDL, err := dutil.NewDataLoader(trainDS, s)
		if err != nil {
			log.Fatal(err)
		}

		var epochLoss float64
		var batches int
		for trainDL.HasNext() {
			if step != 0 && step%ValidateSize == 0 && len(validAnns) > 0 {
				doValidate(net, validAnns)
			}

			b, err := trainDL.Next()
			if err != nil {
				log.Fatal(err)
			}

			imgTs, maskTs, labelTs := stackSamples(b.([]Sample))

			net.SetGradientMultipliers(gradMultiplier(step))
			step++
			batches++

			input := imgTs.MustTo(Device, true)
			clsLogit, segLogit := net.ForwardT(input, true)
			input.MustDrop()

			segTarget := maskTs.MustTo(Device, true)
			clsTarget := labelTs.MustTo(Device, true)
			loss := metric.TotalLoss(segLogit, clsLogit, segTarget, clsTarget, segWeight, clsWeight)
			segLogit.MustDrop()
			clsLogit.MustDrop()
			segTarget.MustDrop()
			clsTarget.MustDrop()

			opt.BackwardStep(loss)

			lossVal := loss.Float64Values()[0]
			loss.MustDrop()
			epochLoss += lossVal
			lossHistory = append(lossHistory, lossVal)

			fmt.Printf("Epoch %v\t Batch %v\t Loss: %.5f\n", epoch, batches, lossVal)
		}

		fmt.Printf("Epoch %v\t Avg Loss: %.5f\n", epoch, epochLoss/float64(batches))

		checkpoint := fmt.Sprintf("%v.epoch%v", ModelPath, epoch)
		if err := vs.Save(checkpoint); err != nil {
			log.Fatal(err)
		}
	}

	if err := vs.Save(ModelPath); err != nil {
		log.Fatal(err)
	}

	if err := plotLoss(lossHistory, "train-loss.png"); err != nil {
		log.Println(err)
	}
}

// plotLoss writes the per-batch loss curve.
func plotLoss(losses []float64, filename string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Training Loss"
	p.X.Label.Text = "batch"
	p.Y.Label.Text = "loss"

	pts := make(plotter.XYs, len(losses))
	for i, v := range losses {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

// validationBatch clamps the configured batch size to the validation
// set size, which can be smaller than -batch.
func validationBatch(n int) int {
	if BatchSize > n {
		return n
	}
	return BatchSize
}

func doValidate(net *msdanet.MSDANet, anns []Annotation) {
	validDS := NewDefectDataset(anns)
	s, err := dutil.NewBatchSampler(validDS.Len(), validationBatch(validDS.Len()), false, false) // no shuffle
	if err != nil {
		log.Fatal(err)
	}
	validDL, err := dutil.NewDataLoader(validDS, s)
	if err != nil {
		log.Fatal(err)
	}

	var (
		lossSum float64
		diceSum float64
		correct int
		total   int
		batches int
	)
	for validDL.HasNext() {
		b, err := validDL.Next()
		if err != nil {
			log.Fatal(err)
		}

		imgTs, maskTs, labelTs := stackSamples(b.([]Sample))

		ts.NoGrad(func() {
			input := imgTs.MustTo(Device, true)
			clsLogit, segLogit := net.ForwardT(input, false)
			input.MustDrop()

			segTarget := maskTs.MustTo(Device, true)
			clsTarget := labelTs.MustTo(Device, true)

			loss := metric.TotalLoss(segLogit, clsLogit, segTarget, clsTarget, segWeight, clsWeight)
			lossSum += loss.Float64Values()[0]
			loss.MustDrop()

			segProb := segLogit.MustSigmoid(true)
			diceSum += metric.DiceCoeff(segProb, segTarget)
			segProb.MustDrop()
			segTarget.MustDrop()

			clsProb := clsLogit.MustSigmoid(true)
			pred := clsProb.MustGt(ts.FloatScalar(0.5), true).MustTotype(gotch.Double, true)
			tgt := clsTarget.MustTotype(gotch.Double, true)
			match := pred.MustEq1(tgt, true)
			tgt.MustDrop()
			correct += int(match.MustSum(gotch.Double, false).Float64Values()[0])
			total += int(match.MustSize()[0])
			match.MustDrop()
		})

		batches++
	}

	if batches == 0 {
		return
	}
	fmt.Printf("Validation\t Loss: %.5f\t Dice: %.4f\t Cls Acc: %.4f\n",
		lossSum/float64(batches), diceSum/float64(batches), float64(correct)/float64(total))
}

func runValidate() {
	_, validAnns := trainSplit()
	if len(validAnns) == 0 {
		log.Fatal("No validation samples found.")
	}

	vs := nn.NewVarStore(Device)
	net := buildNet(vs)
	if err := vs.Load(ModelPath); err != nil {
		log.Fatal(err)
	}

	doValidate(net, validAnns)

	// Dump the predicted mask for the first validation sample.
	validDS := NewDefectDataset(validAnns[:1])
	item, err := validDS.Item(0)
	if err != nil {
		log.Fatal(err)
	}
	sample := item.(Sample)

	ts.NoGrad(func() {
		input := sample.image.MustUnsqueeze(0, false).MustTo(Device, true)
		clsLogit, segLogit := net.ForwardT(input, false)
		input.MustDrop()
		clsLogit.MustDrop()

		prob := segLogit.MustSigmoid(true)
		if err := saveMaskOverlay(prob, int64(ImageSize), "valid-mask.png"); err != nil {
			log.Println(err)
		}
		prob.MustDrop()
	})

	sample.image.MustDrop()
	sample.mask.MustDrop()
	sample.label.MustDrop()
}

// runCheckModel builds the network on fake input and prints output
// shapes, a quick smoke check on a new machine.
func runCheckModel() {
	vs := nn.NewVarStore(Device)
	net := buildNet(vs)

	input := ts.MustRand([]int64{2, 3, int64(ImageSize), int64(ImageSize)}, gotch.Float, Device)
	ts.NoGrad(func() {
		clsLogit, segLogit := net.ForwardT(input, false)
		fmt.Printf("cls logit shape: %v\n", clsLogit.MustSize())
		fmt.Printf("seg logit shape: %v\n", segLogit.MustSize())
		clsLogit.MustDrop()
		segLogit.MustDrop()
	})
	input.MustDrop()

	fmt.Printf("Trainable variables: %v\n", vs.Len())
}
