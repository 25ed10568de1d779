package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"
)

// flag variables
var (
	DataPath  string
	OptStr    string
	ModelPath string
	Cuda      bool
	task      string
	Device    gotch.Device
)

// hyperparameters
var (
	ImageSize    int     // square training image size, must be a multiple of 8
	LR           float64 // learning rate
	BatchSize    int     // batch size
	Epochs       int     // number of training epochs
	ValidateSize int     // number of iterations that triggers running validation task
	GradWarmup   int     // steps over which gradient multipliers ramp from 0 to 1
)

func init() {
	flag.StringVar(&DataPath, "input", "./input", "specify input data directory")
	flag.StringVar(&ModelPath, "model", "./model/msdanet.gt", "specify full path to model weight '.gt' file.")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.StringVar(&task, "task", "train", "specify task to run")
	flag.Float64Var(&LR, "lr", 0.001, "specify learning rate")
	flag.IntVar(&ImageSize, "size", 512, "specify training image size (multiple of 8)")
	flag.IntVar(&BatchSize, "batch", 8, "specify batch size")
	flag.IntVar(&Epochs, "epochs", 10, "specify number of training epochs")
	flag.IntVar(&ValidateSize, "validate", 50, "specify size of validation cycles.")
	flag.IntVar(&GradWarmup, "warmup", 1000, "specify gradient multiplier warm-up steps")
	flag.StringVar(&OptStr, "opt", "Adam", "specify optimizer type")
}

func main() {
	flag.Parse()

	DataPath = absPath(DataPath)
	ModelPath = absPath(ModelPath)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	switch task {
	case "model":
		runCheckModel()
	case "train":
		runTrain()
	case "validate":
		runValidate()
	case "eda":
		runEDA()
	case "image":
		processImage()
	default:
		err := fmt.Errorf("Unknown 'task' name. Please specify valid 'task' flag to run.\n")
		panic(err)
	}
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
