package main

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// runEDA prints summary statistics of the annotation set and plots a
// histogram of defect areas.
func runEDA() {
	annFile := fmt.Sprintf("%v/annotations.csv", DataPath)
	anns, err := readAnnotations(annFile)
	if err != nil {
		log.Fatal(err)
	}

	areas := edaSummary(anns)
	if len(areas) == 0 {
		return
	}

	p, err := plot.New()
	if err != nil {
		log.Fatal(err)
	}
	p.Title.Text = "Defect Area Histogram"
	p.X.Label.Text = "area (pixels)"

	v := make(plotter.Values, len(areas))
	copy(v, areas)

	h, err := plotter.NewHist(v, 20)
	if err != nil {
		log.Fatal(err)
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, "defect-area-histo.png"); err != nil {
		log.Fatal(err)
	}
}

// edaSummary prints annotation statistics and returns the defect areas
// for plotting. An empty annotation set prints the sample count only.
func edaSummary(anns []Annotation) []float64 {
	var areas []float64
	defective := 0
	for _, ann := range anns {
		if len(ann.RLE) == 0 {
			continue
		}
		defective++

		area := 0
		for i := 1; i < len(ann.RLE); i += 2 {
			area += ann.RLE[i]
		}
		areas = append(areas, float64(area))
	}

	fmt.Printf("Samples: %v\n", len(anns))
	if len(anns) == 0 {
		return nil
	}
	fmt.Printf("Defective: %v (%.1f%%)\n", defective, 100*float64(defective)/float64(len(anns)))

	if len(areas) > 0 {
		mean, std := stat.MeanStdDev(areas, nil)
		fmt.Printf("Defect area (pixels): mean %.1f, std %.1f\n", mean, std)
	}

	return areas
}
