package main

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Annotation is one labelled inspection image: the source file, its
// defect run-length encoding (empty for defect-free samples) and the
// image-level label derived from it.
type Annotation struct {
	ID    string
	File  string
	RLE   []int
	Label float64
}

// readAnnotations reads the annotation CSV. Expected columns:
// id, file, encoding. A blank encoding means no defect.
func readAnnotations(filename string) ([]Annotation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	ids := df.Col("id").Records()
	files := df.Col("file").Records()
	encodings := df.Col("encoding").Records()

	var anns []Annotation
	for i, id := range ids {
		rle, err := parseRLE(encodings[i])
		if err != nil {
			return nil, fmt.Errorf("sample %v: %v", id, err)
		}

		var label float64
		if len(rle) > 0 {
			label = 1.0
		}

		anns = append(anns, Annotation{
			ID:    id,
			File:  files[i],
			RLE:   rle,
			Label: label,
		})
	}

	return anns, nil
}

// parseRLE parses a space-separated run-length encoding string into
// (start, length) value pairs.
func parseRLE(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return nil, nil
	}

	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("rle has odd number of values: %v", len(fields))
	}

	var rle []int
	for _, fld := range fields {
		num, err := strconv.Atoi(fld)
		if err != nil {
			return nil, err
		}
		rle = append(rle, num)
	}

	return rle, nil
}

// rle2Mask converts run-length encoding to a grayscale mask image.
// Runs index pixels in column-major order, as in the annotation tool.
//
// rle: run-length encoding
// shape: (width, height) of the source image
func rle2Mask(rle []int, shape []int64) (image.Image, error) {
	width := int(shape[0])
	height := int(shape[1])

	mask := image.NewGray(image.Rect(0, 0, width, height))

	for i := 0; i < len(rle); i += 2 {
		start := rle[i]
		end := start + rle[i+1]
		if end > width*height {
			return nil, fmt.Errorf("rle run exceeds image size: %v > %v", end, width*height)
		}

		for p := start; p < end; p++ {
			x := p / height
			y := p % height
			mask.Pix[y*mask.Stride+x] = 255
		}
	}

	return mask, nil
}
