package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"
	"golang.org/x/image/draw"
)

// readImage reads image from file.
func readImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".png", ".PNG":
		return png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return tiff.Decode(f)
	default:
		err = fmt.Errorf("Unsupported image format: %v\n", ext)
		return nil, err
	}
}

// fitToStride resizes an image so both sides are the given size,
// which must be a multiple of the network stride.
func fitToStride(img image.Image, size int) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == size && h == size {
		return img
	}
	return resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
}

// augmentPair applies the same random flip/rotation to an image and
// its mask so they stay registered.
func augmentPair(img, mask image.Image) (image.Image, image.Image) {
	switch rand.Intn(4) {
	case 0:
		// no-op
	case 1:
		img = imaging.FlipH(img)
		mask = imaging.FlipH(mask)
	case 2:
		img = imaging.FlipV(img)
		mask = imaging.FlipV(mask)
	case 3:
		img = imaging.Rotate180(img)
		mask = imaging.Rotate180(mask)
	}
	return img, mask
}

// toNRGBA copies any image into NRGBA form.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rectangle{image.ZP, image.Point{b.Dx(), b.Dy()}})
	draw.Copy(dst, image.ZP, img, b, draw.Src, nil)
	return dst
}

// savePNG writes an image out as png.
func savePNG(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// rgb2GrayScale converts a RGB (3xHxW) to grayscale image (HxW).
// (0.2989 * r + 0.587 * g + 0.114 * b)
func rgb2GrayScale(x *ts.Tensor) (*ts.Tensor, error) {
	size := x.MustSize()
	if len(size) < 3 {
		err := fmt.Errorf("Expect at least 3D tensor. Got %v dimensions.\n", len(size))
		return nil, err
	}

	chanSize := size[len(size)-3]
	if chanSize != 3 {
		err := fmt.Errorf("Expect image of 3 channels for RGB. Got %v .\n", chanSize)
		return nil, err
	}

	channels := x.MustUnbind(-3, false)
	r := channels[0].MustMul1(ts.FloatScalar(0.2989), true)
	g := channels[1].MustMul1(ts.FloatScalar(0.587), true)
	b := channels[2].MustMul1(ts.FloatScalar(0.114), true)

	rg := r.MustAdd(g, true)
	g.MustDrop()
	gray := rg.MustAdd(b, true)
	b.MustDrop()

	return gray, nil
}

// processImage converts raw inspection images and their RLE labels
// into resized png image/mask pairs ready for training.
func processImage() {
	start := time.Now()

	annFile := fmt.Sprintf("%v/annotations.csv", DataPath)
	anns, err := readAnnotations(annFile)
	if err != nil {
		log.Fatal(err)
	}

	imgOutPath := fmt.Sprintf("%v/prep/image", DataPath)
	maskOutPath := fmt.Sprintf("%v/prep/mask", DataPath)
	for _, p := range []string{imgOutPath, maskOutPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			if err := os.MkdirAll(p, 0755); err != nil {
				log.Fatal(err)
			}
		}
	}

	for _, ann := range anns {
		srcFile := fmt.Sprintf("%v/raw/%v", DataPath, ann.File)
		img, err := readImage(srcFile)
		if err != nil {
			err := fmt.Errorf("Processing sample %v error: %v\n", ann.ID, err)
			log.Fatal(err)
		}

		shape := []int64{int64(img.Bounds().Dx()), int64(img.Bounds().Dy())}
		mask, err := rle2Mask(ann.RLE, shape)
		if err != nil {
			log.Fatal(err)
		}

		// normalize whatever the decoder produced before re-encoding
		img = toNRGBA(fitToStride(img, ImageSize))
		mask = fitToStride(mask, ImageSize)

		outImg := fmt.Sprintf("%v/%v.png", imgOutPath, ann.ID)
		if err := savePNG(img, outImg); err != nil {
			log.Fatal(err)
		}
		outMask := fmt.Sprintf("%v/%v.png", maskOutPath, ann.ID)
		if err := savePNG(mask, outMask); err != nil {
			log.Fatal(err)
		}

		// Defective samples are rare. Write a random flipped copy of
		// each to even out the class balance.
		if ann.Label > 0 {
			augImg, augMask := augmentPair(img, mask)
			outImg := fmt.Sprintf("%v/%v_aug.png", imgOutPath, ann.ID)
			if err := savePNG(augImg, outImg); err != nil {
				log.Fatal(err)
			}
			outMask := fmt.Sprintf("%v/%v_aug.png", maskOutPath, ann.ID)
			if err := savePNG(augMask, outMask); err != nil {
				log.Fatal(err)
			}
		}

		fmt.Printf("Processed %v\n", ann.ID)
	}

	fmt.Println("Image processing: completed.")
	fmt.Printf("Duration: %.2f (min)\n", time.Since(start).Minutes())
}

// saveMaskOverlay writes a predicted mask upsampled back to image
// resolution, for eyeballing results.
func saveMaskOverlay(mask *ts.Tensor, size int64, filename string) error {
	up := mask.MustUpsampleBilinear2d([]int64{size, size}, false, nil, nil, false)
	scaled := up.MustMul1(ts.FloatScalar(255.0), true)
	img := scaled.MustSqueeze1(0, true)
	err := vision.Save(img, filename)
	img.MustDrop()
	return err
}
