package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"mmapmovie/pkg/movie"
)

// Viewer renders the frames of an extracted patch as grayscale images
type Viewer struct {
	// patch holds the float cube being rendered
	patch *movie.Patch

	// low and high are the sample values mapped to black and white.
	// One range is shared by all frames so brightness is comparable.
	low  float64
	high float64
}

// NewViewer creates a viewer scaled to the patch's full value range
func NewViewer(patch *movie.Patch) *Viewer {
	v := &Viewer{patch: patch}
	if len(patch.Data) > 0 {
		values := make([]float64, len(patch.Data))
		for i, d := range patch.Data {
			values[i] = float64(d)
		}
		v.low = floats.Min(values)
		v.high = floats.Max(values)
	}
	return v
}

// FrameImage renders frame t. Image x is the patch column, y the patch row.
func (v *Viewer) FrameImage(t int) (image.Image, error) {
	if t < 0 || t >= v.patch.Frames {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", t, v.patch.Frames)
	}

	img := image.NewGray16(image.Rect(0, 0, v.patch.Cols, v.patch.Rows))
	span := v.high - v.low
	for y := 0; y < v.patch.Rows; y++ {
		for x := 0; x < v.patch.Cols; x++ {
			var norm float64
			if span > 0 {
				norm = (float64(v.patch.At(y, x, t)) - v.low) / span
			}
			value := uint16(math.Max(0, math.Min(65535, norm*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// SaveFrame saves a rendered frame as a JPEG image
func (v *Viewer) SaveFrame(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveFrameSequence renders and saves every frame into outputDir
func (v *Viewer) SaveFrameSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for t := 0; t < v.patch.Frames; t++ {
		img, err := v.FrameImage(t)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.jpg", t))
		if err := v.SaveFrame(img, filename); err != nil {
			return err
		}
	}

	return nil
}
