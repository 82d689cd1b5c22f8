package source

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"mmapmovie/pkg/movie"
)

// ImageSequence is a 16-bit movie backed by a directory of grayscale
// image files, one frame per file.
//
// Frames are ordered by the number embedded in each filename and decoded
// only when requested, so the whole movie never has to be resident.
type ImageSequence struct {
	// dir is the directory the frames were found in
	dir string

	// files holds the frame filenames in playback order
	files []string

	// width and height store the dimensions of every frame
	width  int
	height int
}

// OpenImageSequence scans dir for PNG and JPEG frames.
// All frames must share the dimensions of the first one.
func OpenImageSequence(dir string) (*ImageSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			imageFiles = append(imageFiles, entry.Name())
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no PNG or JPEG images found in %s", dir)
	}

	// Frame order follows the numbers in the filenames, not lexical order
	sort.SliceStable(imageFiles, func(i, j int) bool {
		numI := extractNumber(imageFiles[i])
		numJ := extractNumber(imageFiles[j])
		if numI != numJ {
			return numI < numJ
		}
		return imageFiles[i] < imageFiles[j]
	})

	cfg, err := decodeConfig(filepath.Join(dir, imageFiles[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", imageFiles[0], err)
	}

	return &ImageSequence{
		dir:    dir,
		files:  imageFiles,
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

func (s *ImageSequence) NumRows() int { return s.height }

func (s *ImageSequence) NumCols() int { return s.width }

func (s *ImageSequence) NumFrames() int { return len(s.files) }

// DataType is always 16-bit unsigned: samples are 16-bit gray levels
func (s *ImageSequence) DataType() movie.DataType { return movie.DataTypeU16 }

// Files returns the frame filenames in playback order
func (s *ImageSequence) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Frame decodes frame t. Row indexes y and column indexes x.
func (s *ImageSequence) Frame(t int) (*mat.Dense, error) {
	if t < 0 || t >= len(s.files) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", t, len(s.files))
	}

	img, err := loadImage(filepath.Join(s.dir, s.files[t]))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", s.files[t], err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != s.width || bounds.Dy() != s.height {
		return nil, fmt.Errorf("frame %s is %dx%d, expected %dx%d",
			s.files[t], bounds.Dx(), bounds.Dy(), s.width, s.height)
	}

	frame := mat.NewDense(s.height, s.width, nil)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			gray := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			frame.Set(y, x, float64(gray.Y))
		}
	}
	return frame, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage decodes a PNG or JPEG file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func decodeConfig(path string) (image.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	return cfg, err
}
