package paper

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder turns a file into pixels
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// Resizer scales an image to exactly width x height
type Resizer interface {
	Resize(src image.Image, width, height int) image.Image
}

// FileDecoder decodes png, jpeg, webp, bmp and tiff files
type FileDecoder struct{}

func (FileDecoder) Decode(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// Scaler names accepted by NewScaleResizer
const (
	ScalerNearest        = "nearest"
	ScalerApproxBiLinear = "approx-bilinear"
	ScalerBiLinear       = "bilinear"
	ScalerCatmullRom     = "catmull-rom"
)

// ScaleResizer resizes with one of the golang.org/x/image/draw interpolators
type ScaleResizer struct {
	Scaler draw.Scaler
}

// DefaultResizer is the resizer used when none is configured
func DefaultResizer() *ScaleResizer {
	return &ScaleResizer{Scaler: draw.ApproxBiLinear}
}

// NewScaleResizer returns the resizer registered under name
func NewScaleResizer(name string) (*ScaleResizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScalerApproxBiLinear:
		return DefaultResizer(), nil
	case ScalerNearest:
		return &ScaleResizer{Scaler: draw.NearestNeighbor}, nil
	case ScalerBiLinear:
		return &ScaleResizer{Scaler: draw.BiLinear}, nil
	case ScalerCatmullRom:
		return &ScaleResizer{Scaler: draw.CatmullRom}, nil
	default:
		return nil, fmt.Errorf("unknown scaler %q", name)
	}
}

func (r *ScaleResizer) Resize(src image.Image, width, height int) image.Image {
	sb := src.Bounds()
	if sb.Dx() == width && sb.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	r.Scaler.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}
