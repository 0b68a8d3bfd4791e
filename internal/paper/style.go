// Package paper implements the wallpaper styles. Each style fills a
// canvas.Canvas completely, or returns an error and leaves it untouched.
package paper

import (
	"context"
	"errors"
	"fmt"

	"github.com/koios/paper/internal/canvas"
	"github.com/koios/paper/pkg/models"
	"go.uber.org/zap"
)

var (
	// ErrNotDirectory is returned when a random-directory style points at
	// something that is not a directory. It is fatal: the style can never succeed.
	ErrNotDirectory = errors.New("not a directory")

	// ErrEmptyDirectory is returned when the random walk reaches a directory
	// with no image or sub-directory to choose from.
	ErrEmptyDirectory = errors.New("empty directory")

	// ErrWalkTooDeep is returned when the random walk exceeds MaxWalkDepth levels.
	ErrWalkTooDeep = errors.New("directory tree too deep")
)

// IsFatal reports whether a render error must abort the process
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotDirectory)
}

// Style is one way of filling a canvas
type Style interface {
	Render(ctx context.Context, c *canvas.Canvas) error
	String() string
}

// Toolkit carries the capabilities styles are built from
type Toolkit struct {
	Decoder Decoder
	Resizer Resizer
	Cache   FrameCache // optional
	Intn    func(n int) int
	Logger  *zap.Logger
}

func (k Toolkit) withDefaults() Toolkit {
	if k.Decoder == nil {
		k.Decoder = FileDecoder{}
	}
	if k.Resizer == nil {
		k.Resizer = DefaultResizer()
	}
	if k.Logger == nil {
		k.Logger = zap.NewNop()
	}
	return k
}

// NewStyle builds the style described by spec
func NewStyle(spec models.StyleSpec, kit Toolkit) (Style, error) {
	kit = kit.withDefaults()

	switch spec.Kind {
	case "", models.StyleNone:
		return None{}, nil
	case models.StyleColor:
		return SolidColor{Color: spec.Color}, nil
	case models.StyleImage:
		return &Image{Path: spec.Path, scaler: newScaledDrawer(kit)}, nil
	case models.StyleTiled:
		return &Tiled{Path: spec.Path, decoder: kit.Decoder}, nil
	case models.StyleRandom:
		return NewRandomDirectory(spec.Path, kit), nil
	default:
		return nil, fmt.Errorf("unknown style kind %q", spec.Kind)
	}
}

// Renderer draws the base style and then the optional border
type Renderer struct {
	style  Style
	border *models.BorderSpec
}

// NewRenderer builds the renderer for a wallpaper configuration
func NewRenderer(cfg *models.WallpaperConfig, kit Toolkit) (*Renderer, error) {
	style, err := NewStyle(cfg.Style, kit)
	if err != nil {
		return nil, err
	}
	return &Renderer{style: style, border: cfg.Border}, nil
}

// Render fills c. On error the border is not drawn and the frame should be skipped.
func (r *Renderer) Render(ctx context.Context, c *canvas.Canvas) error {
	if err := r.style.Render(ctx, c); err != nil {
		return fmt.Errorf("render %s: %w", r.style, err)
	}
	if r.border != nil {
		ApplyBorder(c, r.border.Gap, r.border.Color)
	}
	return nil
}

func (r *Renderer) String() string {
	if r.border == nil {
		return r.style.String()
	}
	return fmt.Sprintf("%s+border(%d,#%08X)", r.style, r.border.Gap, r.border.Color)
}

// None is the "no paper selected" style: a fully transparent canvas
type None struct{}

func (None) Render(_ context.Context, c *canvas.Canvas) error {
	c.Clear()
	return nil
}

func (None) String() string { return "none" }

// SolidColor paints every pixel with one packed ARGB color
type SolidColor struct {
	Color uint32
}

func (s SolidColor) Render(_ context.Context, c *canvas.Canvas) error {
	c.Fill(s.Color)
	return nil
}

func (s SolidColor) String() string { return fmt.Sprintf("color(#%08X)", s.Color) }
