package paper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/koios/paper/internal/canvas"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Image stretches one picture over the whole canvas. Aspect ratio is not kept.
type Image struct {
	Path   string
	scaler *scaledDrawer
}

func (s *Image) Render(ctx context.Context, c *canvas.Canvas) error {
	return s.scaler.draw(ctx, c, s.Path)
}

func (s *Image) String() string { return fmt.Sprintf("image(%s)", s.Path) }

// Tiled repeats a picture at its native size from the top-left corner
type Tiled struct {
	Path    string
	decoder Decoder
}

func (s *Tiled) Render(_ context.Context, c *canvas.Canvas) error {
	img, err := s.decoder.Decode(s.Path)
	if err != nil {
		return err
	}
	tile := toRGBA(img)
	tw, th := tile.Bounds().Dx(), tile.Bounds().Dy()
	if tw == 0 || th == 0 {
		return fmt.Errorf("image %s has no pixels", s.Path)
	}

	for y := 0; y < c.Height; y += th {
		for x := 0; x < c.Width; x += tw {
			c.Draw(tile, x, y)
		}
	}
	return nil
}

func (s *Tiled) String() string { return fmt.Sprintf("tiled(%s)", s.Path) }

// scaledDrawer decodes, resizes and blits a file, going through the frame
// cache when one is configured.
type scaledDrawer struct {
	decoder Decoder
	resizer Resizer
	cache   FrameCache
	logger  *zap.Logger
}

func newScaledDrawer(kit Toolkit) *scaledDrawer {
	return &scaledDrawer{
		decoder: kit.Decoder,
		resizer: kit.Resizer,
		cache:   kit.Cache,
		logger:  kit.Logger,
	}
}

func (d *scaledDrawer) draw(ctx context.Context, c *canvas.Canvas, path string) error {
	key := ""
	if d.cache != nil {
		if info, err := os.Stat(path); err == nil {
			key = frameKey(path, info, c.Width, c.Height)
			frame, found, err := d.cache.Get(ctx, key)
			switch {
			case err != nil:
				d.logger.Warn("Frame cache lookup failed", zap.String("path", path), zap.Error(err))
			case found && len(frame) == c.Len():
				copy(c.Pix, frame)
				d.logger.Debug("Frame cache hit", zap.String("path", path))
				return nil
			}
		}
	}

	img, err := d.decoder.Decode(path)
	if err != nil {
		return err
	}
	scaled := d.resizer.Resize(img, c.Width, c.Height)
	c.Draw(scaled, 0, 0)

	if key != "" {
		if err := d.cache.Set(ctx, key, c.Pix); err != nil {
			d.logger.Warn("Frame cache store failed", zap.String("path", path), zap.Error(err))
		} else {
			d.logger.Debug("Frame cached",
				zap.String("path", path),
				zap.String("size", humanize.Bytes(uint64(c.Len()))))
		}
	}
	return nil
}

// frameKey identifies a resized frame. The file's size and modification
// time are part of the key so edits invalidate it.
func frameKey(path string, info os.FileInfo, width, height int) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("%s/%d-%d/%dx%d",
		hex.EncodeToString(sum[:8]), info.Size(), info.ModTime().UnixNano(), width, height)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
