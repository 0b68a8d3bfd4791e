// Package canvas implements the raw pixel region a redraw writes into.
//
// Pixels are packed 32-bit ARGB stored little-endian (B, G, R, A in memory),
// which is the byte layout of WL_SHM_FORMAT_ARGB8888. Rows are not padded:
// Stride is always Width*4.
package canvas

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is the size of one packed ARGB pixel
const BytesPerPixel = 4

// Canvas is a width x height pixel region
type Canvas struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Size returns the number of bytes needed for a width x height canvas
func Size(width, height int) int {
	return width * height * BytesPerPixel
}

// New allocates a zeroed (fully transparent) canvas
func New(width, height int) *Canvas {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Pix:    make([]byte, Size(width, height)),
	}
}

// Wrap builds a canvas view over an existing region, typically a mapped
// shared-memory pool. The view is trimmed to exactly width*height*4 bytes.
func Wrap(region []byte, width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas dimensions %dx%d", width, height)
	}
	size := Size(width, height)
	if len(region) < size {
		return nil, fmt.Errorf("region of %d bytes cannot hold a %dx%d canvas (%d bytes)", len(region), width, height, size)
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Pix:    region[:size:size],
	}, nil
}

// Bounds returns the canvas rectangle
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// Len is the number of pixel bytes
func (c *Canvas) Len() int {
	return len(c.Pix)
}

// At returns the packed ARGB value at (x, y), 0 when out of bounds
func (c *Canvas) At(x, y int) uint32 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	i := y*c.Stride + x*BytesPerPixel
	return binary.LittleEndian.Uint32(c.Pix[i : i+4])
}

// Set writes one pixel; out of bounds writes are dropped
func (c *Canvas) Set(x, y int, argb uint32) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	i := y*c.Stride + x*BytesPerPixel
	binary.LittleEndian.PutUint32(c.Pix[i:i+4], argb)
}

// Fill writes argb to every pixel in raster order
func (c *Canvas) Fill(argb uint32) {
	fillBytes(c.Pix, argb)
}

// Clear makes every pixel fully transparent
func (c *Canvas) Clear() {
	clear(c.Pix)
}

// FillRect fills the rectangle (x, y, w, h), clipped against the canvas
func (c *Canvas) FillRect(x, y, w, h int, argb uint32) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.Bounds())
	if r.Empty() {
		return
	}
	for row := r.Min.Y; row < r.Max.Y; row++ {
		start := row*c.Stride + r.Min.X*BytesPerPixel
		end := row*c.Stride + r.Max.X*BytesPerPixel
		fillBytes(c.Pix[start:end], argb)
	}
}

// Draw copies src with its top-left corner at (x, y). Parts of src falling
// outside the canvas are clipped. Alpha is copied, not blended.
func (c *Canvas) Draw(src image.Image, x, y int) {
	sb := src.Bounds()
	dst := image.Rect(x, y, x+sb.Dx(), y+sb.Dy()).Intersect(c.Bounds())
	if dst.Empty() {
		return
	}
	// source origin of the clipped region
	sx0 := sb.Min.X + (dst.Min.X - x)
	sy0 := sb.Min.Y + (dst.Min.Y - y)

	if rgba, ok := src.(*image.RGBA); ok {
		c.drawRGBA(rgba, dst, sx0, sy0)
		return
	}

	for dy := dst.Min.Y; dy < dst.Max.Y; dy++ {
		sy := sy0 + (dy - dst.Min.Y)
		i := dy*c.Stride + dst.Min.X*BytesPerPixel
		for dx := dst.Min.X; dx < dst.Max.X; dx++ {
			sx := sx0 + (dx - dst.Min.X)
			binary.LittleEndian.PutUint32(c.Pix[i:i+4], Pack(src.At(sx, sy)))
			i += BytesPerPixel
		}
	}
}

func (c *Canvas) drawRGBA(src *image.RGBA, dst image.Rectangle, sx0, sy0 int) {
	for dy := dst.Min.Y; dy < dst.Max.Y; dy++ {
		si := src.PixOffset(sx0, sy0+(dy-dst.Min.Y))
		di := dy*c.Stride + dst.Min.X*BytesPerPixel
		for n := dst.Dx(); n > 0; n-- {
			// RGBA -> BGRA
			c.Pix[di+0] = src.Pix[si+2]
			c.Pix[di+1] = src.Pix[si+1]
			c.Pix[di+2] = src.Pix[si+0]
			c.Pix[di+3] = src.Pix[si+3]
			si += 4
			di += BytesPerPixel
		}
	}
}

// Pack converts a color to premultiplied packed ARGB
func Pack(col color.Color) uint32 {
	r, g, b, a := col.RGBA()
	return (a>>8)<<24 | (r>>8)<<16 | (g>>8)<<8 | b>>8
}

func fillBytes(buf []byte, argb uint32) {
	if len(buf) < BytesPerPixel {
		return
	}
	binary.LittleEndian.PutUint32(buf, argb)
	// double the written prefix until the slice is full
	for filled := BytesPerPixel; filled < len(buf); filled *= 2 {
		copy(buf[filled:], buf[:filled])
	}
}
