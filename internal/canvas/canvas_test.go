package canvas

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"
)

func TestFill_EveryChunkEqualsColor(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {3, 7}, {64, 32}, {1920, 1}}
	colors := []uint32{0xFF112233, 0x00000000, 0x80FFFFFF, 0xDEADBEEF}

	for _, sz := range sizes {
		for _, col := range colors {
			c := New(sz.w, sz.h)
			c.Fill(col)

			if c.Len() != sz.w*sz.h*4 {
				t.Fatalf("%dx%d: len = %d, want %d", sz.w, sz.h, c.Len(), sz.w*sz.h*4)
			}
			want := make([]byte, 4)
			binary.LittleEndian.PutUint32(want, col)
			for i := 0; i < c.Len(); i += 4 {
				if !bytes.Equal(c.Pix[i:i+4], want) {
					t.Fatalf("%dx%d #%08X: chunk at %d = %v, want %v", sz.w, sz.h, col, i, c.Pix[i:i+4], want)
				}
			}
		}
	}
}

func TestWrap(t *testing.T) {
	region := make([]byte, 100)

	c, err := Wrap(region, 4, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 80 || c.Stride != 16 {
		t.Errorf("len = %d stride = %d, want 80 and 16", c.Len(), c.Stride)
	}

	c.Fill(0xFFFFFFFF)
	if region[79] != 0xFF || region[80] != 0 {
		t.Error("Wrap view does not alias the region or writes past its end")
	}

	if _, err := Wrap(region, 10, 10); err == nil {
		t.Error("expected error for undersized region")
	}
	if _, err := Wrap(region, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestSetAt_OutOfBounds(t *testing.T) {
	c := New(2, 2)
	c.Set(-1, 0, 0xFFFFFFFF)
	c.Set(2, 0, 0xFFFFFFFF)
	c.Set(0, 2, 0xFFFFFFFF)

	for _, b := range c.Pix {
		if b != 0 {
			t.Fatal("out of bounds Set modified the canvas")
		}
	}
	if c.At(5, 5) != 0 {
		t.Error("out of bounds At should return 0")
	}

	c.Set(1, 1, 0xAABBCCDD)
	if got := c.At(1, 1); got != 0xAABBCCDD {
		t.Errorf("At(1,1) = %#x", got)
	}
	// little-endian: B G R A
	if !bytes.Equal(c.Pix[12:16], []byte{0xDD, 0xCC, 0xBB, 0xAA}) {
		t.Errorf("byte layout = %v", c.Pix[12:16])
	}
}

func TestFillRect_Clips(t *testing.T) {
	c := New(4, 4)
	c.FillRect(2, 2, 10, 10, 0xFF0000FF)
	c.FillRect(-5, -5, 6, 6, 0xFF00FF00)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			var want uint32
			switch {
			case x >= 2 && y >= 2:
				want = 0xFF0000FF
			case x < 1 && y < 1:
				want = 0xFF00FF00
			}
			if got := c.At(x, y); got != want {
				t.Errorf("At(%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
}

func TestDraw_ClipsAndConverts(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 0xFF})
		}
	}

	c := New(4, 3)
	c.Draw(src, 2, 2)

	// only src (0,0) and (1,0) land inside the canvas
	if got, want := c.At(2, 2), uint32(0xFF000007); got != want {
		t.Errorf("At(2,2) = %#x, want %#x", got, want)
	}
	if got, want := c.At(3, 2), uint32(0xFF0A0007); got != want {
		t.Errorf("At(3,2) = %#x, want %#x", got, want)
	}
	if c.At(1, 2) != 0 || c.At(2, 1) != 0 {
		t.Error("Draw wrote outside the destination rectangle")
	}
}

func TestDraw_NegativeOffsetAndGenericPath(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 13, 13))
	for y := 10; y < 13; y++ {
		for x := 10; x < 13; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 0xFF})
		}
	}

	c := New(2, 2)
	c.Draw(src, -1, -1)

	// canvas (0,0) shows src (11,11)
	if got, want := c.At(0, 0), uint32(0xFF0B0B00); got != want {
		t.Errorf("At(0,0) = %#x, want %#x", got, want)
	}
	if got, want := c.At(1, 1), uint32(0xFF0C0C00); got != want {
		t.Errorf("At(1,1) = %#x, want %#x", got, want)
	}
}

func TestPack_Premultiplies(t *testing.T) {
	got := Pack(color.NRGBA{R: 0xFF, G: 0, B: 0, A: 0x80})
	if a := got >> 24; a != 0x80 {
		t.Errorf("alpha = %#x, want 0x80", a)
	}
	if r := (got >> 16) & 0xFF; r != 0x80 {
		t.Errorf("red = %#x, want premultiplied 0x80", r)
	}
}

func BenchmarkFill1080p(b *testing.B) {
	c := New(1920, 1080)
	for i := 0; i < b.N; i++ {
		c.Fill(0xFF112233)
	}
}
