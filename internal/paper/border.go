package paper

import "github.com/koios/paper/internal/canvas"

// ApplyBorder draws four opaque bands of thickness gap along the canvas edges.
// Corners are written twice with the same color. A gap that would make the
// bands overlap is clamped so the border simply covers the whole canvas.
func ApplyBorder(c *canvas.Canvas, gap uint32, color uint32) {
	w, h := c.Width, c.Height
	g := clampGap(gap, w, h)
	if g == 0 {
		return
	}

	c.FillRect(0, 0, w, g, color)   // top
	c.FillRect(0, h-g, w, g, color) // bottom
	c.FillRect(0, 0, g, h, color)   // left
	c.FillRect(w-g, 0, g, h, color) // right
}

func clampGap(gap uint32, width, height int) int {
	short := min(width, height)
	if short <= 0 {
		return 0
	}
	if uint64(gap)*2 >= uint64(short) {
		return (short + 1) / 2
	}
	return int(gap)
}
