package viz

import (
	"math"
	"strings"
)

const brailleBlank = 0x2800

// Dot bits of a braille cell, indexed [row][col]. Each cell is 2x4 dots.
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a character grid drawn in braille dots, so it has twice the
// horizontal and four times the vertical resolution of the terminal cells.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// DotsWide and DotsHigh are the canvas size in dots.
func (c *Canvas) DotsWide() int { return c.Width * 2 }
func (c *Canvas) DotsHigh() int { return c.Height * 4 }

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotsWide() || y >= c.DotsHigh() {
		return
	}
	c.Grid[y/4][x/2] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps world coordinates onto canvas dots. Y grows upward in the
// world and downward on screen.
type Viewport struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Fit returns a viewport around the points with a relative margin on
// every side. A degenerate extent is widened to the other axis's size.
func Fit(xs, ys []float64, margin float64) Viewport {
	v := Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for i := range xs {
		v.MinX, v.MaxX = math.Min(v.MinX, xs[i]), math.Max(v.MaxX, xs[i])
		v.MinY, v.MaxY = math.Min(v.MinY, ys[i]), math.Max(v.MaxY, ys[i])
	}
	w, h := v.MaxX-v.MinX, v.MaxY-v.MinY
	if h < w/4 {
		cy := (v.MinY + v.MaxY) / 2
		v.MinY, v.MaxY = cy-w/8, cy+w/8
		h = w / 4
	}
	v.MinX -= margin * w
	v.MaxX += margin * w
	v.MinY -= margin * h
	v.MaxY += margin * h
	return v
}

// Project converts a world point to dot coordinates on c.
func (v Viewport) Project(c *Canvas, x, y float64) (int, int) {
	px := (x - v.MinX) / (v.MaxX - v.MinX) * float64(c.DotsWide()-1)
	py := (v.MaxY - y) / (v.MaxY - v.MinY) * float64(c.DotsHigh()-1)
	return int(math.Round(px)), int(math.Round(py))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
