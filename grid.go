package life

import (
	"encoding/binary"
	"fmt"
)

// Size is the grid size in cells.
type Size struct {
	Width  int
	Height int
}

// Cells returns Width*Height.
func (s Size) Cells() int { return s.Width * s.Height }

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// String returns "WxH".
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// index returns the row-major index of (x, y) wrapped onto the torus.
func (s Size) index(x, y int) int {
	x %= s.Width
	if x < 0 {
		x += s.Width
	}
	y %= s.Height
	if y < 0 {
		y += s.Height
	}
	return y*s.Width + x
}

// Cell is the state of one grid cell as stored on the device.
// Any non-zero value counts as alive; kernels only write Dead or Alive.
type Cell uint32

// Cell states.
const (
	Dead  Cell = 0
	Alive Cell = 1
)

// IsAlive reports whether c is non-zero.
func (c Cell) IsAlive() bool { return c != Dead }

// Point is a cell coordinate: X is the column, Y the row.
type Point struct {
	X, Y int
}

// cellBytes is the device size of one Cell.
const cellBytes = 4

// encodeCells packs cells as little-endian u32 words.
func encodeCells(cells []Cell) []byte {
	out := make([]byte, len(cells)*cellBytes)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(out[i*cellBytes:], uint32(c))
	}
	return out
}

// decodeCells unpacks little-endian u32 words.
func decodeCells(b []byte) []Cell {
	out := make([]Cell, len(b)/cellBytes)
	for i := range out {
		out[i] = Cell(binary.LittleEndian.Uint32(b[i*cellBytes:]))
	}
	return out
}

// Population counts the live cells of a grid.
func Population(cells []Cell) int {
	n := 0
	for _, c := range cells {
		if c.IsAlive() {
			n++
		}
	}
	return n
}

// Parity is the scheduler state derived from the step counter.
type Parity int

// Scheduler states.
const (
	// Even: compute reads buffer 0 and writes buffer 1; render reads buffer 1.
	Even Parity = 0
	// Odd: compute reads buffer 1 and writes buffer 0; render reads buffer 0.
	Odd Parity = 1
)

// String returns "EVEN" or "ODD".
func (p Parity) String() string {
	if p == Odd {
		return "ODD"
	}
	return "EVEN"
}

// Roles names the buffer indices used by one step.
type Roles struct {
	ComputeSource int
	ComputeTarget int
	RenderSource  int
}

// CellAt returns the cell shown by surface pixel (px, py) of a
// surfaceW x surfaceH surface. It matches the fragment kernel:
// the pixel center is mapped to uv in [0,1) and scaled by the grid size.
func CellAt(px, py, surfaceW, surfaceH int, size Size) Point {
	cx := ((2*px + 1) * size.Width) / (2 * surfaceW)
	cy := ((2*py + 1) * size.Height) / (2 * surfaceH)
	return Point{X: min(cx, size.Width-1), Y: min(cy, size.Height-1)}
}
