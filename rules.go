package life

import "fmt"

// NextState applies the B3/S23 rule: a dead cell with exactly three live
// neighbors is born, a live cell with two or three survives, every other
// cell is dead in the next generation.
func NextState(alive bool, neighbors int) bool {
	return neighbors == 3 || (alive && neighbors == 2)
}

// Neighbors counts the live neighbors of (x, y) on the torus.
func Neighbors(cells []Cell, size Size, x, y int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if cells[size.index(x+dx, y+dy)].IsAlive() {
				n++
			}
		}
	}
	return n
}

// NextGeneration writes the generation following src into dst. It is the
// CPU reference for the compute kernel and uses the same toroidal edges.
// src and dst must both hold size.Cells() cells and must not overlap.
func NextGeneration(src, dst []Cell, size Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if len(src) != size.Cells() || len(dst) != size.Cells() {
		return fmt.Errorf("%w: %s grid needs %d cells, got src=%d dst=%d",
			ErrInvalidSize, size, size.Cells(), len(src), len(dst))
	}
	for y := range size.Height {
		for x := range size.Width {
			i := y*size.Width + x
			if NextState(src[i].IsAlive(), Neighbors(src, size, x, y)) {
				dst[i] = Alive
			} else {
				dst[i] = Dead
			}
		}
	}
	return nil
}

// Evolve returns the grid after the given number of generations.
// cells is not modified.
func Evolve(cells []Cell, size Size, generations int) ([]Cell, error) {
	cur := append([]Cell(nil), cells...)
	next := make([]Cell, len(cells))
	for range generations {
		if err := NextGeneration(cur, next, size); err != nil {
			return nil, err
		}
		cur, next = next, cur
	}
	return cur, nil
}
