package life

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"strings"
)

// SeedFunc returns the initial state of the cell at (row, col).
// New calls it once per cell in row-major order.
type SeedFunc func(row, col int) Cell

// DefaultDensity is the probability that RandomSeed makes a cell alive
// when no density is configured.
const DefaultDensity = 0.8

// RandomSeed returns a seed where each cell is independently alive with
// probability p. A nil src uses a randomly seeded PCG.
func RandomSeed(p float64, src rand.Source) SeedFunc {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	r := rand.New(src)
	return func(int, int) Cell {
		if r.Float64() < p {
			return Alive
		}
		return Dead
	}
}

// PatternSeed returns a seed with exactly the given cells alive.
func PatternSeed(points ...Point) SeedFunc {
	live := make(map[Point]struct{}, len(points))
	for _, p := range points {
		live[p] = struct{}{}
	}
	return func(row, col int) Cell {
		if _, ok := live[Point{X: col, Y: row}]; ok {
			return Alive
		}
		return Dead
	}
}

// Translate returns points shifted by (dx, dy).
func Translate(points []Point, dx, dy int) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// ParsePattern reads a pattern in plaintext format: one line per row,
// 'O' or '*' for a live cell, '.' for a dead one. Lines starting with '!'
// are comments. Coordinates start at (0, 0) for the first character of the
// first row.
func ParsePattern(text string) ([]Point, error) {
	var points []Point
	sc := bufio.NewScanner(strings.NewReader(text))
	row, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.HasPrefix(line, "!") {
			continue
		}
		for col, ch := range line {
			switch ch {
			case 'O', '*':
				points = append(points, Point{X: col, Y: row})
			case '.':
			default:
				return nil, fmt.Errorf("%w: unexpected %q at line %d", ErrInvalidPattern, ch, lineNo)
			}
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return points, nil
}

// seedCells evaluates seed over a grid.
func seedCells(size Size, seed SeedFunc) []Cell {
	cells := make([]Cell, size.Cells())
	for row := range size.Height {
		for col := range size.Width {
			if seed(row, col).IsAlive() {
				cells[row*size.Width+col] = Alive
			}
		}
	}
	return cells
}
