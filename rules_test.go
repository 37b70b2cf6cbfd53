package life

import (
	"errors"
	"slices"
	"testing"
)

func TestNextState(t *testing.T) {
	tests := []struct {
		alive     bool
		neighbors int
		want      bool
	}{
		{false, 0, false},
		{false, 2, false},
		{false, 3, true},
		{false, 4, false},
		{true, 0, false},
		{true, 1, false},
		{true, 2, true},
		{true, 3, true},
		{true, 4, false},
		{true, 8, false},
	}
	for _, tt := range tests {
		if got := NextState(tt.alive, tt.neighbors); got != tt.want {
			t.Errorf("NextState(%v, %d) = %v, want %v", tt.alive, tt.neighbors, got, tt.want)
		}
	}
}

func TestNeighborsWrap(t *testing.T) {
	size := Size{Width: 4, Height: 3}
	cells := seedCells(size, PatternSeed(Point{3, 2}, Point{0, 2}, Point{3, 0}))
	// (0, 0) touches the opposite corner and both opposite edges.
	if got := Neighbors(cells, size, 0, 0); got != 3 {
		t.Errorf("Neighbors(0, 0) = %d, want 3", got)
	}
	if got := Neighbors(cells, size, 1, 1); got != 1 {
		t.Errorf("Neighbors(1, 1) = %d, want 1", got)
	}
}

func TestNextGenerationBirthAndDeath(t *testing.T) {
	size := Size{Width: 6, Height: 6}
	// An L of three cells: the corner cell (2,2) is born.
	src := seedCells(size, PatternSeed(Point{1, 1}, Point{2, 1}, Point{1, 2}))
	dst := make([]Cell, size.Cells())
	if err := NextGeneration(src, dst, size); err != nil {
		t.Fatal(err)
	}
	want := []Point{{1, 1}, {2, 1}, {1, 2}, {2, 2}}
	if got := alivePoints(dst, size); !slices.Equal(got, want) {
		t.Errorf("alive = %v, want %v", got, want)
	}

	// A lone cell dies.
	src = seedCells(size, PatternSeed(Point{3, 3}))
	if err := NextGeneration(src, dst, size); err != nil {
		t.Fatal(err)
	}
	if Population(dst) != 0 {
		t.Errorf("lone cell survived: %v", alivePoints(dst, size))
	}
}

func TestNextGenerationSizeMismatch(t *testing.T) {
	size := Size{Width: 3, Height: 3}
	if err := NextGeneration(make([]Cell, 9), make([]Cell, 8), size); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("error = %v, want ErrInvalidSize", err)
	}
	if err := NextGeneration(nil, nil, Size{}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("error = %v, want ErrInvalidSize", err)
	}
}

func TestEvolveGliderWraps(t *testing.T) {
	size := Size{Width: 8, Height: 8}
	glider := []Point{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	cells := seedCells(size, PatternSeed(glider...))

	// A glider moves one cell diagonally every 4 generations, so after
	// 4*8 generations it is back where it started on an 8x8 torus.
	got, err := Evolve(cells, size, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, cells) {
		t.Errorf("glider after 32 generations = %v, want %v", alivePoints(got, size), glider)
	}

	moved, _ := Evolve(cells, size, 4)
	if want := Translate(glider, 1, 1); !slices.Equal(alivePoints(moved, size), want) {
		t.Errorf("glider after 4 generations = %v, want %v", alivePoints(moved, size), want)
	}
}
