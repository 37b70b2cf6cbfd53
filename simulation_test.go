package life

import (
	"errors"
	"image/color"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gogpu/life/backend/software"
	"github.com/gogpu/life/gpucore"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

type harness struct {
	adapter *software.Adapter
	surface *software.Surface
	sim     *Simulation
}

// newHarness runs a simulation on a tracing software adapter.
func newHarness(t *testing.T, size Size, surfaceW, surfaceH int, opts ...Option) *harness {
	t.Helper()
	a := software.New(software.WithTrace(), software.WithWorkers(4))
	t.Cleanup(a.Destroy)
	s, err := software.NewSurface(a, surfaceW, surfaceH)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	t.Cleanup(s.Destroy)

	sim, err := New(a, s, size, opts...)
	if err != nil {
		t.Fatalf("New(%s): %v", size, err)
	}
	t.Cleanup(sim.Close)
	return &harness{adapter: a, surface: s, sim: sim}
}

func (h *harness) advance(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		if err := h.sim.Advance(1.0 / 60); err != nil {
			t.Fatalf("Advance #%d: %v", i, err)
		}
	}
}

func (h *harness) cells(t *testing.T) []Cell {
	t.Helper()
	cells, err := h.sim.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	return cells
}

// gridSeed returns a seed reproducing cells.
func gridSeed(cells []Cell, size Size) SeedFunc {
	return func(row, col int) Cell { return cells[row*size.Width+col] }
}

func alivePoints(cells []Cell, size Size) []Point {
	var pts []Point
	for i, c := range cells {
		if c.IsAlive() {
			pts = append(pts, Point{X: i % size.Width, Y: i / size.Width})
		}
	}
	return pts
}

func TestBlockIsStable(t *testing.T) {
	size := Size{Width: 4, Height: 4}
	block := []Point{{1, 1}, {2, 1}, {1, 2}, {2, 2}}
	h := newHarness(t, size, 4, 4, WithSeed(PatternSeed(block...)))

	for step := 1; step <= 4; step++ {
		h.advance(t, 1)
		if got := alivePoints(h.cells(t), size); !slices.Equal(got, block) {
			t.Fatalf("step %d: alive = %v, want %v", step, got, block)
		}
	}
}

func TestBlinkerOscillates(t *testing.T) {
	size := Size{Width: 5, Height: 5}
	horizontal := []Point{{1, 2}, {2, 2}, {3, 2}}
	vertical := []Point{{2, 1}, {2, 2}, {2, 3}}
	h := newHarness(t, size, 5, 5, WithSeed(PatternSeed(horizontal...)))

	h.advance(t, 1)
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, vertical) {
		t.Fatalf("after 1 step alive = %v, want %v", got, vertical)
	}
	h.advance(t, 1)
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, horizontal) {
		t.Fatalf("after 2 steps alive = %v, want %v", got, horizontal)
	}
}

func TestMatchesCPUReference(t *testing.T) {
	sizes := []Size{
		{Width: 8, Height: 8},
		{Width: 13, Height: 7},
		{Width: 1, Height: 1},
		{Width: 3, Height: 17},
		{Width: 33, Height: 20},
	}
	for _, size := range sizes {
		t.Run(size.String(), func(t *testing.T) {
			seed := seedCells(size, RandomSeed(0.4, rand.NewPCG(uint64(size.Width), uint64(size.Height))))
			h := newHarness(t, size, size.Width, size.Height, WithSeed(gridSeed(seed, size)))

			if got := h.cells(t); !slices.Equal(got, seed) {
				t.Fatal("initial cells differ from seed")
			}
			for gen := 1; gen <= 5; gen++ {
				h.advance(t, 1)
				want, err := Evolve(seed, size, gen)
				if err != nil {
					t.Fatal(err)
				}
				if got := h.cells(t); !slices.Equal(got, want) {
					t.Fatalf("generation %d differs from NextGeneration", gen)
				}
			}
		})
	}
}

func TestParityAfterAdvances(t *testing.T) {
	h := newHarness(t, Size{Width: 6, Height: 6}, 6, 6, WithRandomSeed(1))
	if h.sim.Parity() != Even || h.sim.Step() != 0 || h.sim.Current() != 0 {
		t.Fatalf("initial state: parity=%s step=%d current=%d", h.sim.Parity(), h.sim.Step(), h.sim.Current())
	}
	for n := 1; n <= 5; n++ {
		h.advance(t, 1)
		want := Parity(n % 2)
		if h.sim.Parity() != want {
			t.Errorf("after %d advances parity = %s, want %s", n, h.sim.Parity(), want)
		}
		if h.sim.Step() != uint64(n) {
			t.Errorf("after %d advances step = %d", n, h.sim.Step())
		}
		if h.sim.Current() != n%2 {
			t.Errorf("after %d advances current = %d, want %d", n, h.sim.Current(), n%2)
		}
	}
}

func TestBufferRoles(t *testing.T) {
	h := newHarness(t, Size{Width: 9, Height: 9}, 9, 9, WithRandomSeed(3))
	buffers := h.sim.Buffers()

	for step := range 4 {
		roles := h.sim.Roles()
		p := step % 2
		if roles != (Roles{ComputeSource: p, ComputeTarget: 1 - p, RenderSource: 1 - p}) {
			t.Fatalf("step %d: roles = %+v", step, roles)
		}

		h.adapter.ResetTrace()
		h.advance(t, 1)
		trace := h.adapter.Trace()
		if len(trace) != 2 {
			t.Fatalf("step %d: %d passes, want 2", step, len(trace))
		}
		compute, render := trace[0], trace[1]
		if compute.Kind != software.PassCompute || render.Kind != software.PassRender {
			t.Fatalf("step %d: pass order %s, %s", step, compute.Kind, render.Kind)
		}
		if compute.Submission != render.Submission {
			t.Errorf("step %d: passes in different submissions", step)
		}

		src, dst := buffers[roles.ComputeSource], buffers[roles.ComputeTarget]
		if !compute.Read(src) || compute.Read(dst) {
			t.Errorf("step %d: compute reads %v, want %d and not %d", step, compute.Reads, src, dst)
		}
		if !slices.Equal(compute.Writes, []gpucore.BufferID{dst}) {
			t.Errorf("step %d: compute writes %v, want [%d]", step, compute.Writes, dst)
		}
		if !render.Read(buffers[roles.RenderSource]) || render.Read(src) {
			t.Errorf("step %d: render reads %v, want %d", step, render.Reads, buffers[roles.RenderSource])
		}
		if len(render.Writes) != 0 {
			t.Errorf("step %d: render wrote %v", step, render.Writes)
		}
		if compute.Workgroups != [3]uint32{2, 2, 1} {
			t.Errorf("step %d: workgroups = %v, want [2 2 1]", step, compute.Workgroups)
		}
		if render.Vertices != quadVertices || render.Target != h.surface.View() {
			t.Errorf("step %d: render record %+v", step, render)
		}
	}
}

func TestRenderedPixels(t *testing.T) {
	size := Size{Width: 8, Height: 6}
	for _, scale := range []int{1, 2, 3} {
		seed := seedCells(size, RandomSeed(0.5, rand.NewPCG(9, uint64(scale))))
		h := newHarness(t, size, size.Width*scale, size.Height*scale,
			WithSeed(gridSeed(seed, size)), WithColors(white, black))
		h.advance(t, 1)

		want, _ := Evolve(seed, size, 1)
		img := h.surface.Image()
		b := img.Bounds()
		for py := range b.Dy() {
			for px := range b.Dx() {
				c := CellAt(px, py, b.Dx(), b.Dy(), size)
				var wantR uint8
				if want[c.Y*size.Width+c.X].IsAlive() {
					wantR = 255
				}
				if got := img.RGBAAt(px, py); got.R != wantR || got.A != 255 {
					t.Fatalf("scale %d: pixel (%d,%d) = %v, cell %v alive=%v",
						scale, px, py, got, c, wantR == 255)
				}
			}
		}
		if h.surface.Presented() != 1 {
			t.Errorf("scale %d: presented %d frames, want 1", scale, h.surface.Presented())
		}
	}
}

func TestSkipRender(t *testing.T) {
	size := Size{Width: 5, Height: 5}
	seed := []Point{{1, 2}, {2, 2}, {3, 2}}
	h := newHarness(t, size, 5, 5, WithSeed(PatternSeed(seed...)))

	h.surface.SetLost(true)
	h.adapter.ResetTrace()
	err := h.sim.Advance(0)
	if !errors.Is(err, ErrFrameSkipped) || !errors.Is(err, gpucore.ErrSurfaceLost) {
		t.Fatalf("Advance on lost surface error = %v, want ErrFrameSkipped wrapping ErrSurfaceLost", err)
	}
	if h.sim.Step() != 1 || h.sim.Parity() != Odd {
		t.Errorf("step = %d parity = %s, want 1 ODD", h.sim.Step(), h.sim.Parity())
	}
	trace := h.adapter.Trace()
	if len(trace) != 1 || trace[0].Kind != software.PassCompute {
		t.Errorf("trace = %+v, want one compute pass", trace)
	}
	if h.surface.Presented() != 0 {
		t.Error("skipped frame was presented")
	}

	h.surface.SetLost(false)
	h.advance(t, 1)
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, seed) {
		t.Errorf("after skipped + rendered step alive = %v, want %v", got, seed)
	}
}

func TestSkipFrame(t *testing.T) {
	h := newHarness(t, Size{Width: 4, Height: 4}, 4, 4, WithSkipPolicy(SkipFrame), WithRandomSeed(2))
	before := h.cells(t)

	h.surface.Resize(8, 8)
	err := h.sim.Advance(0)
	if !errors.Is(err, ErrFrameSkipped) || !errors.Is(err, gpucore.ErrSurfaceOutdated) {
		t.Fatalf("Advance after resize error = %v, want ErrFrameSkipped wrapping ErrSurfaceOutdated", err)
	}
	if h.sim.Step() != 0 || h.adapter.Submissions() != 0 {
		t.Errorf("step = %d submissions = %d, want nothing submitted", h.sim.Step(), h.adapter.Submissions())
	}
	if !slices.Equal(h.cells(t), before) {
		t.Error("skipped frame changed the cells")
	}

	h.advance(t, 1)
	if h.sim.Step() != 1 {
		t.Errorf("step = %d after recovery, want 1", h.sim.Step())
	}
}

func TestDeviceLostIsLatched(t *testing.T) {
	h := newHarness(t, Size{Width: 4, Height: 4}, 4, 4)
	h.adapter.SetDeviceLost(true)
	if err := h.sim.Advance(0); !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("Advance error = %v, want ErrDeviceLost", err)
	}
	h.adapter.SetDeviceLost(false)
	if err := h.sim.Advance(0); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("second Advance error = %v, want latched ErrDeviceLost", err)
	}
	if h.sim.Step() != 0 {
		t.Errorf("step = %d, want 0", h.sim.Step())
	}
	if _, err := h.sim.Cells(); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("Cells error = %v, want ErrDeviceLost", err)
	}
}

func TestClose(t *testing.T) {
	a := software.New()
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 4, 4)
	base := a.ResourceCount()

	sim, err := New(a, s, Size{Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	if a.ResourceCount() == base {
		t.Fatal("New created no resources")
	}
	if err := sim.Advance(0); err != nil {
		t.Fatal(err)
	}
	sim.Close()
	sim.Close()
	if got := a.ResourceCount(); got != base {
		t.Errorf("ResourceCount after Close = %d, want %d", got, base)
	}
	if err := sim.Advance(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Advance after Close error = %v, want ErrClosed", err)
	}
	if _, err := sim.Cells(); !errors.Is(err, ErrClosed) {
		t.Errorf("Cells after Close error = %v, want ErrClosed", err)
	}
	if err := sim.Reset(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset after Close error = %v, want ErrClosed", err)
	}
}

func TestReset(t *testing.T) {
	size := Size{Width: 6, Height: 6}
	glider := []Point{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	h := newHarness(t, size, 6, 6, WithSeed(PatternSeed(glider...)))
	h.advance(t, 3)

	block := []Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	if err := h.sim.Reset(PatternSeed(block...)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if h.sim.Step() != 0 || h.sim.Parity() != Even {
		t.Errorf("after Reset step = %d parity = %s", h.sim.Step(), h.sim.Parity())
	}
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, block) {
		t.Errorf("after Reset alive = %v, want %v", got, block)
	}
	h.advance(t, 1)
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, block) {
		t.Errorf("block after Reset + 1 step alive = %v, want %v", got, block)
	}

	if err := h.sim.Reset(nil); err != nil {
		t.Fatalf("Reset(nil): %v", err)
	}
	if got := alivePoints(h.cells(t), size); !slices.Equal(got, glider) {
		t.Errorf("Reset(nil) alive = %v, want the creation seed %v", got, glider)
	}
}

func TestPopulation(t *testing.T) {
	h := newHarness(t, Size{Width: 5, Height: 5}, 5, 5, WithSeed(PatternSeed(Point{1, 2}, Point{2, 2}, Point{3, 2})))
	n, err := h.sim.Population()
	if err != nil || n != 3 {
		t.Errorf("Population() = %d, %v, want 3", n, err)
	}
}

// bgraSurface reports a different format than the software surface it wraps.
type bgraSurface struct{ *software.Surface }

func (bgraSurface) Format() gpucore.TextureFormat { return gpucore.TextureFormatBGRA8Unorm }

func TestSetSurface(t *testing.T) {
	h := newHarness(t, Size{Width: 4, Height: 4}, 4, 4, WithRandomSeed(5))
	count := h.adapter.ResourceCount()

	if err := h.sim.SetSurface(nil); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("SetSurface(nil) error = %v", err)
	}
	if err := h.sim.SetSurface(bgraSurface{h.surface}); err != nil {
		t.Fatalf("SetSurface(bgra): %v", err)
	}
	if got := h.adapter.ResourceCount(); got != count {
		t.Errorf("ResourceCount after format change = %d, want %d", got, count)
	}

	other, _ := software.NewSurface(h.adapter, 8, 8)
	t.Cleanup(other.Destroy)
	if err := h.sim.SetSurface(other); err != nil {
		t.Fatalf("SetSurface: %v", err)
	}
	h.advance(t, 1)
	if other.Presented() != 1 || h.surface.Presented() != 0 {
		t.Errorf("presented: new=%d old=%d, want 1 and 0", other.Presented(), h.surface.Presented())
	}
}

func TestNewInvalidSize(t *testing.T) {
	a := software.New()
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 4, 4)
	for _, size := range []Size{{0, 4}, {4, 0}, {-1, 3}} {
		if _, err := New(a, s, size); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("New(%s) error = %v, want ErrInvalidSize", size, err)
		}
	}
	if _, err := New(a, s, Size{Width: 1 << 16, Height: 1 << 16}); !errors.Is(err, ErrInitialization) ||
		!errors.Is(err, ErrInvalidSize) {
		t.Errorf("New(huge) error = %v, want ErrInitialization wrapping ErrInvalidSize", err)
	}
}

// noComputeAdapter hides compute support.
type noComputeAdapter struct{ *software.Adapter }

func (a noComputeAdapter) Capabilities() gpucore.AdapterCapabilities {
	c := a.Adapter.Capabilities()
	c.SupportsCompute = false
	return c
}

// failingAdapter refuses to create render pipelines.
type failingAdapter struct{ *software.Adapter }

var errPipeline = errors.New("pipeline creation refused")

func (failingAdapter) CreateRenderPipeline(*gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	return gpucore.InvalidID, errPipeline
}

func TestNewFailures(t *testing.T) {
	a := software.New()
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 4, 4)
	size := Size{Width: 4, Height: 4}

	if _, err := New(noComputeAdapter{a}, s, size); !errors.Is(err, ErrInitialization) || !errors.Is(err, ErrNoCompute) {
		t.Errorf("New without compute error = %v, want ErrInitialization wrapping ErrNoCompute", err)
	}

	base := a.ResourceCount()
	if _, err := New(failingAdapter{a}, s, size); !errors.Is(err, ErrInitialization) || !errors.Is(err, errPipeline) {
		t.Errorf("New with failing pipeline error = %v", err)
	}
	if got := a.ResourceCount(); got != base {
		t.Errorf("ResourceCount after failed New = %d, want %d", got, base)
	}

	if _, err := New(a, s, size, WithWorkgroupSize(0)); !errors.Is(err, ErrInitialization) {
		t.Errorf("New with workgroup size 0 error = %v, want ErrInitialization", err)
	}
	if _, err := New(nil, s, size); !errors.Is(err, ErrInitialization) {
		t.Errorf("New(nil adapter) error = %v, want ErrInitialization", err)
	}
}

func TestWorkgroupSizeMismatch(t *testing.T) {
	a := software.New()
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 32, 32)
	t.Cleanup(s.Destroy)

	base := a.ResourceCount()
	_, err := New(a, s, Size{Width: 32, Height: 32}, WithWorkgroupSize(16), WithRandomSeed(7))
	if !errors.Is(err, ErrInitialization) || !errors.Is(err, ErrWorkgroupMismatch) {
		t.Fatalf("New with workgroup size 16 error = %v, want ErrInitialization wrapping ErrWorkgroupMismatch", err)
	}
	if got := a.ResourceCount(); got != base {
		t.Errorf("ResourceCount after failed New = %d, want %d", got, base)
	}
}

func TestWorkgroupSizeFollowsKernel(t *testing.T) {
	k := software.NewKernels()
	k.AddCompute(EntryCompute, software.ComputeKernel{
		WorkgroupSize: [3]uint32{16, 16, 1},
		Main:          computeKernel,
	})
	a := software.New(software.WithKernels(k))
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 32, 32)
	t.Cleanup(s.Destroy)
	size := Size{Width: 32, Height: 32}

	if _, err := New(a, s, size); !errors.Is(err, ErrWorkgroupMismatch) {
		t.Fatalf("New with default workgroup size error = %v, want ErrWorkgroupMismatch", err)
	}

	seed := seedCells(size, RandomSeed(0.4, rand.NewPCG(7, 7)))
	sim, err := New(a, s, size, WithWorkgroupSize(16), WithSeed(gridSeed(seed, size)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(sim.Close)
	if err := sim.Advance(0); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	got, err := sim.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	want, _ := Evolve(seed, size, 1)
	if !slices.Equal(got, want) {
		t.Error("generation 1 differs from NextGeneration")
	}
}

// refusingSurface renders normally but fails every Present.
type refusingSurface struct{ *software.Surface }

var errPresentRefused = errors.New("present refused")

func (s refusingSurface) Present() error {
	if err := s.Surface.Present(); err != nil {
		return err
	}
	return errPresentRefused
}

func TestPresentFailure(t *testing.T) {
	a := software.New()
	t.Cleanup(a.Destroy)
	s, _ := software.NewSurface(a, 5, 5)
	t.Cleanup(s.Destroy)
	size := Size{Width: 5, Height: 5}
	blinker := PatternSeed(Point{1, 2}, Point{2, 2}, Point{3, 2})

	sim, err := New(a, refusingSurface{s}, size, WithSeed(blinker))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(sim.Close)

	for i := range 2 {
		err := sim.Advance(0)
		if !errors.Is(err, ErrPresentFailed) || !errors.Is(err, errPresentRefused) {
			t.Fatalf("Advance #%d error = %v, want ErrPresentFailed wrapping the surface error", i, err)
		}
		if errors.Is(err, ErrFrameSkipped) || errors.Is(err, ErrDeviceLost) {
			t.Fatalf("Advance #%d error = %v, must not report a skip or a lost device", i, err)
		}
	}
	if sim.Step() != 2 {
		t.Errorf("Step() = %d, want 2", sim.Step())
	}
	got, err := sim.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	want, _ := Evolve(seedCells(size, blinker), size, 2)
	if !slices.Equal(got, want) {
		t.Error("cells after two rendered steps differ from NextGeneration")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew with invalid size did not panic")
		}
	}()
	MustNew(nil, nil, Size{})
}

func TestSimulationsShareAdapter(t *testing.T) {
	h := newHarness(t, Size{Width: 5, Height: 5}, 5, 5, WithSeed(PatternSeed(Point{1, 2}, Point{2, 2}, Point{3, 2})))
	other, err := New(h.adapter, h.surface, Size{Width: 4, Height: 4},
		WithSeed(PatternSeed(Point{1, 1}, Point{2, 1}, Point{1, 2}, Point{2, 2})), WithLabel("other"))
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if other.ID() == h.sim.ID() {
		t.Error("simulations share an ID")
	}

	h.advance(t, 1)
	if err := other.Advance(0); err != nil {
		t.Fatal(err)
	}
	if n, _ := h.sim.Population(); n != 3 {
		t.Errorf("blinker population = %d, want 3", n)
	}
	if n, _ := other.Population(); n != 4 {
		t.Errorf("block population = %d, want 4", n)
	}
}
