package life

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gogpu/life/gpucore"
)

// Simulation is one double-buffered Game of Life running on a GPU adapter.
//
// It owns two cell buffers, a uniform block, one compute and one render
// pipeline, and four binding sets built once in New. Each Advance encodes a
// compute pass over the whole grid and a render pass into the surface,
// submits both as one command buffer and flips the parity.
//
// Simulation is not safe for concurrent use. Several Simulations may share
// one adapter.
type Simulation struct {
	id      uuid.UUID
	adapter gpucore.GPUAdapter
	surface gpucore.Surface
	format  gpucore.TextureFormat
	size    Size
	opts    options
	params  Params
	res     resources
	sched   scheduler
	groups  [2]uint32
	lost    error
	closed  bool
}

// New creates a Simulation of the given size presenting into surface.
//
// Buffer 0 receives the initial population (a random seed at
// DefaultDensity unless WithSeed is given) and buffer 1 is zeroed. Any
// failure after validation of size returns an error wrapping
// ErrInitialization and the cause; resources created so far are released.
func New(adapter gpucore.GPUAdapter, surface gpucore.Surface, size Size, opts ...Option) (*Simulation, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, size)
	}
	if adapter == nil || surface == nil {
		return nil, fmt.Errorf("%w: nil adapter or surface", ErrInitialization)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	caps := adapter.Capabilities()
	if !caps.SupportsCompute {
		return nil, fmt.Errorf("%w: %w: %s", ErrInitialization, ErrNoCompute, caps.Name)
	}
	if err := checkLimits(caps, size, o.workgroupSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	s := &Simulation{
		id:      uuid.New(),
		adapter: adapter,
		surface: surface,
		format:  surface.Format(),
		size:    size,
		opts:    o,
		params: Params{
			Width:  uint32(size.Width),
			Height: uint32(size.Height),
			Alive:  rgba(o.alive),
			Dead:   rgba(o.dead),
		},
		groups: [2]uint32{
			gpucore.WorkgroupCount(uint32(size.Width), o.workgroupSize),
			gpucore.WorkgroupCount(uint32(size.Height), o.workgroupSize),
		},
	}
	propagateLogger(adapter, Logger())

	if err := s.res.build(adapter, &o, size, s.format); err != nil {
		s.res.release(adapter)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if err := s.checkWorkgroup(); err != nil {
		s.res.release(adapter)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	if err := adapter.WriteBuffer(s.res.params, 0, s.params.Bytes()); err != nil {
		s.res.release(adapter)
		return nil, fmt.Errorf("%w: params upload: %w", ErrInitialization, err)
	}
	if err := s.upload(o.initialSeed()); err != nil {
		s.res.release(adapter)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	live.Store(s, struct{}{})
	s.logger().Info("life: simulation created",
		"adapter", caps.Name,
		"size", size.String(),
		"format", s.format.String(),
		"workgroups", fmt.Sprintf("%dx%d", s.groups[0], s.groups[1]))
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(adapter gpucore.GPUAdapter, surface gpucore.Surface, size Size, opts ...Option) *Simulation {
	s, err := New(adapter, surface, size, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// checkLimits verifies that the grid fits the adapter.
func checkLimits(caps gpucore.AdapterCapabilities, size Size, wg uint32) error {
	if wg == 0 || wg > caps.MaxWorkgroupSizeX || wg > caps.MaxWorkgroupSizeY ||
		uint64(wg)*uint64(wg) > uint64(caps.MaxWorkgroupInvocations) {
		return fmt.Errorf("workgroup size %dx%d exceeds adapter limits", wg, wg)
	}
	bytes := uint64(size.Cells()) * cellBytes
	if limit := min(caps.MaxBufferSize, caps.MaxStorageBufferBindingSize); limit > 0 && bytes > limit {
		return fmt.Errorf("%w: %s needs %d bytes per buffer, limit is %d", ErrInvalidSize, size, bytes, limit)
	}
	gx := gpucore.WorkgroupCount(uint32(size.Width), wg)
	gy := gpucore.WorkgroupCount(uint32(size.Height), wg)
	if m := caps.MaxComputeWorkgroupsPerDimension; m > 0 && (gx > m || gy > m) {
		return fmt.Errorf("%w: %s needs %dx%d workgroups, limit is %d", ErrInvalidSize, size, gx, gy, m)
	}
	return nil
}

// checkWorkgroup verifies that the compute pipeline runs the workgroup size
// the dispatch is sized for, so every cell gets an invocation.
func (s *Simulation) checkWorkgroup() error {
	got, err := s.pipelineWorkgroup()
	if err != nil {
		return err
	}
	wg := s.opts.workgroupSize
	if got != [3]uint32{wg, wg, 1} {
		return fmt.Errorf("%w: dispatch sized for %dx%dx1, %s runs %dx%dx%d",
			ErrWorkgroupMismatch, wg, wg, EntryCompute, got[0], got[1], got[2])
	}
	return nil
}

// pipelineWorkgroup returns the adapter's report when it has one and the
// @workgroup_size of the shader source otherwise.
func (s *Simulation) pipelineWorkgroup() ([3]uint32, error) {
	if r, ok := s.adapter.(gpucore.WorkgroupReporter); ok {
		if size, ok := r.ComputeWorkgroupSize(s.res.computePipeline); ok {
			return size, nil
		}
	}
	return shaderWorkgroupSize(s.opts.shaderSource, EntryCompute)
}

// upload writes a fresh population into buffer 0 and zeroes buffer 1.
func (s *Simulation) upload(seed SeedFunc) error {
	if err := s.adapter.WriteBuffer(s.res.buffers[0], 0, encodeCells(seedCells(s.size, seed))); err != nil {
		return fmt.Errorf("seed upload: %w", err)
	}
	if err := s.adapter.WriteBuffer(s.res.buffers[1], 0, make([]byte, s.size.Cells()*cellBytes)); err != nil {
		return fmt.Errorf("clear buffer 1: %w", err)
	}
	return nil
}

// Advance computes one generation and renders it. dt is ignored: every
// call advances exactly one generation.
//
// When the surface has no image Advance returns an error wrapping
// ErrFrameSkipped and the surface error. Under SkipRender the generation
// is still computed and the step counter advances; under SkipFrame nothing
// happens. A Present failure after submission returns ErrPresentFailed with
// the step already counted. Encoding and submission failures latch
// ErrDeviceLost.
func (s *Simulation) Advance(dt float64) error {
	_ = dt
	if s.closed {
		return ErrClosed
	}
	if s.lost != nil {
		return s.lost
	}

	view, acquireErr := s.surface.AcquireTexture()
	if acquireErr == nil && view == gpucore.InvalidID {
		acquireErr = gpucore.ErrSurfaceLost
	}
	if acquireErr != nil && s.opts.skip == SkipFrame {
		s.logger().Warn("life: frame skipped", "step", s.sched.step, "policy", s.opts.skip.String(), "err", acquireErr)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, acquireErr)
	}

	roles := s.sched.roles()
	enc, err := s.adapter.BeginEncoding(s.opts.label)
	if err != nil {
		return s.fail(err)
	}

	cp := enc.BeginComputePass(s.opts.label + " step")
	cp.SetPipeline(s.res.computePipeline)
	cp.SetBindGroup(0, s.res.compute[roles.ComputeSource])
	cp.Dispatch(s.groups[0], s.groups[1], 1)
	cp.End()

	if acquireErr == nil {
		rp := enc.BeginRenderPass(&gpucore.RenderPassDesc{
			Label:      s.opts.label + " present",
			Target:     view,
			ClearColor: clearColor(s.params.Dead),
		})
		rp.SetPipeline(s.res.renderPipeline)
		rp.SetBindGroup(0, s.res.render[roles.RenderSource])
		rp.Draw(quadVertices, 1, 0, 0)
		rp.End()
	}

	cb, err := enc.Finish()
	if err != nil {
		return s.fail(err)
	}
	if err := s.adapter.Submit(cb); err != nil {
		return s.fail(err)
	}
	s.sched.advance()

	if acquireErr != nil {
		s.logger().Warn("life: frame skipped", "step", s.sched.step, "policy", s.opts.skip.String(), "err", acquireErr)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, acquireErr)
	}
	if err := s.surface.Present(); err != nil {
		s.logger().Warn("life: present failed", "step", s.sched.step, "err", err)
		return fmt.Errorf("%w: %w", ErrPresentFailed, err)
	}
	s.logger().Debug("life: step submitted", "step", s.sched.step, "parity", s.sched.parity().String())
	return nil
}

// logger returns the package logger tagged with the simulation ID.
func (s *Simulation) logger() *slog.Logger {
	return Logger().With("sim", s.id.String())
}

// fail latches ErrDeviceLost with cause.
func (s *Simulation) fail(cause error) error {
	s.lost = fmt.Errorf("%w: %w", ErrDeviceLost, cause)
	s.logger().Error("life: device failure", "step", s.sched.step, "err", cause)
	return s.lost
}

// Reset reseeds buffer 0, zeroes buffer 1 and returns to step 0. A nil seed
// reuses the seed configured at creation. The binding sets are unchanged.
func (s *Simulation) Reset(seed SeedFunc) error {
	if s.closed {
		return ErrClosed
	}
	if s.lost != nil {
		return s.lost
	}
	if seed == nil {
		seed = s.opts.initialSeed()
	}
	if err := s.upload(seed); err != nil {
		return s.fail(err)
	}
	s.sched.reset()
	s.logger().Info("life: simulation reset")
	return nil
}

// SetSurface replaces the presentation target, for example after the
// window was recreated. The render pipeline is rebuilt when the surface
// format changes; cell buffers and binding sets are kept.
func (s *Simulation) SetSurface(surface gpucore.Surface) error {
	if s.closed {
		return ErrClosed
	}
	if surface == nil {
		return fmt.Errorf("life: SetSurface: %w", gpucore.ErrInvalidDescriptor)
	}
	if f := surface.Format(); f != s.format {
		p, err := s.res.newRenderPipeline(s.adapter, s.opts.label, f)
		if err != nil {
			return err
		}
		s.adapter.DestroyRenderPipeline(s.res.renderPipeline)
		s.res.renderPipeline = p
		s.logger().Debug("life: render pipeline rebuilt", "format", f.String())
		s.format = f
	}
	s.surface = surface
	return nil
}

// Cells reads the newest generation back from the device. It blocks until
// the device is idle on adapters that need a staging copy.
func (s *Simulation) Cells() ([]Cell, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.lost != nil {
		return nil, s.lost
	}
	b, err := s.adapter.ReadBuffer(s.res.buffers[s.sched.current()], 0, uint64(s.size.Cells()*cellBytes))
	if err != nil {
		return nil, fmt.Errorf("life: read cells: %w", err)
	}
	return decodeCells(b), nil
}

// Population returns the number of live cells in the newest generation.
func (s *Simulation) Population() (int, error) {
	cells, err := s.Cells()
	if err != nil {
		return 0, err
	}
	return Population(cells), nil
}

// Close waits for the device to finish and releases every resource.
// It is safe to call more than once. The surface is not closed.
func (s *Simulation) Close() {
	if s.closed {
		return
	}
	s.closed = true
	live.Delete(s)
	if err := s.adapter.WaitIdle(); err != nil {
		s.logger().Warn("life: wait idle on close", "err", err)
	}
	s.res.release(s.adapter)
	s.logger().Info("life: simulation closed", "steps", s.sched.step)
}

// ID returns the identifier assigned at creation.
func (s *Simulation) ID() uuid.UUID { return s.id }

// Size returns the grid size.
func (s *Simulation) Size() Size { return s.size }

// Step returns the number of submitted generations since creation or the
// last Reset.
func (s *Simulation) Step() uint64 { return s.sched.step }

// Parity returns the scheduler state of the next Advance.
func (s *Simulation) Parity() Parity { return s.sched.parity() }

// Current returns the index of the buffer holding the newest generation.
func (s *Simulation) Current() int { return s.sched.current() }

// Roles returns the buffer roles of the next Advance.
func (s *Simulation) Roles() Roles { return s.sched.roles() }

// Buffers returns the device IDs of buffer 0 and buffer 1.
func (s *Simulation) Buffers() [2]gpucore.BufferID { return s.res.buffers }
