//go:build !nogpu

package wgpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/life"
	"github.com/gogpu/life/gpucore"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newNoopAdapter(t *testing.T) *Adapter {
	t.Helper()
	device, queue := createNoopDevice(t)
	a, err := New(device, queue)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

// skipOnNagaLimitation skips tests that depend on shader features the
// compiler does not implement yet.
func skipOnNagaLimitation(t *testing.T, err error) {
	t.Helper()
	msg := err.Error()
	if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
}

func TestShaderCompilation(t *testing.T) {
	if life.ShaderSource == "" {
		t.Fatal("shader source is empty")
	}
	spirvBytes, err := naga.Compile(life.ShaderSource)
	if err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("failed to compile life shader: %v", err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		t.Fatalf("SPIR-V length %d is not a whole number of words", len(spirvBytes))
	}
	words := spirvWords(spirvBytes)
	if words[0] != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", words[0])
	}
}

func TestNewRejectsNilDevice(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil, nil) should fail")
	}
}

func TestCapabilities(t *testing.T) {
	a := newNoopAdapter(t)
	caps := a.Capabilities()
	if !caps.SupportsCompute {
		t.Error("adapter should support compute")
	}
	limits := gputypes.DefaultLimits()
	if caps.MaxBufferSize != limits.MaxBufferSize {
		t.Errorf("MaxBufferSize = %d, want %d", caps.MaxBufferSize, limits.MaxBufferSize)
	}
	if caps.MaxWorkgroupSizeX < life.DefaultWorkgroupSize {
		t.Errorf("MaxWorkgroupSizeX = %d, want >= %d", caps.MaxWorkgroupSizeX, life.DefaultWorkgroupSize)
	}
}

func TestBufferLifecycle(t *testing.T) {
	a := newNoopAdapter(t)

	id, err := a.CreateBuffer("cells", 64, gpucore.BufferUsageStorage|gpucore.BufferUsageCopyDst|gpucore.BufferUsageCopySrc)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := a.WriteBuffer(id, 0, make([]byte, 64)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := a.WriteBuffer(id, 60, make([]byte, 8)); err == nil {
		t.Error("overflowing WriteBuffer should fail")
	}

	data, err := a.ReadBuffer(id, 5, 10)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if len(data) != 10 {
		t.Errorf("ReadBuffer returned %d bytes, want 10", len(data))
	}
	if _, err := a.ReadBuffer(id, 60, 8); err == nil {
		t.Error("overflowing ReadBuffer should fail")
	}
	if a.Pending() != 0 {
		t.Errorf("Pending() = %d after ReadBuffer, want 0", a.Pending())
	}

	a.DestroyBuffer(id)
	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d, want 0", a.ResourceCount())
	}
	if err := a.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("WriteBuffer on destroyed buffer error = %v, want ErrNotFound", err)
	}
}

func TestCreateBufferErrors(t *testing.T) {
	a := newNoopAdapter(t)
	if _, err := a.CreateBuffer("empty", 0, gpucore.BufferUsageStorage); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("zero-size buffer error = %v, want ErrInvalidDescriptor", err)
	}
	huge := int(a.Capabilities().MaxBufferSize) + 4
	if _, err := a.CreateBuffer("huge", huge, gpucore.BufferUsageStorage); !errors.Is(err, gpucore.ErrOutOfMemory) {
		t.Errorf("oversized buffer error = %v, want ErrOutOfMemory", err)
	}
}

func TestBindGroupErrors(t *testing.T) {
	a := newNoopAdapter(t)
	layout, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label: "params",
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpucore.ShaderStageCompute, Type: gpucore.BindingTypeUniformBuffer},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	if _, err := a.CreateBindGroup(&gpucore.BindGroupDesc{
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: 999}},
	}); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("unknown buffer error = %v, want ErrNotFound", err)
	}
	if _, err := a.CreatePipelineLayout("bad", []gpucore.BindGroupLayoutID{999}); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("unknown layout error = %v, want ErrNotFound", err)
	}
	if _, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Entries: []gpucore.BindGroupLayoutEntry{{Binding: 0, Type: gpucore.BindingType(99)}},
	}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("unknown binding type error = %v, want ErrInvalidDescriptor", err)
	}

	ubo, _ := a.CreateBuffer("ubo", 16, gpucore.BufferUsageUniform)
	group, err := a.CreateBindGroup(&gpucore.BindGroupDesc{
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: ubo}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	a.DestroyBindGroup(group)
	a.DestroyBuffer(ubo)
	a.DestroyBindGroupLayout(layout)
	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d, want 0", a.ResourceCount())
	}
}

func TestSubmitRetiresCommandBuffers(t *testing.T) {
	a := newNoopAdapter(t)

	var ids []gpucore.CommandBufferID
	for range MaxFramesInFlight + 2 {
		enc, err := a.BeginEncoding("frame")
		if err != nil {
			t.Fatalf("BeginEncoding: %v", err)
		}
		cp := enc.BeginComputePass("empty")
		cp.End()
		id, err := enc.Finish()
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if err := a.Submit(id); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if p := a.Pending(); p > MaxFramesInFlight {
			t.Fatalf("Pending() = %d, want <= %d", p, MaxFramesInFlight)
		}
		ids = append(ids, id)
	}
	if err := a.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if a.Pending() != 0 {
		t.Errorf("Pending() = %d after WaitIdle, want 0", a.Pending())
	}
	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d, want 0 after submit", a.ResourceCount())
	}
	if err := a.Submit(ids[0]); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("resubmit error = %v, want ErrNotFound", err)
	}
}

func TestEncoderStickyErrors(t *testing.T) {
	a := newNoopAdapter(t)

	enc, _ := a.BeginEncoding("bad pipeline")
	cp := enc.BeginComputePass("step")
	cp.SetPipeline(42)
	cp.Dispatch(1, 1, 1)
	cp.End()
	if _, err := enc.Finish(); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("unknown pipeline error = %v, want ErrNotFound", err)
	}

	enc, _ = a.BeginEncoding("bad target")
	rp := enc.BeginRenderPass(&gpucore.RenderPassDesc{Target: 42})
	rp.Draw(6, 1, 0, 0)
	rp.End()
	if _, err := enc.Finish(); !errors.Is(err, gpucore.ErrNotFound) {
		t.Errorf("unknown target error = %v, want ErrNotFound", err)
	}

	enc, _ = a.BeginEncoding("open pass")
	enc.BeginComputePass("never ended")
	if _, err := enc.Finish(); err == nil {
		t.Error("Finish with an open pass should fail")
	}
	if _, err := enc.Finish(); !errors.Is(err, gpucore.ErrEncoderFinished) {
		t.Errorf("second Finish error = %v, want ErrEncoderFinished", err)
	}
}

func TestFrameSurface(t *testing.T) {
	a := newNoopAdapter(t)
	s, err := NewFrameSurface(a, gpucore.TextureFormatUndefined)
	if err != nil {
		t.Fatalf("NewFrameSurface: %v", err)
	}
	defer s.Destroy()
	if s.Format() != gpucore.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %s, want bgra8unorm", s.Format())
	}

	if _, err := s.AcquireTexture(); !errors.Is(err, gpucore.ErrSurfaceLost) {
		t.Errorf("AcquireTexture without view error = %v, want ErrSurfaceLost", err)
	}
	if err := s.SetView("not a view", 8, 8); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("SetView(string) error = %v, want ErrInvalidDescriptor", err)
	}
	if err := s.SetView(nil, 0, 0); err != nil {
		t.Errorf("SetView(nil) error = %v", err)
	}
	if err := s.Present(); err == nil {
		t.Error("Present without acquire should fail")
	}

	if _, err := NewFrameSurface(a, gpucore.TextureFormatBGRA8UnormSRGB); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("srgb surface error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOffscreenSurface(t *testing.T) {
	a := newNoopAdapter(t)
	if _, err := NewOffscreenSurface(a, 0, 4); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("NewOffscreenSurface(0, 4) error = %v, want ErrInvalidDescriptor", err)
	}

	s, err := NewOffscreenSurface(a, 5, 3)
	if err != nil {
		t.Fatalf("NewOffscreenSurface: %v", err)
	}
	defer s.Destroy()

	view, err := s.AcquireTexture()
	if err != nil {
		t.Fatalf("AcquireTexture: %v", err)
	}
	if view == gpucore.InvalidID {
		t.Fatal("AcquireTexture returned InvalidID")
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}

	img, err := s.Image()
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Errorf("image bounds = %v, want 5x3", b)
	}

	if err := s.Resize(7, 2); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := s.Size(); w != 7 || h != 2 {
		t.Errorf("Size() = %dx%d, want 7x2", w, h)
	}
}

type fakeProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p fakeProvider) HalDevice() any { return p.device }
func (p fakeProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	a, err := NewFromProvider(fakeProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	a.Destroy()

	if _, err := NewFromProvider(struct{}{}); !errors.Is(err, ErrProvider) {
		t.Errorf("plain struct error = %v, want ErrProvider", err)
	}
	if _, err := NewFromProvider(fakeProvider{device: device}); !errors.Is(err, ErrProvider) {
		t.Errorf("missing queue error = %v, want ErrProvider", err)
	}
}

func TestDestroyedAdapter(t *testing.T) {
	device, queue := createNoopDevice(t)
	a, err := New(device, queue)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	id, _ := a.CreateBuffer("cells", 16, gpucore.BufferUsageStorage)
	a.Destroy()
	a.Destroy()

	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d after Destroy, want 0", a.ResourceCount())
	}
	if _, err := a.BeginEncoding("late"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("BeginEncoding after Destroy error = %v, want ErrDestroyed", err)
	}
	if err := a.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("WriteBuffer after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestSimulationOnNoopDevice(t *testing.T) {
	a := newNoopAdapter(t)
	s, err := NewOffscreenSurface(a, 32, 32)
	if err != nil {
		t.Fatalf("NewOffscreenSurface: %v", err)
	}
	defer s.Destroy()

	glider, _ := life.ParsePattern(".O.\n..O\nOOO")
	sim, err := life.New(a, s, life.Size{Width: 16, Height: 16}, life.WithSeed(life.PatternSeed(glider...)))
	if err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("life.New: %v", err)
	}

	for i := range 4 {
		if err := sim.Advance(1.0 / 60); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}
	if sim.Step() != 4 {
		t.Errorf("Step() = %d, want 4", sim.Step())
	}
	if sim.Current() != 0 {
		t.Errorf("Current() = %d after 4 steps, want 0", sim.Current())
	}
	cells, err := sim.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	if len(cells) != 256 {
		t.Errorf("len(Cells()) = %d, want 256", len(cells))
	}

	sim.Close()
	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d after Close, want 0", a.ResourceCount())
	}
}

// refusingDevice hands out command encoders whose BeginEncoding fails.
type refusingDevice struct {
	hal.Device
	discarded int
}

var errBeginRefused = errors.New("begin encoding refused")

func (d *refusingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &refusingEncoder{CommandEncoder: enc, device: d}, nil
}

type refusingEncoder struct {
	hal.CommandEncoder
	device *refusingDevice
}

func (e *refusingEncoder) BeginEncoding(string) error { return errBeginRefused }

func (e *refusingEncoder) DiscardEncoding() {
	e.device.discarded++
	e.CommandEncoder.DiscardEncoding()
}

func TestBeginEncodingFailureDiscardsEncoder(t *testing.T) {
	device, queue := createNoopDevice(t)
	d := &refusingDevice{Device: device}
	a, err := New(d, queue)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Destroy)

	if _, err := a.BeginEncoding("refused"); !errors.Is(err, errBeginRefused) {
		t.Fatalf("BeginEncoding error = %v, want %v", err, errBeginRefused)
	}
	if d.discarded != 1 {
		t.Errorf("encoder discarded %d times, want 1", d.discarded)
	}
}

func TestSimulationWorkgroupMismatch(t *testing.T) {
	a := newNoopAdapter(t)
	s, err := NewOffscreenSurface(a, 16, 16)
	if err != nil {
		t.Fatalf("NewOffscreenSurface: %v", err)
	}
	defer s.Destroy()

	_, err = life.New(a, s, life.Size{Width: 16, Height: 16}, life.WithWorkgroupSize(4))
	if !errors.Is(err, life.ErrWorkgroupMismatch) {
		if err != nil {
			skipOnNagaLimitation(t, err)
		}
		t.Fatalf("life.New with workgroup size 4 error = %v, want ErrWorkgroupMismatch", err)
	}
	if a.ResourceCount() != 0 {
		t.Errorf("ResourceCount() = %d after failed New, want 0", a.ResourceCount())
	}
}
