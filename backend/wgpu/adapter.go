//go:build !nogpu

package wgpu

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/gpucore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// renderTarget is a texture view registered by a surface. view is nil
// while a FrameSurface has no swapchain image.
type renderTarget struct {
	view   hal.TextureView
	format gpucore.TextureFormat
}

type buffer struct {
	buf   hal.Buffer
	size  uint64
	usage gpucore.BufferUsage
}

type renderPipeline struct {
	pipeline hal.RenderPipeline
	format   gpucore.TextureFormat
}

// Adapter implements gpucore.GPUAdapter using gogpu/wgpu/hal directly.
//
// Thread Safety: Adapter is safe for concurrent use from multiple goroutines.
// Resource tables are protected by mu; queue operations by queueMu.
type Adapter struct {
	mu      sync.RWMutex
	queueMu sync.Mutex

	instance hal.Instance // non-nil when the adapter owns the device
	device   hal.Device
	queue    hal.Queue
	owned    bool

	caps          gpucore.AdapterCapabilities
	surfaceFormat gpucore.TextureFormat

	// ID generation
	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]*buffer
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline
	renderPipelines  map[gpucore.RenderPipelineID]*renderPipeline
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup
	commandBuffers   map[gpucore.CommandBufferID]hal.CommandBuffer
	targets          map[gpucore.TextureViewID]*renderTarget

	// Fenced submission, guarded by queueMu.
	fence      hal.Fence
	fenceValue uint64
	inflight   []submission

	destroyed bool
}

// New creates an Adapter over an existing device and queue. The adapter
// does not take ownership: Destroy releases the adapter's resources but
// leaves device and queue alive.
func New(device hal.Device, queue hal.Queue) (*Adapter, error) {
	return newAdapter(device, queue, gputypes.DefaultLimits(), "wgpu")
}

func newAdapter(device hal.Device, queue hal.Queue, limits gputypes.Limits, name string) (*Adapter, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}

	caps := gpucore.DefaultCapabilities()
	caps.Name = name
	if limits.MaxBufferSize > 0 {
		caps.MaxBufferSize = limits.MaxBufferSize
	}
	if limits.MaxComputeWorkgroupSizeX > 0 {
		caps.MaxWorkgroupSizeX = limits.MaxComputeWorkgroupSizeX
	}
	if limits.MaxComputeWorkgroupSizeY > 0 {
		caps.MaxWorkgroupSizeY = limits.MaxComputeWorkgroupSizeY
	}

	a := &Adapter{
		device:           device,
		queue:            queue,
		caps:             caps,
		surfaceFormat:    gpucore.TextureFormatBGRA8Unorm,
		fence:            fence,
		buffers:          make(map[gpucore.BufferID]*buffer),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		renderPipelines:  make(map[gpucore.RenderPipelineID]*renderPipeline),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
		commandBuffers:   make(map[gpucore.CommandBufferID]hal.CommandBuffer),
		targets:          make(map[gpucore.TextureViewID]*renderTarget),
	}
	slogger().Info("wgpu: adapter created", "name", name)
	return a, nil
}

// NewFromProvider creates an Adapter sharing the device of a host
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. If it implements
// gpucontext.DeviceProvider, its surface format is used by FrameSurfaces.
func NewFromProvider(provider any) (*Adapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}

	a, err := newAdapter(device, queue, gputypes.DefaultLimits(), "wgpu (shared)")
	if err != nil {
		return nil, err
	}
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		if f := textureFormatFrom(dp.SurfaceFormat()); f != gpucore.TextureFormatUndefined {
			a.surfaceFormat = f
		} else {
			slogger().Warn("wgpu: provider surface format not supported, using default",
				"format", a.surfaceFormat.String())
		}
	}
	return a, nil
}

// NewStandalone creates a Vulkan instance and opens the first discrete or
// integrated GPU, falling back to the first adapter found. Destroy releases
// the device and instance.
func NewStandalone() (*Adapter, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	a, err := newAdapter(openDev.Device, openDev.Queue, limits, selected.Info.Name)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	a.instance = instance
	a.owned = true
	return a, nil
}

// newID generates a unique resource ID. IDs start at 1 so the zero value
// stays invalid.
func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1)
}

// SetLogger sets the logger for the wgpu backend.
// Called by life.SetLogger propagation.
func (a *Adapter) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Capabilities returns the adapter limits.
func (a *Adapter) Capabilities() gpucore.AdapterCapabilities {
	return a.caps
}

// SurfaceFormat returns the default format for FrameSurfaces.
func (a *Adapter) SurfaceFormat() gpucore.TextureFormat {
	return a.surfaceFormat
}

// === Shader Compilation ===

// CreateShaderModule compiles WGSL to SPIR-V and creates a shader module.
func (a *Adapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil || desc.Source == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: empty shader source", gpucore.ErrInvalidDescriptor)
	}
	spirvBytes, err := naga.Compile(desc.Source)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: compile shader %q: %w", desc.Label, err)
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: spirvWords(spirvBytes)},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create shader module %q: %w", desc.Label, err)
	}

	id := gpucore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()

	slogger().Debug("wgpu: shader module created", "label", desc.Label, "spirv_bytes", len(spirvBytes))
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	delete(a.shaderModules, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyShaderModule(module)
	}
}

// === Buffer Management ===

// CreateBuffer creates a GPU buffer.
func (a *Adapter) CreateBuffer(label string, size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q size %d", gpucore.ErrInvalidDescriptor, label, size)
	}
	if uint64(size) > a.caps.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q size %d exceeds %d",
			gpucore.ErrOutOfMemory, label, size, a.caps.MaxBufferSize)
	}

	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}

	id := gpucore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = &buffer{buf: buf, size: uint64(size), usage: usage}
	a.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	b, ok := a.buffers[id]
	delete(a.buffers, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyBuffer(b.buf)
	}
}

func (a *Adapter) lookupBuffer(id gpucore.BufferID) (*buffer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.destroyed {
		return nil, ErrDestroyed
	}
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrNotFound, id)
	}
	return b, nil
}

// WriteBuffer schedules a write to a buffer. The write is ordered before
// every later submission.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	b, err := a.lookupBuffer(id)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("wgpu: write of %d bytes at %d overflows buffer %d (%d bytes)",
			len(data), offset, id, b.size)
	}
	if len(data) == 0 {
		return nil
	}
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	a.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

// === Pipeline Management ===

// CreateBindGroupLayout creates a bind group layout.
func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group layout descriptor", gpucore.ErrInvalidDescriptor)
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		var err error
		if entries[i], err = convertBindGroupLayoutEntry(e); err != nil {
			return gpucore.InvalidID, err
		}
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group layout %q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.bindGroupLayouts[id]
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

// CreatePipelineLayout creates a pipeline layout.
func (a *Adapter) CreatePipelineLayout(label string, layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	a.mu.RLock()
	for i, id := range layouts {
		l, ok := a.bindGroupLayouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrNotFound, id)
		}
		halLayouts[i] = l
	}
	a.mu.RUnlock()

	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create pipeline layout %q: %w", label, err)
	}

	id := gpucore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	layout, ok := a.pipelineLayouts[id]
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyPipelineLayout(layout)
	}
}

func (a *Adapter) lookupPipelineParts(layoutID gpucore.PipelineLayoutID, moduleID gpucore.ShaderModuleID) (hal.PipelineLayout, hal.ShaderModule, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	layout, ok := a.pipelineLayouts[layoutID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrNotFound, layoutID)
	}
	module, ok := a.shaderModules[moduleID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: shader module %d", gpucore.ErrNotFound, moduleID)
	}
	return layout, module, nil
}

// CreateComputePipeline creates a compute pipeline.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil compute pipeline descriptor", gpucore.ErrInvalidDescriptor)
	}
	layout, module, err := a.lookupPipelineParts(desc.Layout, desc.ShaderModule)
	if err != nil {
		return gpucore.InvalidID, err
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Compute: hal.ComputeState{Module: module, EntryPoint: desc.EntryPoint},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err)
	}

	id := gpucore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	pipeline, ok := a.computePipelines[id]
	delete(a.computePipelines, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyComputePipeline(pipeline)
	}
}

// CreateRenderPipeline creates a render pipeline drawing triangle lists
// without vertex buffers into one color target.
func (a *Adapter) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil render pipeline descriptor", gpucore.ErrInvalidDescriptor)
	}
	format, err := convertTextureFormat(desc.TargetFormat)
	if err != nil {
		return gpucore.InvalidID, err
	}
	layout, module, err := a.lookupPipelineParts(desc.Layout, desc.ShaderModule)
	if err != nil {
		return gpucore.InvalidID, err
	}

	pipeline, err := a.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create render pipeline %q: %w", desc.Label, err)
	}

	id := gpucore.RenderPipelineID(a.newID())
	a.mu.Lock()
	a.renderPipelines[id] = &renderPipeline{pipeline: pipeline, format: desc.TargetFormat}
	a.mu.Unlock()
	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (a *Adapter) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	a.mu.Lock()
	p, ok := a.renderPipelines[id]
	delete(a.renderPipelines, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyRenderPipeline(p.pipeline)
	}
}

// CreateBindGroup creates a bind group. A zero entry Size binds the rest
// of the buffer from Offset.
func (a *Adapter) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("%w: nil bind group descriptor", gpucore.ErrInvalidDescriptor)
	}

	a.mu.RLock()
	layout, ok := a.bindGroupLayouts[desc.Layout]
	if !ok {
		a.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrNotFound, desc.Layout)
	}
	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		b, ok := a.buffers[e.Buffer]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d at binding %d", gpucore.ErrNotFound, e.Buffer, e.Binding)
		}
		size := e.Size
		if size == 0 {
			size = b.size - e.Offset
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding:  e.Binding,
			Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: e.Offset, Size: size},
		}
	}
	a.mu.RUnlock()

	group, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group %q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = group
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	group, ok := a.bindGroups[id]
	delete(a.bindGroups, id)
	a.mu.Unlock()

	if ok {
		a.device.DestroyBindGroup(group)
	}
}

// === Render Targets ===

// registerTarget allocates a texture view ID for a surface.
func (a *Adapter) registerTarget(format gpucore.TextureFormat) gpucore.TextureViewID {
	id := gpucore.TextureViewID(a.newID())
	a.mu.Lock()
	a.targets[id] = &renderTarget{format: format}
	a.mu.Unlock()
	return id
}

func (a *Adapter) setTargetView(id gpucore.TextureViewID, view hal.TextureView) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.targets[id]; ok {
		t.view = view
	}
}

func (a *Adapter) unregisterTarget(id gpucore.TextureViewID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.targets, id)
}

// ResourceCount returns the number of live resources of all kinds,
// render targets excluded.
func (a *Adapter) ResourceCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.buffers) + len(a.shaderModules) + len(a.bindGroupLayouts) +
		len(a.pipelineLayouts) + len(a.computePipelines) + len(a.renderPipelines) +
		len(a.bindGroups) + len(a.commandBuffers)
}

// Destroy waits for the GPU, releases every resource the adapter still
// holds and, for NewStandalone adapters, the device and instance.
func (a *Adapter) Destroy() {
	if err := a.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle on destroy", "err", err)
	}

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	for id, cb := range a.commandBuffers {
		a.device.FreeCommandBuffer(cb)
		delete(a.commandBuffers, id)
	}
	for id, g := range a.bindGroups {
		a.device.DestroyBindGroup(g)
		delete(a.bindGroups, id)
	}
	for id, p := range a.renderPipelines {
		a.device.DestroyRenderPipeline(p.pipeline)
		delete(a.renderPipelines, id)
	}
	for id, p := range a.computePipelines {
		a.device.DestroyComputePipeline(p)
		delete(a.computePipelines, id)
	}
	for id, l := range a.pipelineLayouts {
		a.device.DestroyPipelineLayout(l)
		delete(a.pipelineLayouts, id)
	}
	for id, l := range a.bindGroupLayouts {
		a.device.DestroyBindGroupLayout(l)
		delete(a.bindGroupLayouts, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}
	for id, m := range a.shaderModules {
		a.device.DestroyShaderModule(m)
		delete(a.shaderModules, id)
	}
	clear(a.targets)
	a.mu.Unlock()

	a.queueMu.Lock()
	a.device.DestroyFence(a.fence)
	a.fence = nil
	a.queueMu.Unlock()

	if a.owned {
		a.device.Destroy()
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	slogger().Info("wgpu: adapter destroyed", "name", a.caps.Name)
}

// Compile-time interface check.
var _ gpucore.GPUAdapter = (*Adapter)(nil)
