package software

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/life/gpucore"
	"github.com/gogpu/life/internal/parallel"
	"github.com/gogpu/naga"
)

type buffer struct {
	label string
	data  []byte
	usage gpucore.BufferUsage
}

type shaderModule struct {
	label  string
	source string
}

type bindGroupLayout struct {
	label   string
	entries map[uint32]gpucore.BindGroupLayoutEntry
}

type pipelineLayout struct {
	label  string
	groups []*bindGroupLayout
}

type computePipeline struct {
	label  string
	layout *pipelineLayout
	entry  string
	kernel ComputeKernel
}

type renderPipeline struct {
	label    string
	layout   *pipelineLayout
	vertex   VertexKernel
	fragment FragmentKernel
	format   gpucore.TextureFormat
}

type bindGroupEntry struct {
	binding uint32
	id      gpucore.BufferID
	buf     *buffer
	offset  uint64
	size    uint64
	typ     gpucore.BindingType
}

type bindGroup struct {
	label      string
	layout     *bindGroupLayout
	entries    []bindGroupEntry
	maxBinding uint32
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithKernels adds an adapter-local kernel set that takes precedence over
// kernels registered with RegisterCompute, RegisterVertex and
// RegisterFragment.
func WithKernels(k *Kernels) Option {
	return func(a *Adapter) {
		a.kernels = k
	}
}

// WithValidation makes CreateShaderModule compile the WGSL source with
// naga and reject modules that fail, the way a real device would.
func WithValidation() Option {
	return func(a *Adapter) {
		a.validate = true
	}
}

// WithTrace enables recording of every executed pass. See Adapter.Trace.
func WithTrace() Option {
	return func(a *Adapter) {
		a.tracing = true
	}
}

// WithWorkers sets the number of goroutines executing workgroups and
// raster rows. Zero or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		a.workers = n
	}
}

// Adapter is a gpucore.GPUAdapter that executes Go kernels on the host.
//
// Shader modules are kept as source; pipelines resolve their entry points
// to Go kernels registered under the same names. Buffers are byte slices.
// Submit executes command buffers synchronously, so Submit returning means
// the work is complete and WaitIdle has nothing to wait for.
//
// Adapter is safe for concurrent use.
type Adapter struct {
	mu sync.Mutex

	// execMu serializes queue operations (WriteBuffer, Submit, ReadBuffer).
	execMu sync.Mutex

	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]*buffer
	modules          map[gpucore.ShaderModuleID]*shaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]*bindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]*pipelineLayout
	computePipelines map[gpucore.ComputePipelineID]*computePipeline
	renderPipelines  map[gpucore.RenderPipelineID]*renderPipeline
	bindGroups       map[gpucore.BindGroupID]*bindGroup
	commandBuffers   map[gpucore.CommandBufferID]*commandBuffer
	views            map[gpucore.TextureViewID]*Surface

	kernels  *Kernels
	validate bool
	tracing  bool
	workers  int
	pool     *parallel.WorkerPool

	trace       []PassRecord
	submissions uint64
	lost        bool
	destroyed   bool
}

// New creates a software adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		buffers:          make(map[gpucore.BufferID]*buffer),
		modules:          make(map[gpucore.ShaderModuleID]*shaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]*bindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]*pipelineLayout),
		computePipelines: make(map[gpucore.ComputePipelineID]*computePipeline),
		renderPipelines:  make(map[gpucore.RenderPipelineID]*renderPipeline),
		bindGroups:       make(map[gpucore.BindGroupID]*bindGroup),
		commandBuffers:   make(map[gpucore.CommandBufferID]*commandBuffer),
		views:            make(map[gpucore.TextureViewID]*Surface),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.pool = parallel.NewWorkerPool(a.workers)
	slogger().Debug("software: adapter created",
		"workers", a.pool.Workers(), "validate", a.validate, "trace", a.tracing)
	return a
}

// newID generates a unique resource ID. IDs start at 1 so the zero value
// stays invalid.
func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1)
}

// SetLogger sets the logger for the software backend.
// Called by life.SetLogger propagation.
func (a *Adapter) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Capabilities returns the adapter limits.
func (a *Adapter) Capabilities() gpucore.AdapterCapabilities {
	c := gpucore.DefaultCapabilities()
	c.Name = "software"
	return c
}

// SetDeviceLost makes every following Submit fail with ErrDeviceLost
// (or succeed again when lost is false).
func (a *Adapter) SetDeviceLost(lost bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lost = lost
}

// Destroy releases all resources and stops the worker pool.
// The adapter must not be used afterwards.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	clear(a.buffers)
	clear(a.modules)
	clear(a.bindGroupLayouts)
	clear(a.pipelineLayouts)
	clear(a.computePipelines)
	clear(a.renderPipelines)
	clear(a.bindGroups)
	clear(a.commandBuffers)
	clear(a.views)
	a.mu.Unlock()

	a.pool.Close()
	slogger().Debug("software: adapter destroyed")
}

// CreateShaderModule stores WGSL source. With WithValidation the source is
// compiled by naga first.
func (a *Adapter) CreateShaderModule(desc *gpucore.ShaderModuleDesc) (gpucore.ShaderModuleID, error) {
	if desc == nil || desc.Source == "" {
		return gpucore.InvalidID, fmt.Errorf("%w: empty shader source", gpucore.ErrInvalidDescriptor)
	}
	if a.validate {
		if _, err := naga.Compile(desc.Source); err != nil {
			return gpucore.InvalidID, fmt.Errorf("software: shader %q: %w", desc.Label, err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return gpucore.InvalidID, ErrAdapterDestroyed
	}
	id := gpucore.ShaderModuleID(a.newID())
	a.modules[id] = &shaderModule{label: desc.Label, source: desc.Source}
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.modules, id)
}

// CreateBuffer allocates a zero-filled buffer.
func (a *Adapter) CreateBuffer(label string, size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer size %d", gpucore.ErrInvalidDescriptor, size)
	}
	if uint64(size) > a.Capabilities().MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q needs %d bytes", gpucore.ErrOutOfMemory, label, size)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return gpucore.InvalidID, ErrAdapterDestroyed
	}
	id := gpucore.BufferID(a.newID())
	a.buffers[id] = &buffer{label: label, data: make([]byte, size), usage: usage}
	slogger().Debug("software: buffer created", "label", label, "size", size, "id", uint64(id))
	return id, nil
}

// DestroyBuffer releases a buffer.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, id)
}

func (a *Adapter) lookupBuffer(id gpucore.BufferID) (*buffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpucore.ErrNotFound, id)
	}
	return b, nil
}

// WriteBuffer copies data into a buffer. The buffer needs CopyDst usage.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	b, err := a.lookupBuffer(id)
	if err != nil {
		return err
	}
	if b.usage&gpucore.BufferUsageCopyDst == 0 {
		return fmt.Errorf("%w: write to %q without CopyDst", ErrBufferUsage, b.label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write of %d bytes at %d into %q (%d bytes)",
			ErrOutOfBounds, len(data), offset, b.label, len(b.data))
	}

	a.execMu.Lock()
	defer a.execMu.Unlock()
	copy(b.data[offset:], data)
	return nil
}

// ReadBuffer copies bytes out of a buffer. The buffer needs CopySrc or
// MapRead usage.
func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	b, err := a.lookupBuffer(id)
	if err != nil {
		return nil, err
	}
	if b.usage&(gpucore.BufferUsageCopySrc|gpucore.BufferUsageMapRead) == 0 {
		return nil, fmt.Errorf("%w: read from %q without CopySrc", ErrBufferUsage, b.label)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: read of %d bytes at %d from %q (%d bytes)",
			ErrOutOfBounds, size, offset, b.label, len(b.data))
	}

	a.execMu.Lock()
	defer a.execMu.Unlock()
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out, nil
}

// CreateBindGroupLayout creates a bind group layout.
func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, gpucore.ErrInvalidDescriptor
	}
	entries := make(map[uint32]gpucore.BindGroupLayoutEntry, len(desc.Entries))
	for _, e := range desc.Entries {
		if _, dup := entries[e.Binding]; dup {
			return gpucore.InvalidID, fmt.Errorf("%w: duplicate binding %d in %q",
				gpucore.ErrInvalidDescriptor, e.Binding, desc.Label)
		}
		if e.Type.Writable() && e.Visibility&gpucore.ShaderStageVertex != 0 {
			return gpucore.InvalidID, fmt.Errorf("%w: writable storage binding %d visible to vertex stage",
				gpucore.ErrInvalidDescriptor, e.Binding)
		}
		entries[e.Binding] = e
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupLayoutID(a.newID())
	a.bindGroupLayouts[id] = &bindGroupLayout{label: desc.Label, entries: entries}
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindGroupLayouts, id)
}

// CreatePipelineLayout creates a pipeline layout.
func (a *Adapter) CreatePipelineLayout(label string, layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	groups := make([]*bindGroupLayout, len(layouts))
	for i, lid := range layouts {
		l, ok := a.bindGroupLayouts[lid]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrNotFound, lid)
		}
		groups[i] = l
	}
	id := gpucore.PipelineLayoutID(a.newID())
	a.pipelineLayouts[id] = &pipelineLayout{label: label, groups: groups}
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipelineLayouts, id)
}

// CreateComputePipeline resolves the entry point to a registered compute
// kernel.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, gpucore.ErrInvalidDescriptor
	}
	kernel, err := a.computeKernel(desc.EntryPoint)
	if err != nil {
		return gpucore.InvalidID, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	layout, ok := a.pipelineLayouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrNotFound, desc.Layout)
	}
	if _, ok := a.modules[desc.ShaderModule]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrNotFound, desc.ShaderModule)
	}
	id := gpucore.ComputePipelineID(a.newID())
	a.computePipelines[id] = &computePipeline{
		label:  desc.Label,
		layout: layout,
		entry:  desc.EntryPoint,
		kernel: kernel,
	}
	return id, nil
}

// ComputeWorkgroupSize reports the workgroup size of the kernel behind a
// compute pipeline. Zero components are reported as 1.
func (a *Adapter) ComputeWorkgroupSize(id gpucore.ComputePipelineID) ([3]uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.computePipelines[id]
	if !ok {
		return [3]uint32{}, false
	}
	return workgroupDims(p.kernel.WorkgroupSize), true
}

// DestroyComputePipeline releases a compute pipeline.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.computePipelines, id)
}

// CreateRenderPipeline resolves both entry points to registered kernels.
func (a *Adapter) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, gpucore.ErrInvalidDescriptor
	}
	vs, err := a.vertexKernel(desc.VertexEntryPoint)
	if err != nil {
		return gpucore.InvalidID, err
	}
	fs, err := a.fragmentKernel(desc.FragmentEntryPoint)
	if err != nil {
		return gpucore.InvalidID, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	layout, ok := a.pipelineLayouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpucore.ErrNotFound, desc.Layout)
	}
	if _, ok := a.modules[desc.ShaderModule]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: shader module %d", gpucore.ErrNotFound, desc.ShaderModule)
	}
	id := gpucore.RenderPipelineID(a.newID())
	a.renderPipelines[id] = &renderPipeline{
		label:    desc.Label,
		layout:   layout,
		vertex:   vs,
		fragment: fs,
		format:   desc.TargetFormat,
	}
	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (a *Adapter) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.renderPipelines, id)
}

// CreateBindGroup validates entries against the layout and resolves buffers.
func (a *Adapter) CreateBindGroup(desc *gpucore.BindGroupDesc) (gpucore.BindGroupID, error) {
	if desc == nil {
		return gpucore.InvalidID, gpucore.ErrInvalidDescriptor
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	layout, ok := a.bindGroupLayouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", gpucore.ErrNotFound, desc.Layout)
	}
	if len(desc.Entries) != len(layout.entries) {
		return gpucore.InvalidID, fmt.Errorf("%w: %q has %d entries, layout %q wants %d",
			ErrLayoutMismatch, desc.Label, len(desc.Entries), layout.label, len(layout.entries))
	}

	bg := &bindGroup{label: desc.Label, layout: layout}
	for _, e := range desc.Entries {
		le, ok := layout.entries[e.Binding]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d not in layout %q",
				ErrLayoutMismatch, e.Binding, layout.label)
		}
		buf, ok := a.buffers[e.Buffer]
		if !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: buffer %d", gpucore.ErrNotFound, e.Buffer)
		}
		if err := checkBindingUsage(le.Type, buf); err != nil {
			return gpucore.InvalidID, err
		}
		size := e.Size
		if size == 0 {
			if e.Offset > uint64(len(buf.data)) {
				return gpucore.InvalidID, fmt.Errorf("%w: binding %d offset %d", ErrOutOfBounds, e.Binding, e.Offset)
			}
			size = uint64(len(buf.data)) - e.Offset
		}
		if e.Offset+size > uint64(len(buf.data)) {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d range [%d, %d) of %q",
				ErrOutOfBounds, e.Binding, e.Offset, e.Offset+size, buf.label)
		}
		if size < le.MinBindingSize {
			return gpucore.InvalidID, fmt.Errorf("%w: binding %d is %d bytes, layout needs %d",
				ErrLayoutMismatch, e.Binding, size, le.MinBindingSize)
		}
		bg.entries = append(bg.entries, bindGroupEntry{
			binding: e.Binding,
			id:      e.Buffer,
			buf:     buf,
			offset:  e.Offset,
			size:    size,
			typ:     le.Type,
		})
		bg.maxBinding = max(bg.maxBinding, e.Binding)
	}
	if err := checkAliasing(bg.entries); err != nil {
		return gpucore.InvalidID, fmt.Errorf("%q: %w", desc.Label, err)
	}

	id := gpucore.BindGroupID(a.newID())
	a.bindGroups[id] = bg
	return id, nil
}

func checkBindingUsage(t gpucore.BindingType, buf *buffer) error {
	switch t {
	case gpucore.BindingTypeUniformBuffer:
		if buf.usage&gpucore.BufferUsageUniform == 0 {
			return fmt.Errorf("%w: %q bound as uniform without Uniform usage", ErrBufferUsage, buf.label)
		}
	case gpucore.BindingTypeStorageBuffer, gpucore.BindingTypeReadOnlyStorageBuffer:
		if buf.usage&gpucore.BufferUsageStorage == 0 {
			return fmt.Errorf("%w: %q bound as storage without Storage usage", ErrBufferUsage, buf.label)
		}
	default:
		return fmt.Errorf("%w: binding type %d", gpucore.ErrInvalidDescriptor, t)
	}
	return nil
}

// checkAliasing rejects a group that binds overlapping ranges of one
// buffer both writable and read-only.
func checkAliasing(entries []bindGroupEntry) error {
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			x, y := entries[i], entries[j]
			if x.buf != y.buf || x.typ.Writable() == y.typ.Writable() {
				continue
			}
			if x.offset < y.offset+y.size && y.offset < x.offset+x.size {
				return fmt.Errorf("%w: bindings %d and %d share buffer %d",
					ErrBufferAliasing, x.binding, y.binding, x.id)
			}
		}
	}
	return nil
}

// DestroyBindGroup releases a bind group.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindGroups, id)
}

// BeginEncoding starts recording a command buffer.
func (a *Adapter) BeginEncoding(label string) (gpucore.CommandEncoder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return nil, ErrAdapterDestroyed
	}
	return &commandEncoder{a: a, label: label}, nil
}

// Submit executes command buffers in order on the calling goroutine.
// Execution stops at the first failing command buffer; the remaining
// buffers are released without running.
func (a *Adapter) Submit(buffers ...gpucore.CommandBufferID) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return ErrAdapterDestroyed
	}
	if a.lost {
		for _, id := range buffers {
			delete(a.commandBuffers, id)
		}
		a.mu.Unlock()
		return ErrDeviceLost
	}
	cbs := make([]*commandBuffer, 0, len(buffers))
	var missing error
	for _, id := range buffers {
		cb, ok := a.commandBuffers[id]
		if !ok && missing == nil {
			missing = fmt.Errorf("%w: command buffer %d", gpucore.ErrNotFound, id)
		}
		delete(a.commandBuffers, id)
		cbs = append(cbs, cb)
	}
	if missing != nil {
		a.mu.Unlock()
		return missing
	}
	a.submissions++
	submission := a.submissions
	a.mu.Unlock()

	a.execMu.Lock()
	defer a.execMu.Unlock()
	for _, cb := range cbs {
		if err := a.execute(submission, cb); err != nil {
			return fmt.Errorf("software: submit %q: %w", cb.label, err)
		}
	}
	return nil
}

// WaitIdle returns immediately; Submit is synchronous.
func (a *Adapter) WaitIdle() error {
	a.execMu.Lock()
	defer a.execMu.Unlock()
	return nil
}

// Submissions returns the number of accepted Submit calls.
func (a *Adapter) Submissions() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submissions
}

// ResourceCount returns the number of live resources of all kinds.
// Tests use it to check that teardown releases everything.
func (a *Adapter) ResourceCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers) + len(a.modules) + len(a.bindGroupLayouts) +
		len(a.pipelineLayouts) + len(a.computePipelines) + len(a.renderPipelines) +
		len(a.bindGroups) + len(a.commandBuffers)
}

// Compile-time interface check.
var _ gpucore.GPUAdapter = (*Adapter)(nil)
