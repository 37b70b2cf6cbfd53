package gpucore

import "errors"

// Common adapter errors.
var (
	// ErrNotFound is returned when an ID does not refer to a live resource.
	ErrNotFound = errors.New("gpucore: resource not found")

	// ErrInvalidDescriptor is returned for nil or inconsistent descriptors.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")

	// ErrOutOfMemory is returned when the device cannot allocate a resource.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")

	// ErrEncoderFinished is returned when commands are recorded after Finish.
	ErrEncoderFinished = errors.New("gpucore: command encoder already finished")

	// ErrSurfaceLost is returned by Surface.AcquireTexture when the surface
	// has no presentable image (window minimized, closed, or not configured).
	ErrSurfaceLost = errors.New("gpucore: surface lost")

	// ErrSurfaceOutdated is returned when the surface must be reconfigured,
	// typically after a resize.
	ErrSurfaceOutdated = errors.New("gpucore: surface outdated")
)

// GPUAdapter abstracts over different GPU backend implementations.
//
// This interface is the core abstraction that allows the simulation to
// run unchanged on the gogpu/wgpu HAL or on the host-executing software
// backend. Implementations must be thread-safe for concurrent use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
type GPUAdapter interface {
	// === Capabilities ===

	// Capabilities returns the adapter limits.
	Capabilities() AdapterCapabilities

	// === Shader Compilation ===

	// CreateShaderModule compiles WGSL source into a shader module.
	// Returns an error if compilation fails.
	CreateShaderModule(desc *ShaderModuleDesc) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Buffer Management ===

	// CreateBuffer creates a zero-initialized GPU buffer.
	//
	// Parameters:
	//   - label: optional debug label
	//   - size: buffer size in bytes
	//   - usage: buffer usage flags (bitmask of BufferUsage*)
	//
	// Returns the buffer ID or an error if allocation fails.
	CreateBuffer(label string, size int, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer schedules a write of data into a buffer. The write is
	// ordered before any command buffer submitted afterwards.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads data from a buffer.
	// This causes a GPU-CPU synchronization stall.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// === Pipeline Management ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDesc) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts,
	// one per @group index.
	CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDesc) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// CreateBindGroup binds actual resources to a bind group layout.
	CreateBindGroup(desc *BindGroupDesc) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// === Command Recording and Execution ===

	// BeginEncoding starts recording a new command buffer.
	BeginEncoding(label string) (CommandEncoder, error)

	// Submit submits finished command buffers to the queue in order.
	// Submit does not wait for the GPU; the command buffers are consumed.
	Submit(buffers ...CommandBufferID) error

	// WaitIdle waits for all submitted work to complete.
	WaitIdle() error
}

// CommandEncoder records passes into a single command buffer.
//
// Recording errors (unknown IDs, passes left open) are deferred and
// reported by Finish, matching WebGPU validation semantics.
type CommandEncoder interface {
	// BeginComputePass begins a compute pass.
	BeginComputePass(label string) ComputePassEncoder

	// BeginRenderPass begins a render pass.
	BeginRenderPass(desc *RenderPassDesc) RenderPassEncoder

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBufferID, error)

	// Discard abandons recording and releases the encoder.
	Discard()
}

// ComputePassEncoder records compute commands.
//
// Usage:
//  1. Obtain encoder from CommandEncoder.BeginComputePass()
//  2. Set pipeline and bind groups
//  3. Dispatch compute workgroups
//  4. Call End() to finish recording
//
// The encoder is single-use and cannot be reused after End().
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetBindGroup sets a bind group at the specified index.
	SetBindGroup(index uint32, group BindGroupID)

	// Dispatch dispatches compute workgroups.
	// x, y, z are the number of workgroups in each dimension.
	Dispatch(x, y, z uint32)

	// End finishes the compute pass.
	End()
}

// RenderPassEncoder records draw commands.
type RenderPassEncoder interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(pipeline RenderPipelineID)

	// SetBindGroup sets a bind group at the specified index.
	SetBindGroup(index uint32, group BindGroupID)

	// Draw draws non-indexed primitives.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// End finishes the render pass.
	End()
}

// Surface is a presentable target that hands out one texture view per frame.
type Surface interface {
	// AcquireTexture returns the view to render the current frame into.
	// Returns ErrSurfaceLost or ErrSurfaceOutdated when no image is available.
	AcquireTexture() (TextureViewID, error)

	// Present hands the acquired image back for display.
	Present() error

	// Size returns the surface size in pixels.
	Size() (width, height uint32)

	// Format returns the texture format of acquired views.
	Format() TextureFormat
}

// AdapterCapabilities describes GPU adapter capabilities.
type AdapterCapabilities struct {
	// Name identifies the adapter (device name or backend name).
	Name string

	// SupportsCompute indicates compute shader support.
	SupportsCompute bool

	// MaxWorkgroupSizeX is the maximum workgroup size in X dimension.
	MaxWorkgroupSizeX uint32

	// MaxWorkgroupSizeY is the maximum workgroup size in Y dimension.
	MaxWorkgroupSizeY uint32

	// MaxWorkgroupInvocations is the maximum total invocations per workgroup.
	MaxWorkgroupInvocations uint32

	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64

	// MaxStorageBufferBindingSize is the maximum storage buffer binding size.
	MaxStorageBufferBindingSize uint64

	// MaxComputeWorkgroupsPerDimension is the maximum workgroups per dispatch dimension.
	MaxComputeWorkgroupsPerDimension uint32
}

// WorkgroupReporter is implemented by adapters whose compute pipelines do
// not run the @workgroup_size declared in the WGSL source, such as adapters
// that execute host kernels.
type WorkgroupReporter interface {
	// ComputeWorkgroupSize returns the workgroup size the pipeline runs
	// with. ok is false for unknown pipelines.
	ComputeWorkgroupSize(id ComputePipelineID) (size [3]uint32, ok bool)
}

// DefaultCapabilities returns the WebGPU baseline limits.
func DefaultCapabilities() AdapterCapabilities {
	return AdapterCapabilities{
		SupportsCompute:                  true,
		MaxWorkgroupSizeX:                256,
		MaxWorkgroupSizeY:                256,
		MaxWorkgroupInvocations:          256,
		MaxBufferSize:                    256 << 20,
		MaxStorageBufferBindingSize:      128 << 20,
		MaxComputeWorkgroupsPerDimension: 65535,
	}
}

// WorkgroupCount returns the number of workgroups of the given size needed
// to cover n invocations along one dimension.
func WorkgroupCount(n, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (n + size - 1) / size
}
