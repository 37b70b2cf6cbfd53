package software

import (
	"fmt"
	"sync"
)

// MaxVaryings is the number of float32 inter-stage values a vertex kernel
// can pass to a fragment kernel.
const MaxVaryings = 4

// Invocation carries the compute builtins of one shader invocation.
type Invocation struct {
	GlobalID    [3]uint32
	LocalID     [3]uint32
	WorkgroupID [3]uint32
}

// ComputeKernel is the Go rendition of a WGSL @compute entry point.
type ComputeKernel struct {
	// WorkgroupSize mirrors @workgroup_size. Zero components count as 1.
	WorkgroupSize [3]uint32

	// Main runs one invocation.
	Main func(inv Invocation, b *Bindings)
}

// VertexOutput is what a vertex kernel produces for one vertex.
// Position is in clip space.
type VertexOutput struct {
	Position [4]float32
	Varyings [MaxVaryings]float32
}

// FragmentInput is what a fragment kernel receives for one pixel.
// Position holds the framebuffer coordinates of the pixel center.
type FragmentInput struct {
	Position [4]float32
	Varyings [MaxVaryings]float32
}

// VertexKernel is the Go rendition of a WGSL @vertex entry point.
type VertexKernel func(vertexIndex uint32, b *Bindings) VertexOutput

// FragmentKernel is the Go rendition of a WGSL @fragment entry point
// writing a single color target.
type FragmentKernel func(in FragmentInput, b *Bindings) [4]float32

// Kernels maps entry point names to Go kernels.
// A Kernels value is safe for concurrent use.
type Kernels struct {
	mu       sync.RWMutex
	compute  map[string]ComputeKernel
	vertex   map[string]VertexKernel
	fragment map[string]FragmentKernel
}

// NewKernels returns an empty kernel set.
func NewKernels() *Kernels {
	return &Kernels{
		compute:  make(map[string]ComputeKernel),
		vertex:   make(map[string]VertexKernel),
		fragment: make(map[string]FragmentKernel),
	}
}

// AddCompute registers a compute kernel under an entry point name.
func (k *Kernels) AddCompute(entryPoint string, kernel ComputeKernel) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.compute[entryPoint] = kernel
}

// AddVertex registers a vertex kernel under an entry point name.
func (k *Kernels) AddVertex(entryPoint string, kernel VertexKernel) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.vertex[entryPoint] = kernel
}

// AddFragment registers a fragment kernel under an entry point name.
func (k *Kernels) AddFragment(entryPoint string, kernel FragmentKernel) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fragment[entryPoint] = kernel
}

func (k *Kernels) lookupCompute(name string) (ComputeKernel, bool) {
	if k == nil {
		return ComputeKernel{}, false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	c, ok := k.compute[name]
	return c, ok && c.Main != nil
}

func (k *Kernels) lookupVertex(name string) (VertexKernel, bool) {
	if k == nil {
		return nil, false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.vertex[name]
	return v, ok && v != nil
}

func (k *Kernels) lookupFragment(name string) (FragmentKernel, bool) {
	if k == nil {
		return nil, false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	f, ok := k.fragment[name]
	return f, ok && f != nil
}

// global holds kernels registered by packages that ship WGSL with a Go
// mirror. Adapter-local kernels from WithKernels take precedence.
var global = NewKernels()

// RegisterCompute registers a compute kernel for every adapter.
// This is typically called from init() in the package owning the shader.
func RegisterCompute(entryPoint string, kernel ComputeKernel) {
	global.AddCompute(entryPoint, kernel)
}

// RegisterVertex registers a vertex kernel for every adapter.
func RegisterVertex(entryPoint string, kernel VertexKernel) {
	global.AddVertex(entryPoint, kernel)
}

// RegisterFragment registers a fragment kernel for every adapter.
func RegisterFragment(entryPoint string, kernel FragmentKernel) {
	global.AddFragment(entryPoint, kernel)
}

func (a *Adapter) computeKernel(name string) (ComputeKernel, error) {
	if k, ok := a.kernels.lookupCompute(name); ok {
		return k, nil
	}
	if k, ok := global.lookupCompute(name); ok {
		return k, nil
	}
	return ComputeKernel{}, fmt.Errorf("%w: compute %q", ErrUnknownEntryPoint, name)
}

func (a *Adapter) vertexKernel(name string) (VertexKernel, error) {
	if k, ok := a.kernels.lookupVertex(name); ok {
		return k, nil
	}
	if k, ok := global.lookupVertex(name); ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: vertex %q", ErrUnknownEntryPoint, name)
}

func (a *Adapter) fragmentKernel(name string) (FragmentKernel, error) {
	if k, ok := a.kernels.lookupFragment(name); ok {
		return k, nil
	}
	if k, ok := global.lookupFragment(name); ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: fragment %q", ErrUnknownEntryPoint, name)
}

func workgroupDims(size [3]uint32) [3]uint32 {
	for i := range size {
		if size[i] == 0 {
			size[i] = 1
		}
	}
	return size
}
