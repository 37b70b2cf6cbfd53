package software

import (
	"slices"

	"github.com/gogpu/life/gpucore"
)

// PassKind distinguishes compute and render passes in a trace.
type PassKind int

const (
	// PassCompute is a compute pass.
	PassCompute PassKind = iota
	// PassRender is a render pass.
	PassRender
)

// String returns "compute" or "render".
func (k PassKind) String() string {
	if k == PassRender {
		return "render"
	}
	return "compute"
}

// PassRecord describes one executed pass.
//
// Reads and Writes list the buffers kernels actually loaded from and stored
// to, in ascending ID order. For passes with several dispatches or draws,
// Pipeline and BindGroups describe the last one.
type PassRecord struct {
	Submission uint64
	Kind       PassKind
	Label      string

	// Pipeline is the ComputePipelineID or RenderPipelineID as a uint64.
	Pipeline   uint64
	BindGroups []gpucore.BindGroupID

	Reads  []gpucore.BufferID
	Writes []gpucore.BufferID

	// Target is the color attachment of a render pass.
	Target gpucore.TextureViewID

	// Workgroups is the dispatch size of the last dispatch.
	Workgroups [3]uint32

	// Vertices is the vertex count of the last draw.
	Vertices uint32
}

// Wrote reports whether the pass stored to buffer id.
func (r PassRecord) Wrote(id gpucore.BufferID) bool {
	return slices.Contains(r.Writes, id)
}

// Read reports whether the pass loaded from buffer id.
func (r PassRecord) Read(id gpucore.BufferID) bool {
	return slices.Contains(r.Reads, id)
}

// Trace returns a copy of the recorded passes. Recording is enabled with
// WithTrace.
func (a *Adapter) Trace() []PassRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]PassRecord(nil), a.trace...)
}

// ResetTrace discards the recorded passes.
func (a *Adapter) ResetTrace() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trace = nil
}

func (a *Adapter) record(r PassRecord) {
	if !a.tracing {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trace = append(a.trace, r)
}
