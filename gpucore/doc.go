// Package gpucore provides shared GPU abstractions for the life simulation.
//
// This package defines the [GPUAdapter] interface, which abstracts over
// different GPU backend implementations, allowing the same simulation code
// to work with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL), see backend/wgpu
//   - the host-executing software backend, see backend/software
//
// # Architecture
//
//	               +-----------------+
//	               |      life       |
//	               |  (Simulation)   |
//	               +--------+--------+
//	                        |
//	                  gpucore.GPUAdapter
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|   wgpu adapter  |          | software adapter|
//	|  (hal.Device)   |          |  (Go kernels)   |
//	+--------+--------+          +-----------------+
//	         |
//	+--------v--------+
//	|   gogpu/wgpu    |
//	|   (Pure Go)     |
//	+-----------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [BindGroupID], etc.).
// The [GPUAdapter] interface provides creation and destruction methods for
// each resource type. Adapters are responsible for tracking the mapping
// between IDs and actual GPU resources.
//
// # Command Recording
//
// Work is recorded into a [CommandEncoder] obtained from
// [GPUAdapter.BeginEncoding]. Passes recorded into one encoder execute in
// recording order, and storage buffer writes made by an earlier pass are
// visible to later passes of the same submission.
//
// # Surfaces
//
// A [Surface] hands out one texture view per frame. Acquisition failures
// ([ErrSurfaceLost], [ErrSurfaceOutdated]) are recoverable: callers skip
// presentation for that frame and try again on the next one.
package gpucore
