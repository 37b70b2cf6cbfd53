// Package software implements gpucore.GPUAdapter by executing Go kernels
// on the host.
//
// The adapter behaves like a WebGPU device as far as the simulation can
// observe: buffers have usages, bind groups are validated against their
// layouts, passes run in recording order and writes made by one pass are
// visible to the next. What it does not do is run WGSL. Shader modules are
// kept as source, and every pipeline entry point is resolved to a Go kernel
// registered under the same name:
//
//	software.RegisterCompute("computeMain", software.ComputeKernel{
//		WorkgroupSize: [3]uint32{8, 8, 1},
//		Main: func(inv software.Invocation, b *software.Bindings) {
//			x := inv.GlobalID[0]
//			b.Store32(0, 2, x, b.Load32(0, 1, x)+1)
//		},
//	})
//
// Packages that ship a shader register its Go mirror from init, so any
// adapter can run it. Tests can override entry points per adapter with
// WithKernels.
//
// # Dispatch
//
// A dispatch runs every invocation of every workgroup, including the
// invocations past the data edge, so kernels must bounds-check exactly as
// their WGSL does. Workgroups are spread over a worker pool.
//
// # Rasterization
//
// Draws assemble triangle lists from the vertex kernel outputs and shade
// every pixel whose center lies inside a triangle, with perspective-correct
// varyings. There is no depth test, blending or clipping. Pixels on an edge
// shared by two triangles are shaded by both.
//
// # Inspection
//
// WithTrace records the buffers each pass actually read and wrote, which
// makes buffer-role invariants testable. Surface.Image returns the
// rendered frame.
package software
