// Package wgpu implements gpucore.GPUAdapter on top of the gogpu/wgpu HAL.
//
// The adapter maps gpucore resource IDs to hal objects, compiles WGSL to
// SPIR-V with naga, and submits command buffers through one fence per
// adapter. Each Submit signals the next fence value; command buffers are
// freed once their value has retired, so Submit never waits for the GPU
// unless more than MaxFramesInFlight submissions are pending.
//
// # Construction
//
// There are three ways to obtain an Adapter:
//
//	a, err := wgpu.New(device, queue)            // existing hal.Device and hal.Queue
//	a, err := wgpu.NewFromProvider(provider)     // host such as gogpu.App
//	a, err := wgpu.NewStandalone()               // own Vulkan instance and device
//
// NewFromProvider accepts any value exposing HalDevice() any and
// HalQueue() any. When it also implements gpucontext.DeviceProvider, its
// SurfaceFormat becomes the default format of FrameSurfaces.
//
// # Surfaces
//
// FrameSurface presents into a swapchain image owned by the host: call
// SetView with the frame's texture view before advancing the simulation.
// OffscreenSurface renders into an adapter-owned texture and can read the
// image back, for headless runs and snapshots.
//
// # Logging
//
// The package logs through the logger installed with life.SetLogger.
package wgpu
