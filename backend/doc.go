// Package backend provides a pluggable device backend abstraction.
//
// A backend owns one device and exposes it as a [gpucore.GPUAdapter] plus
// offscreen surfaces, so the same simulation can run on a real GPU or on
// the host.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Import the backend packages you want available:
//
//	import _ "github.com/gogpu/life/backend/software"
//	import _ "github.com/gogpu/life/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get("software")
//
// InitDefault walks the priority list and returns the first backend whose
// Init succeeds, which is what headless tools want on machines without a
// GPU.
//
// # Usage with a Simulation
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	surface, _ := b.NewSurface(512, 256)
//	sim, err := life.New(b.Adapter(), surface, life.Size{Width: 512, Height: 256})
//
// # Available Backends
//
// - "wgpu": gogpu/wgpu HAL on Vulkan
// - "software": host-executing Go kernels (always available)
package backend
