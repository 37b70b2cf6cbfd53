// Package life runs Conway's Game of Life on a GPU.
//
// # Overview
//
// A [Simulation] keeps the cell grid in two device buffers and advances it
// with a compute pass while a render pass draws the newest generation to a
// surface. Each frame records both passes into one command buffer and
// submits it without waiting for completion.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/life"
//		"github.com/gogpu/life/backend/software"
//	)
//
//	adapter := software.New()
//	defer adapter.Destroy()
//	surface, _ := software.NewSurface(adapter, 1024, 512)
//
//	sim, err := life.New(adapter, surface, life.Size{Width: 512, Height: 256})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sim.Close()
//
//	for range 100 {
//		if err := sim.Advance(1.0 / 60); err != nil && !errors.Is(err, life.ErrFrameSkipped) {
//			log.Fatal(err)
//		}
//	}
//
// On a real GPU use backend/wgpu instead of backend/software; nothing else
// changes.
//
// # Double Buffering
//
// Buffer 0 receives the seed and buffer 1 starts zeroed. Four bind groups
// are built once: compute[i] reads buffer i and writes buffer 1-i, and
// render[i] reads buffer i. At step n with parity p = n&1 the compute pass
// uses compute[p] and the render pass uses render[1-p], so within a frame
// the compute pass never reads the buffer it writes and the render pass
// always shows the generation just computed. [Simulation.Roles] reports
// the buffer indices for the current step.
//
// # Edge Policy
//
// The grid is a torus: neighbors of cells on an edge wrap to the opposite
// edge. The WGSL kernel, its Go mirror used by the software backend and
// the CPU reference [NextGeneration] all follow this rule.
//
// # Pixel Mapping
//
// The render pass draws a full-screen quad. Surface pixel (px, py) on a
// W x H surface shows cell (floor((px+0.5)*width/W), floor((py+0.5)*height/H)),
// see [CellAt].
//
// # Frame Skips
//
// When the surface has no image to render into, [Simulation.Advance]
// returns an error wrapping [ErrFrameSkipped]. With [SkipRender] (the
// default) the generation is still computed; with [SkipFrame] nothing is
// submitted and the step counter is unchanged. If the surface refuses to
// present a rendered frame, Advance returns [ErrPresentFailed]; the
// generation was still computed.
//
// # Concurrency
//
// A Simulation is driven by one goroutine; its methods are not safe for
// concurrent use. Several simulations may share an adapter.
package life
