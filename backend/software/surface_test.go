package software

import (
	"errors"
	"testing"

	"github.com/gogpu/life/gpucore"
)

func quadVertex(vi uint32, _ *Bindings) VertexOutput {
	var u, v float32
	if vi == 1 || vi == 4 || vi == 5 {
		u = 1
	}
	if vi == 2 || vi == 3 || vi == 5 {
		v = 1
	}
	return VertexOutput{
		Position: [4]float32{u*2 - 1, 1 - v*2, 0, 1},
		Varyings: [MaxVaryings]float32{u, v},
	}
}

func uvFragment(in FragmentInput, _ *Bindings) [4]float32 {
	return [4]float32{in.Varyings[0], in.Varyings[1], 0, 1}
}

type quadSetup struct {
	pipeline gpucore.RenderPipelineID
	group    gpucore.BindGroupID
}

func newQuadSetup(t *testing.T, a *Adapter) quadSetup {
	t.Helper()
	layout, err := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label: "quad",
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpucore.ShaderStageFragment, Type: gpucore.BindingTypeUniformBuffer},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	pl, _ := a.CreatePipelineLayout("quad", []gpucore.BindGroupLayoutID{layout})
	mod, _ := a.CreateShaderModule(&gpucore.ShaderModuleDesc{Source: testShader})
	pipeline, err := a.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:              "quad",
		Layout:             pl,
		ShaderModule:       mod,
		VertexEntryPoint:   "quadVertex",
		FragmentEntryPoint: "uvFragment",
		TargetFormat:       gpucore.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline: %v", err)
	}
	ubo, _ := a.CreateBuffer("ubo", 16, gpucore.BufferUsageUniform)
	group, err := a.CreateBindGroup(&gpucore.BindGroupDesc{
		Label:   "quad",
		Layout:  layout,
		Entries: []gpucore.BindGroupEntry{{Binding: 0, Buffer: ubo}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	return quadSetup{pipeline: pipeline, group: group}
}

func drawQuad(t *testing.T, a *Adapter, q quadSetup, view gpucore.TextureViewID, vertices uint32) error {
	t.Helper()
	enc, err := a.BeginEncoding("quad")
	if err != nil {
		t.Fatalf("BeginEncoding: %v", err)
	}
	rp := enc.BeginRenderPass(&gpucore.RenderPassDesc{
		Label:      "quad",
		Target:     view,
		ClearColor: gpucore.Color{R: 0, G: 0, B: 1, A: 1},
	})
	rp.SetPipeline(q.pipeline)
	rp.SetBindGroup(0, q.group)
	rp.Draw(vertices, 1, 0, 0)
	rp.End()
	cb, err := enc.Finish()
	if err != nil {
		return err
	}
	return a.Submit(cb)
}

func newQuadAdapter(t *testing.T) *Adapter {
	t.Helper()
	k := NewKernels()
	k.AddVertex("quadVertex", quadVertex)
	k.AddFragment("uvFragment", uvFragment)
	return newTestAdapter(t, k)
}

func TestFullScreenQuadCoversEveryPixel(t *testing.T) {
	a := newQuadAdapter(t)
	q := newQuadSetup(t, a)

	for _, size := range [][2]int{{1, 1}, {4, 4}, {7, 3}, {32, 16}} {
		s, err := NewSurface(a, size[0], size[1])
		if err != nil {
			t.Fatalf("NewSurface: %v", err)
		}
		view, err := s.AcquireTexture()
		if err != nil {
			t.Fatalf("AcquireTexture: %v", err)
		}
		if err := drawQuad(t, a, q, view, 6); err != nil {
			t.Fatalf("draw %v: %v", size, err)
		}
		if err := s.Present(); err != nil {
			t.Fatalf("Present: %v", err)
		}

		img := s.Image()
		for y := range size[1] {
			for x := range size[0] {
				c := img.RGBAAt(x, y)
				if c.B != 0 {
					t.Fatalf("%v: pixel (%d,%d) not covered: %v", size, x, y, c)
				}
				wantR := uint8((float32(x)+0.5)/float32(size[0])*255 + 0.5)
				wantG := uint8((float32(y)+0.5)/float32(size[1])*255 + 0.5)
				if absDiff(c.R, wantR) > 1 || absDiff(c.G, wantG) > 1 {
					t.Fatalf("%v: pixel (%d,%d) = (%d,%d), want uv (%d,%d)",
						size, x, y, c.R, c.G, wantR, wantG)
				}
			}
		}
		s.Destroy()
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestRenderPassClearsUncoveredPixels(t *testing.T) {
	a := newQuadAdapter(t)
	q := newQuadSetup(t, a)
	s, _ := NewSurface(a, 3, 3)
	view, _ := s.AcquireTexture()

	// One triangle only covers the upper-left half; the rest keeps the clear color.
	if err := drawQuad(t, a, q, view, 3); err != nil {
		t.Fatalf("draw: %v", err)
	}
	img := s.Image()
	if c := img.RGBAAt(2, 2); c.B != 255 {
		t.Errorf("bottom-right pixel = %v, want clear color", c)
	}
	if c := img.RGBAAt(0, 0); c.B != 0 {
		t.Errorf("top-left pixel = %v, want shaded", c)
	}

	trace := a.Trace()
	last := trace[len(trace)-1]
	if last.Kind != PassRender || last.Target != view || last.Vertices != 3 {
		t.Errorf("render record = %+v", last)
	}
}

func TestFormatMismatch(t *testing.T) {
	a := newQuadAdapter(t)
	layout, _ := a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{Label: "empty"})
	pl, _ := a.CreatePipelineLayout("empty", []gpucore.BindGroupLayoutID{layout})
	mod, _ := a.CreateShaderModule(&gpucore.ShaderModuleDesc{Source: testShader})
	pipeline, err := a.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Layout:             pl,
		ShaderModule:       mod,
		VertexEntryPoint:   "quadVertex",
		FragmentEntryPoint: "uvFragment",
		TargetFormat:       gpucore.TextureFormatBGRA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateRenderPipeline: %v", err)
	}
	s, _ := NewSurface(a, 2, 2)
	view, _ := s.AcquireTexture()

	enc, _ := a.BeginEncoding("mismatch")
	rp := enc.BeginRenderPass(&gpucore.RenderPassDesc{Target: view})
	rp.SetPipeline(pipeline)
	rp.Draw(6, 1, 0, 0)
	rp.End()
	if _, err := enc.Finish(); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Finish error = %v, want ErrFormatMismatch", err)
	}
}

func TestSurfaceLostAndResize(t *testing.T) {
	a := newTestAdapter(t, nil)
	s, err := NewSurface(a, 8, 8)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}

	s.SetLost(true)
	if _, err := s.AcquireTexture(); !errors.Is(err, gpucore.ErrSurfaceLost) {
		t.Errorf("AcquireTexture on lost surface error = %v, want ErrSurfaceLost", err)
	}
	if err := s.Present(); err == nil {
		t.Error("Present without acquire should fail")
	}
	s.SetLost(false)

	s.Resize(16, 4)
	if _, err := s.AcquireTexture(); !errors.Is(err, gpucore.ErrSurfaceOutdated) {
		t.Errorf("AcquireTexture after Resize error = %v, want ErrSurfaceOutdated", err)
	}
	if w, h := s.Size(); w != 16 || h != 4 {
		t.Errorf("Size() = %dx%d, want 16x4", w, h)
	}
	view, err := s.AcquireTexture()
	if err != nil {
		t.Fatalf("AcquireTexture after reconfigure: %v", err)
	}
	if view != s.View() {
		t.Errorf("AcquireTexture() = %d, want %d", view, s.View())
	}
	if err := s.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if s.Presented() != 1 {
		t.Errorf("Presented() = %d, want 1", s.Presented())
	}
}

func TestNewSurfaceInvalidSize(t *testing.T) {
	a := newTestAdapter(t, nil)
	if _, err := NewSurface(a, 0, 4); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("NewSurface(0, 4) error = %v, want ErrInvalidDescriptor", err)
	}
}
