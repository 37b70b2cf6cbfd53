package life

import "github.com/gogpu/life/backend/software"

// Go mirrors of the ShaderSource entry points, so the software backend can
// run a Simulation. Keep them in step with shaders/life.wgsl.
func init() {
	software.RegisterCompute(EntryCompute, software.ComputeKernel{
		WorkgroupSize: [3]uint32{DefaultWorkgroupSize, DefaultWorkgroupSize, 1},
		Main:          computeKernel,
	})
	software.RegisterVertex(EntryVertex, vertexKernel)
	software.RegisterFragment(EntryFragment, fragmentKernel)
}

func isAliveAt(b *software.Bindings, w, x, y uint32) uint32 {
	if b.Load32(0, bindingCellsIn, y*w+x) != 0 {
		return 1
	}
	return 0
}

func computeKernel(inv software.Invocation, b *software.Bindings) {
	w := b.Load32(0, bindingParams, 0)
	h := b.Load32(0, bindingParams, 1)
	x, y := inv.GlobalID[0], inv.GlobalID[1]
	if x >= w || y >= h {
		return
	}

	xl, xr := (x+w-1)%w, (x+1)%w
	yu, yd := (y+h-1)%h, (y+1)%h

	n := isAliveAt(b, w, xl, yu) + isAliveAt(b, w, x, yu) + isAliveAt(b, w, xr, yu) +
		isAliveAt(b, w, xl, y) + isAliveAt(b, w, xr, y) +
		isAliveAt(b, w, xl, yd) + isAliveAt(b, w, x, yd) + isAliveAt(b, w, xr, yd)

	var next uint32
	if n == 3 || (n == 2 && isAliveAt(b, w, x, y) == 1) {
		next = 1
	}
	b.Store32(0, bindingCellsOut, y*w+x, next)
}

func vertexKernel(vi uint32, _ *software.Bindings) software.VertexOutput {
	var u, v float32
	if vi == 1 || vi == 4 || vi == 5 {
		u = 1
	}
	if vi == 2 || vi == 3 || vi == 5 {
		v = 1
	}
	return software.VertexOutput{
		Position: [4]float32{u*2 - 1, 1 - v*2, 0, 1},
		Varyings: [software.MaxVaryings]float32{u, v},
	}
}

func fragmentKernel(in software.FragmentInput, b *software.Bindings) [4]float32 {
	w := b.Load32(0, bindingParams, 0)
	h := b.Load32(0, bindingParams, 1)
	cx := min(toU32(in.Varyings[0]*float32(w)), w-1)
	cy := min(toU32(in.Varyings[1]*float32(h)), h-1)

	base := uint32(8) // dead: words 8..11
	if b.Load32(0, bindingCellsIn, cy*w+cx) != 0 {
		base = 4 // alive: words 4..7
	}
	return [4]float32{
		b.LoadF32(0, bindingParams, base),
		b.LoadF32(0, bindingParams, base+1),
		b.LoadF32(0, bindingParams, base+2),
		b.LoadF32(0, bindingParams, base+3),
	}
}

// toU32 converts like WGSL u32(f32): negative values clamp to zero.
func toU32(f float32) uint32 {
	if f <= 0 {
		return 0
	}
	return uint32(f)
}
