package software

import (
	"image"

	"github.com/chewxy/math32"

	"github.com/gogpu/life/gpucore"
)

// screenVertex is a vertex after the perspective divide and viewport
// transform. Varyings are stored pre-divided by clip w for
// perspective-correct interpolation.
type screenVertex struct {
	x, y, z float32
	invW    float32
	vary    [MaxVaryings]float32
}

// triangle is a set-up triangle with positive area and a pixel bounding
// box clamped to the target.
type triangle struct {
	v                      [3]screenVertex
	area                   float32
	minX, maxX, minY, maxY int
}

// project maps a clip-space vertex to framebuffer coordinates with the
// origin at the top-left corner. Vertices behind the eye (w <= 0) are not
// clipped; callers must keep geometry in front of the camera.
func project(v VertexOutput, width, height int) screenVertex {
	w := v.Position[3]
	if w == 0 {
		w = 1
	}
	inv := 1 / w
	sv := screenVertex{
		x:    (v.Position[0]*inv + 1) * 0.5 * float32(width),
		y:    (1 - v.Position[1]*inv) * 0.5 * float32(height),
		z:    v.Position[2] * inv,
		invW: inv,
	}
	for i := range sv.vary {
		sv.vary[i] = v.Varyings[i] * inv
	}
	return sv
}

func edgeFn(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// setupTriangle projects three vertices and computes their coverage box.
// Degenerate and fully off-screen triangles report false. Winding is
// normalized because the pipeline does not cull.
func setupTriangle(a, b, c VertexOutput, width, height int) (triangle, bool) {
	t := triangle{v: [3]screenVertex{
		project(a, width, height),
		project(b, width, height),
		project(c, width, height),
	}}

	t.area = edgeFn(t.v[0], t.v[1], t.v[2].x, t.v[2].y)
	if t.area == 0 || math32.IsNaN(t.area) || math32.IsInf(t.area, 0) {
		return t, false
	}
	if t.area < 0 {
		t.v[1], t.v[2] = t.v[2], t.v[1]
		t.area = -t.area
	}

	x0 := math32.Min(t.v[0].x, math32.Min(t.v[1].x, t.v[2].x))
	x1 := math32.Max(t.v[0].x, math32.Max(t.v[1].x, t.v[2].x))
	y0 := math32.Min(t.v[0].y, math32.Min(t.v[1].y, t.v[2].y))
	y1 := math32.Max(t.v[0].y, math32.Max(t.v[1].y, t.v[2].y))

	t.minX = max(0, int(math32.Floor(x0)))
	t.maxX = min(width-1, int(math32.Ceil(x1)))
	t.minY = max(0, int(math32.Floor(y0)))
	t.maxY = min(height-1, int(math32.Ceil(y1)))
	if t.minX > t.maxX || t.minY > t.maxY {
		return t, false
	}
	return t, true
}

// scanRow shades every pixel of row y whose center lies inside the
// triangle or on its edges.
func (t *triangle) scanRow(y int, shade func(x int, in FragmentInput)) {
	v0, v1, v2 := t.v[0], t.v[1], t.v[2]
	py := float32(y) + 0.5
	for x := t.minX; x <= t.maxX; x++ {
		px := float32(x) + 0.5
		w0 := edgeFn(v1, v2, px, py)
		w1 := edgeFn(v2, v0, px, py)
		w2 := edgeFn(v0, v1, px, py)
		if w0 < 0 || w1 < 0 || w2 < 0 {
			continue
		}
		l0, l1, l2 := w0/t.area, w1/t.area, w2/t.area

		invW := l0*v0.invW + l1*v1.invW + l2*v2.invW
		in := FragmentInput{
			Position: [4]float32{px, py, l0*v0.z + l1*v1.z + l2*v2.z, invW},
		}
		for k := range in.Varyings {
			in.Varyings[k] = (l0*v0.vary[k] + l1*v1.vary[k] + l2*v2.vary[k]) / invW
		}
		shade(x, in)
	}
}

func unorm8(c float32) uint8 {
	if math32.IsNaN(c) {
		return 0
	}
	c = math32.Max(0, math32.Min(1, c))
	return uint8(c*255 + 0.5)
}

func putPixel(img *image.RGBA, x, y int, c [4]float32) {
	i := img.PixOffset(x, y)
	img.Pix[i+0] = unorm8(c[0])
	img.Pix[i+1] = unorm8(c[1])
	img.Pix[i+2] = unorm8(c[2])
	img.Pix[i+3] = unorm8(c[3])
}

func fill(img *image.RGBA, c gpucore.Color) {
	px := [4]uint8{
		unorm8(float32(c.R)),
		unorm8(float32(c.G)),
		unorm8(float32(c.B)),
		unorm8(float32(c.A)),
	}
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px[:])
	}
}
