package life

import (
	"encoding/binary"
	"image/color"
	"math"

	"github.com/gogpu/life/gpucore"
)

// ParamsSize is the size of the uniform block in bytes.
const ParamsSize = 48

// Params is the uniform block shared by every kernel:
//
//	struct Params {
//	    width: u32, height: u32, _pad0: u32, _pad1: u32,
//	    alive: vec4<f32>,
//	    dead: vec4<f32>,
//	}
type Params struct {
	Width  uint32
	Height uint32
	Alive  [4]float32
	Dead   [4]float32
}

// Bytes encodes p in WGSL uniform layout.
func (p Params) Bytes() []byte {
	b := make([]byte, ParamsSize)
	binary.LittleEndian.PutUint32(b[0:], p.Width)
	binary.LittleEndian.PutUint32(b[4:], p.Height)
	for i, v := range p.Alive {
		binary.LittleEndian.PutUint32(b[16+4*i:], math.Float32bits(v))
	}
	for i, v := range p.Dead {
		binary.LittleEndian.PutUint32(b[32+4*i:], math.Float32bits(v))
	}
	return b
}

// Default colors.
var (
	DefaultAliveColor color.Color = color.NRGBA{R: 140, G: 242, B: 140, A: 255}
	DefaultDeadColor  color.Color = color.NRGBA{R: 10, G: 10, B: 16, A: 255}
)

// rgba converts c to non-premultiplied float components in [0, 1].
func rgba(c color.Color) [4]float32 {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return [4]float32{
		float32(n.R) / 0xffff,
		float32(n.G) / 0xffff,
		float32(n.B) / 0xffff,
		float32(n.A) / 0xffff,
	}
}

func clearColor(c [4]float32) gpucore.Color {
	return gpucore.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}
