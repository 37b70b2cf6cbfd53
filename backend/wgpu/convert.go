//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/life/gpucore"
)

func convertBufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gpucore.BufferUsageMapRead != 0 {
		out |= gputypes.BufferUsageMapRead
	}
	if u&gpucore.BufferUsageMapWrite != 0 {
		out |= gputypes.BufferUsageMapWrite
	}
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	return out
}

func convertShaderStage(s gpucore.ShaderStage) gputypes.ShaderStage {
	var out gputypes.ShaderStage
	if s&gpucore.ShaderStageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&gpucore.ShaderStageFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	if s&gpucore.ShaderStageCompute != 0 {
		out |= gputypes.ShaderStageCompute
	}
	return out
}

func convertBindingType(t gpucore.BindingType) (gputypes.BufferBindingType, error) {
	switch t {
	case gpucore.BindingTypeUniformBuffer:
		return gputypes.BufferBindingTypeUniform, nil
	case gpucore.BindingTypeStorageBuffer:
		return gputypes.BufferBindingTypeStorage, nil
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		return gputypes.BufferBindingTypeReadOnlyStorage, nil
	}
	return 0, fmt.Errorf("%w: binding type %d", gpucore.ErrInvalidDescriptor, t)
}

func convertBindGroupLayoutEntry(e gpucore.BindGroupLayoutEntry) (gputypes.BindGroupLayoutEntry, error) {
	typ, err := convertBindingType(e.Type)
	if err != nil {
		return gputypes.BindGroupLayoutEntry{}, err
	}
	return gputypes.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: convertShaderStage(e.Visibility),
		Buffer: &gputypes.BufferBindingLayout{
			Type:           typ,
			MinBindingSize: e.MinBindingSize,
		},
	}, nil
}

// convertTextureFormat maps the formats life renders to.
func convertTextureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// textureFormatFrom is the inverse of convertTextureFormat. Formats life
// cannot render to map to gpucore.TextureFormatUndefined.
func textureFormatFrom(f gputypes.TextureFormat) gpucore.TextureFormat {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return gpucore.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatBGRA8Unorm:
		return gpucore.TextureFormatBGRA8Unorm
	}
	return gpucore.TextureFormatUndefined
}

func convertColor(c gpucore.Color) gputypes.Color {
	return gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// spirvWords converts naga output to little-endian SPIR-V words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
