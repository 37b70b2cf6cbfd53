//go:build !nogpu

package wgpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/gpucore"
)

// FrameSurface presents into views owned by a host application, such as
// the swapchain image a gogpu window hands out each frame. The host calls
// SetView before Simulation.Advance and presents the swapchain itself.
type FrameSurface struct {
	mu       sync.Mutex
	a        *Adapter
	id       gpucore.TextureViewID
	format   gpucore.TextureFormat
	width    uint32
	height   uint32
	attached bool
	acquired bool
	frames   uint64
}

// NewFrameSurface creates a surface whose views have the given format.
// Passing gpucore.TextureFormatUndefined uses the adapter's surface format.
func NewFrameSurface(a *Adapter, format gpucore.TextureFormat) (*FrameSurface, error) {
	if format == gpucore.TextureFormatUndefined {
		format = a.SurfaceFormat()
	}
	if _, err := convertTextureFormat(format); err != nil {
		return nil, err
	}
	return &FrameSurface{a: a, id: a.registerTarget(format), format: format}, nil
}

// SetView attaches the view to render the next frame into. view must be a
// hal.TextureView; nil detaches the surface so the next acquire reports
// gpucore.ErrSurfaceLost.
func (s *FrameSurface) SetView(view any, width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view == nil {
		s.a.setTargetView(s.id, nil)
		s.attached = false
		return nil
	}
	hv, ok := view.(hal.TextureView)
	if !ok {
		return fmt.Errorf("%w: surface view is %T, want hal.TextureView", gpucore.ErrInvalidDescriptor, view)
	}
	s.a.setTargetView(s.id, hv)
	s.width, s.height = width, height
	s.attached = true
	return nil
}

// AcquireTexture returns the attached view.
func (s *FrameSurface) AcquireTexture() (gpucore.TextureViewID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached || s.width == 0 || s.height == 0 {
		return gpucore.InvalidID, gpucore.ErrSurfaceLost
	}
	s.acquired = true
	return s.id, nil
}

// Present detaches the view. The host presents the swapchain image.
func (s *FrameSurface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return fmt.Errorf("wgpu: present without acquire")
	}
	s.acquired = false
	s.attached = false
	s.frames++
	s.a.setTargetView(s.id, nil)
	return nil
}

// Size returns the size of the last attached view.
func (s *FrameSurface) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Format returns the view format.
func (s *FrameSurface) Format() gpucore.TextureFormat { return s.format }

// Frames returns the number of presented frames.
func (s *FrameSurface) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Destroy unregisters the surface from the adapter.
func (s *FrameSurface) Destroy() {
	s.a.unregisterTarget(s.id)
}

// OffscreenSurface renders into a texture owned by the adapter. It backs
// headless runs and snapshots.
type OffscreenSurface struct {
	mu       sync.Mutex
	a        *Adapter
	id       gpucore.TextureViewID
	format   gpucore.TextureFormat
	width    uint32
	height   uint32
	tex      hal.Texture
	view     hal.TextureView
	acquired bool
}

// NewOffscreenSurface creates an RGBA8 render target of the given size.
func NewOffscreenSurface(a *Adapter, width, height int) (*OffscreenSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d", gpucore.ErrInvalidDescriptor, width, height)
	}
	s := &OffscreenSurface{a: a, format: gpucore.TextureFormatRGBA8Unorm}
	if err := s.allocate(uint32(width), uint32(height)); err != nil {
		return nil, err
	}
	s.id = a.registerTarget(s.format)
	a.setTargetView(s.id, s.view)
	return s, nil
}

func (s *OffscreenSurface) allocate(w, h uint32) error {
	tex, err := s.a.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "life_offscreen",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create offscreen texture: %w", err)
	}
	view, err := s.a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "life_offscreen_view"})
	if err != nil {
		s.a.device.DestroyTexture(tex)
		return fmt.Errorf("wgpu: create offscreen view: %w", err)
	}
	s.tex, s.view = tex, view
	s.width, s.height = w, h
	return nil
}

func (s *OffscreenSurface) free() {
	if s.view != nil {
		s.a.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		s.a.device.DestroyTexture(s.tex)
		s.tex = nil
	}
}

// AcquireTexture returns the offscreen view.
func (s *OffscreenSurface) AcquireTexture() (gpucore.TextureViewID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return gpucore.InvalidID, gpucore.ErrSurfaceLost
	}
	s.acquired = true
	return s.id, nil
}

// Present ends the frame. The texture keeps its contents until the next
// render pass clears it.
func (s *OffscreenSurface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return fmt.Errorf("wgpu: present without acquire")
	}
	s.acquired = false
	return nil
}

// Size returns the texture size.
func (s *OffscreenSurface) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Format returns gpucore.TextureFormatRGBA8Unorm.
func (s *OffscreenSurface) Format() gpucore.TextureFormat { return s.format }

// Resize reallocates the texture. Previous contents are lost.
func (s *OffscreenSurface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: surface size %dx%d", gpucore.ErrInvalidDescriptor, width, height)
	}
	if err := s.a.WaitIdle(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.free()
	if err := s.allocate(uint32(width), uint32(height)); err != nil {
		s.a.setTargetView(s.id, nil)
		return err
	}
	s.a.setTargetView(s.id, s.view)
	return nil
}

// Image reads the texture back into an RGBA image, waiting for every
// earlier submission.
func (s *OffscreenSurface) Image() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tex == nil {
		return nil, gpucore.ErrSurfaceLost
	}
	a := s.a
	w, h := s.width, s.height

	// WebGPU requires BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "life_offscreen_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "life_offscreen_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("life_offscreen_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(s.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: s.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}

	a.queueMu.Lock()
	value := a.fenceValue + 1
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, a.fence, value); err != nil {
		a.queueMu.Unlock()
		a.device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}
	a.fenceValue = value
	a.inflight = append(a.inflight, submission{value: value, buffers: []hal.CommandBuffer{cmdBuf}})
	err = a.waitLocked(value)
	a.queueMu.Unlock()
	if err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := a.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := range int(h) {
		src := readback[row*int(alignedBytesPerRow):]
		copy(img.Pix[row*img.Stride:row*img.Stride+int(bytesPerRow)], src[:bytesPerRow])
	}
	return img, nil
}

// Destroy releases the texture and unregisters the surface.
func (s *OffscreenSurface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.unregisterTarget(s.id)
	s.free()
}

var (
	_ gpucore.Surface = (*FrameSurface)(nil)
	_ gpucore.Surface = (*OffscreenSurface)(nil)
)
