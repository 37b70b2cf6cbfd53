package software

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/life/gpucore"
)

// errPresentWithoutAcquire is returned by Present when no texture is held.
var errPresentWithoutAcquire = errors.New("software: present without acquired texture")

// Surface is an in-memory RGBA8 presentation target.
//
// Render passes write into the surface image when their command buffer is
// submitted. Resize and SetLost simulate the window-system events a real
// swapchain reports.
type Surface struct {
	mu sync.Mutex

	a    *Adapter
	view gpucore.TextureViewID
	img  *image.RGBA

	pending   *image.Rectangle
	lost      bool
	acquired  bool
	presented uint64
}

// NewSurface creates a surface of the given size and registers its texture
// view with the adapter.
func NewSurface(a *Adapter, width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", gpucore.ErrInvalidDescriptor, width, height)
	}
	s := &Surface{a: a, img: image.NewRGBA(image.Rect(0, 0, width, height))}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return nil, ErrAdapterDestroyed
	}
	s.view = gpucore.TextureViewID(a.newID())
	a.views[s.view] = s
	return s, nil
}

// AcquireTexture returns the surface view. A lost surface reports
// gpucore.ErrSurfaceLost; the first acquire after Resize reports
// gpucore.ErrSurfaceOutdated and applies the new size.
func (s *Surface) AcquireTexture() (gpucore.TextureViewID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lost {
		return gpucore.InvalidID, gpucore.ErrSurfaceLost
	}
	if s.pending != nil {
		s.img = image.NewRGBA(*s.pending)
		s.pending = nil
		return gpucore.InvalidID, gpucore.ErrSurfaceOutdated
	}
	s.acquired = true
	return s.view, nil
}

// Present releases the acquired texture.
func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return errPresentWithoutAcquire
	}
	s.acquired = false
	s.presented++
	return nil
}

// Size returns the current surface size in pixels.
func (s *Surface) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	return uint32(b.Dx()), uint32(b.Dy())
}

// Format returns gpucore.TextureFormatRGBA8Unorm.
func (s *Surface) Format() gpucore.TextureFormat {
	return gpucore.TextureFormatRGBA8Unorm
}

// Resize schedules a size change, reported by the next AcquireTexture.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := image.Rect(0, 0, width, height)
	s.pending = &r
}

// SetLost marks the surface lost or available again.
func (s *Surface) SetLost(lost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost = lost
	if lost {
		s.acquired = false
	}
}

// Presented returns the number of successful Present calls.
func (s *Surface) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Image returns a copy of the surface contents.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// View returns the texture view ID render passes target.
func (s *Surface) View() gpucore.TextureViewID { return s.view }

// Destroy unregisters the surface from its adapter.
func (s *Surface) Destroy() {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	delete(s.a.views, s.view)
}

// Compile-time interface check.
var _ gpucore.Surface = (*Surface)(nil)
