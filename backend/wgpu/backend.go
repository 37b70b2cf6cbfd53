//go:build !nogpu

package wgpu

import (
	"github.com/gogpu/life/backend"
	"github.com/gogpu/life/gpucore"
)

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func() backend.Backend {
		return &Backend{}
	})
}

// Backend adapts a standalone Adapter to the backend registry.
type Backend struct {
	adapter *Adapter
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendWGPU }

// Init opens a GPU through NewStandalone.
func (b *Backend) Init() error {
	if b.adapter != nil {
		return nil
	}
	a, err := NewStandalone()
	if err != nil {
		return err
	}
	b.adapter = a
	return nil
}

// Close destroys the adapter and its device.
func (b *Backend) Close() {
	if b.adapter != nil {
		b.adapter.Destroy()
		b.adapter = nil
	}
}

// Adapter returns the adapter, or nil before Init.
func (b *Backend) Adapter() gpucore.GPUAdapter {
	if b.adapter == nil {
		return nil
	}
	return b.adapter
}

// NewSurface creates an offscreen RGBA8 surface.
func (b *Backend) NewSurface(width, height int) (gpucore.Surface, error) {
	if b.adapter == nil {
		return nil, backend.ErrNotInitialized
	}
	return NewOffscreenSurface(b.adapter, width, height)
}
