package software

import (
	"github.com/gogpu/life/backend"
	"github.com/gogpu/life/gpucore"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.BackendSoftware, func() backend.Backend {
		return NewBackend()
	})
}

// Backend adapts the software Adapter to the backend registry.
type Backend struct {
	opts    []Option
	adapter *Adapter
}

// NewBackend creates a software backend whose adapter is built with opts.
func NewBackend(opts ...Option) *Backend {
	return &Backend{opts: opts}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendSoftware }

// Init creates the adapter. Init never fails.
func (b *Backend) Init() error {
	if b.adapter == nil {
		b.adapter = New(b.opts...)
	}
	return nil
}

// Close destroys the adapter.
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

// SoftwareAdapter returns the concrete adapter for trace inspection.
func (b *Backend) SoftwareAdapter() *Adapter { return b.adapter }

// NewSurface creates an image surface.
func (b *Backend) NewSurface(width, height int) (gpucore.Surface, error) {
	if b.adapter == nil {
		return nil, backend.ErrNotInitialized
	}
	return NewSurface(b.adapter, width, height)
}
