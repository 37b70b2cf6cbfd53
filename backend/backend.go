package backend

import (
	"errors"

	"github.com/gogpu/life/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the host-executing software backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu).
	BackendWGPU = "wgpu"
)

// Backend is the interface for device backends.
// It owns one device and hands out the adapter and offscreen surfaces
// a Simulation runs on.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init acquires the device.
	// This should be called before Adapter or NewSurface.
	Init() error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()

	// Adapter returns the device adapter, or nil before Init.
	Adapter() gpucore.GPUAdapter

	// NewSurface creates an offscreen presentation target of the given
	// size for headless runs.
	NewSurface(width, height int) (gpucore.Surface, error)
}
