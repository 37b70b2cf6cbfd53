//go:build !nogpu

package wgpu

import "errors"

var (
	// ErrNoAdapter is returned by NewStandalone when no GPU is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrProvider is returned by NewFromProvider when the provider does not
	// expose HAL device and queue.
	ErrProvider = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrUnsupportedFormat is returned for texture formats the adapter
	// cannot render to.
	ErrUnsupportedFormat = errors.New("wgpu: unsupported texture format")

	// ErrTimeout is returned when the GPU does not reach a fence value in
	// time.
	ErrTimeout = errors.New("wgpu: timeout waiting for GPU")

	// ErrDestroyed is returned by methods called after Destroy.
	ErrDestroyed = errors.New("wgpu: adapter destroyed")
)
