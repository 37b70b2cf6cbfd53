package life

import "errors"

// Simulation errors.
var (
	// ErrInvalidSize is returned when a grid dimension is not positive.
	ErrInvalidSize = errors.New("life: invalid grid size")

	// ErrInitialization wraps every failure of New. The cause is wrapped
	// alongside it.
	ErrInitialization = errors.New("life: initialization failed")

	// ErrNoCompute is returned when the adapter cannot run compute shaders.
	ErrNoCompute = errors.New("life: adapter does not support compute")

	// ErrWorkgroupMismatch is returned when the dispatch workgroup size
	// differs from the one the compute entry point runs with.
	ErrWorkgroupMismatch = errors.New("life: workgroup size mismatch")

	// ErrFrameSkipped is returned by Advance when the surface had no image
	// to render into. It is recoverable; the next Advance retries.
	ErrFrameSkipped = errors.New("life: frame skipped")

	// ErrPresentFailed is returned by Advance when the generation was
	// computed and rendered but the surface refused to present it. The step
	// counter has advanced and the error is not latched.
	ErrPresentFailed = errors.New("life: present failed")

	// ErrDeviceLost is returned when encoding or submission fails. It is
	// latched: every later Advance returns it.
	ErrDeviceLost = errors.New("life: device lost")

	// ErrClosed is returned by methods called after Close.
	ErrClosed = errors.New("life: simulation closed")

	// ErrInvalidPattern is returned by ParsePattern for malformed input.
	ErrInvalidPattern = errors.New("life: invalid pattern")
)
