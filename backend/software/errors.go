package software

import "errors"

// Software adapter errors.
var (
	// ErrReadOnlyBinding is returned when a kernel stores through a uniform
	// or read-only storage binding. The submission fails.
	ErrReadOnlyBinding = errors.New("software: store to read-only binding")

	// ErrBufferAliasing is returned by CreateBindGroup when one buffer range
	// is bound both writable and read-only in the same group.
	ErrBufferAliasing = errors.New("software: buffer bound both writable and read-only")

	// ErrUnknownEntryPoint is returned when no kernel is registered for a
	// pipeline entry point.
	ErrUnknownEntryPoint = errors.New("software: unknown entry point")

	// ErrBufferUsage is returned when a buffer lacks the usage a binding
	// or operation requires.
	ErrBufferUsage = errors.New("software: buffer usage mismatch")

	// ErrOutOfBounds is returned for buffer writes, reads and bindings that
	// fall outside the buffer.
	ErrOutOfBounds = errors.New("software: out of bounds")

	// ErrLayoutMismatch is returned when bind group entries do not match
	// their layout.
	ErrLayoutMismatch = errors.New("software: bind group does not match layout")

	// ErrFormatMismatch is returned when a render pipeline targets a format
	// other than the render pass attachment.
	ErrFormatMismatch = errors.New("software: pipeline format does not match target")

	// ErrNoPipeline is returned when a dispatch or draw is recorded without
	// a pipeline set.
	ErrNoPipeline = errors.New("software: no pipeline set")

	// ErrPassOpen is returned by Finish when a pass was not ended.
	ErrPassOpen = errors.New("software: pass not ended")

	// ErrDeviceLost is returned by Submit after SetDeviceLost(true).
	ErrDeviceLost = errors.New("software: device lost")

	// ErrAdapterDestroyed is returned after Destroy.
	ErrAdapterDestroyed = errors.New("software: adapter destroyed")
)
