//go:build !nogpu

package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/gpucore"
)

// MaxFramesInFlight bounds the number of submissions the CPU may run ahead
// of the GPU. Submit blocks on the oldest fence beyond this depth.
const MaxFramesInFlight = 3

// waitTimeout is how long a blocking fence wait may take before the
// device is considered hung.
const waitTimeout = 5 * time.Second

// submission is one queue submit whose command buffers are freed once the
// fence reaches value.
type submission struct {
	value   uint64
	buffers []hal.CommandBuffer
}

// Submit submits finished command buffers in order under a single fence
// signal. It does not wait for the GPU unless MaxFramesInFlight
// submissions are already pending.
func (a *Adapter) Submit(ids ...gpucore.CommandBufferID) error {
	if len(ids) == 0 {
		return nil
	}

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return ErrDestroyed
	}
	cmds := make([]hal.CommandBuffer, 0, len(ids))
	for _, id := range ids {
		cb, ok := a.commandBuffers[id]
		if !ok {
			a.mu.Unlock()
			// Buffers resolved so far go back untouched.
			return fmt.Errorf("%w: command buffer %d", gpucore.ErrNotFound, id)
		}
		cmds = append(cmds, cb)
	}
	for _, id := range ids {
		delete(a.commandBuffers, id)
	}
	a.mu.Unlock()

	a.queueMu.Lock()
	defer a.queueMu.Unlock()

	value := a.fenceValue + 1
	if err := a.queue.Submit(cmds, a.fence, value); err != nil {
		for _, cb := range cmds {
			a.device.FreeCommandBuffer(cb)
		}
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	a.fenceValue = value
	a.inflight = append(a.inflight, submission{value: value, buffers: cmds})

	if err := a.retireLocked(0); err != nil {
		return err
	}
	if len(a.inflight) > MaxFramesInFlight {
		oldest := a.inflight[len(a.inflight)-MaxFramesInFlight-1].value
		slogger().Debug("wgpu: throttling submission", "pending", len(a.inflight), "wait", oldest)
		if err := a.waitLocked(oldest); err != nil {
			return err
		}
	}
	return nil
}

// waitLocked blocks until the fence reaches value and retires everything
// up to it. Caller holds queueMu.
func (a *Adapter) waitLocked(value uint64) error {
	ok, err := a.device.Wait(a.fence, value, waitTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for fence %d: %w", value, err)
	}
	if !ok {
		return fmt.Errorf("%w: fence %d after %s", ErrTimeout, value, waitTimeout)
	}
	a.release(value)
	return nil
}

// retireLocked frees command buffers of submissions the GPU has finished,
// polling the fence with the given timeout. Caller holds queueMu.
func (a *Adapter) retireLocked(timeout time.Duration) error {
	for len(a.inflight) > 0 {
		head := a.inflight[0].value
		ok, err := a.device.Wait(a.fence, head, timeout)
		if err != nil {
			return fmt.Errorf("wgpu: poll fence %d: %w", head, err)
		}
		if !ok {
			return nil
		}
		a.release(head)
	}
	return nil
}

// release frees command buffers of every submission at or below value.
func (a *Adapter) release(value uint64) {
	n := 0
	for _, s := range a.inflight {
		if s.value > value {
			break
		}
		for _, cb := range s.buffers {
			a.device.FreeCommandBuffer(cb)
		}
		n++
	}
	a.inflight = a.inflight[n:]
}

// WaitIdle waits for all submitted work to complete.
func (a *Adapter) WaitIdle() error {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	if a.fence == nil || len(a.inflight) == 0 {
		return nil
	}
	return a.waitLocked(a.fenceValue)
}

// Pending returns the number of submissions the GPU has not finished.
func (a *Adapter) Pending() int {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	return len(a.inflight)
}

// ReadBuffer copies a range of a buffer into a staging buffer, waits for
// the GPU and returns the bytes. Every earlier submission completes first.
func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	b, err := a.lookupBuffer(id)
	if err != nil {
		return nil, err
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("wgpu: read of %d bytes at %d overflows buffer %d (%d bytes)",
			size, offset, id, b.size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	// Copies must be 4-byte aligned.
	start := offset &^ 3
	end := (offset + size + 3) &^ 3
	if end > b.size {
		end = b.size
	}
	span := end - start

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "life_readback",
		Size:  span,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "life_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("life_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: start, DstOffset: 0, Size: span},
	})
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

	readback := make([]byte, span)
	if err := a.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	lo := offset - start
	return readback[lo : lo+size], nil
}
