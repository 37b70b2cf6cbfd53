//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/life/gpucore"
)

// errPassOpen reports a pass begun inside another or left open at Finish.
var errPassOpen = errors.New("wgpu: render or compute pass still open")

// commandEncoder wraps a hal.CommandEncoder and resolves gpucore IDs as
// commands are recorded. The first failure is sticky and reported by
// Finish.
type commandEncoder struct {
	a        *Adapter
	label    string
	enc      hal.CommandEncoder
	open     bool
	finished bool
	err      error
}

// BeginEncoding starts recording a new command buffer.
func (a *Adapter) BeginEncoding(label string) (gpucore.CommandEncoder, error) {
	a.mu.RLock()
	destroyed := a.destroyed
	a.mu.RUnlock()
	if destroyed {
		return nil, ErrDestroyed
	}

	enc, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder %q: %w", label, err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.DiscardEncoding()
		return nil, fmt.Errorf("wgpu: begin encoding %q: %w", label, err)
	}
	return &commandEncoder{a: a, label: label, enc: enc}, nil
}

func (e *commandEncoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *commandEncoder) begin() bool {
	switch {
	case e.finished:
		e.fail(gpucore.ErrEncoderFinished)
		return false
	case e.open:
		e.fail(fmt.Errorf("%w: %q", errPassOpen, e.label))
		return false
	}
	e.open = true
	return true
}

// BeginComputePass begins a compute pass.
func (e *commandEncoder) BeginComputePass(label string) gpucore.ComputePassEncoder {
	if !e.begin() {
		return &computePass{enc: e}
	}
	cp := e.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	return &computePass{enc: e, pass: cp}
}

// BeginRenderPass begins a render pass clearing the target view.
func (e *commandEncoder) BeginRenderPass(desc *gpucore.RenderPassDesc) gpucore.RenderPassEncoder {
	if !e.begin() {
		return &renderPass{enc: e}
	}
	if desc == nil {
		e.open = false
		e.fail(gpucore.ErrInvalidDescriptor)
		return &renderPass{enc: e}
	}

	e.a.mu.RLock()
	target, ok := e.a.targets[desc.Target]
	var view hal.TextureView
	var format gpucore.TextureFormat
	if ok {
		view, format = target.view, target.format
	}
	e.a.mu.RUnlock()
	if !ok || view == nil {
		e.open = false
		e.fail(fmt.Errorf("%w: texture view %d", gpucore.ErrNotFound, desc.Target))
		return &renderPass{enc: e}
	}

	rp := e.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: convertColor(desc.ClearColor),
		}},
	})
	return &renderPass{enc: e, pass: rp, format: format}
}

// Finish ends recording and registers the command buffer for Submit.
func (e *commandEncoder) Finish() (gpucore.CommandBufferID, error) {
	if e.finished {
		return gpucore.InvalidID, gpucore.ErrEncoderFinished
	}
	e.finished = true
	if e.open {
		e.fail(fmt.Errorf("%w: %q", errPassOpen, e.label))
	}
	if e.err != nil {
		e.enc.DiscardEncoding()
		return gpucore.InvalidID, fmt.Errorf("wgpu: encoder %q: %w", e.label, e.err)
	}

	cb, err := e.enc.EndEncoding()
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: end encoding %q: %w", e.label, err)
	}

	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	if e.a.destroyed {
		e.a.device.FreeCommandBuffer(cb)
		return gpucore.InvalidID, ErrDestroyed
	}
	id := gpucore.CommandBufferID(e.a.newID())
	e.a.commandBuffers[id] = cb
	return id, nil
}

// Discard abandons recording.
func (e *commandEncoder) Discard() {
	if e.finished {
		return
	}
	e.finished = true
	e.enc.DiscardEncoding()
}

func (e *commandEncoder) bindGroup(id gpucore.BindGroupID) (hal.BindGroup, bool) {
	e.a.mu.RLock()
	bg, ok := e.a.bindGroups[id]
	e.a.mu.RUnlock()
	if !ok {
		e.fail(fmt.Errorf("%w: bind group %d", gpucore.ErrNotFound, id))
	}
	return bg, ok
}

// computePass forwards to a hal.ComputePassEncoder. pass is nil when the
// pass failed to begin; every call is then a no-op.
type computePass struct {
	enc   *commandEncoder
	pass  hal.ComputePassEncoder
	ended bool
}

func (c *computePass) recording() bool {
	if c.pass == nil {
		return false
	}
	if c.ended {
		c.enc.fail(errors.New("wgpu: command recorded after End"))
		return false
	}
	return true
}

func (c *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	if !c.recording() {
		return
	}
	c.enc.a.mu.RLock()
	p, ok := c.enc.a.computePipelines[id]
	c.enc.a.mu.RUnlock()
	if !ok {
		c.enc.fail(fmt.Errorf("%w: compute pipeline %d", gpucore.ErrNotFound, id))
		return
	}
	c.pass.SetPipeline(p)
}

func (c *computePass) SetBindGroup(index uint32, id gpucore.BindGroupID) {
	if !c.recording() {
		return
	}
	if bg, ok := c.enc.bindGroup(id); ok {
		c.pass.SetBindGroup(index, bg, nil)
	}
}

func (c *computePass) Dispatch(x, y, z uint32) {
	if !c.recording() {
		return
	}
	c.pass.Dispatch(x, y, z)
}

func (c *computePass) End() {
	if !c.recording() {
		return
	}
	c.ended = true
	c.pass.End()
	c.enc.open = false
}

// renderPass forwards to a hal.RenderPassEncoder.
type renderPass struct {
	enc    *commandEncoder
	pass   hal.RenderPassEncoder
	format gpucore.TextureFormat
	ended  bool
}

func (r *renderPass) recording() bool {
	if r.pass == nil {
		return false
	}
	if r.ended {
		r.enc.fail(errors.New("wgpu: command recorded after End"))
		return false
	}
	return true
}

func (r *renderPass) SetPipeline(id gpucore.RenderPipelineID) {
	if !r.recording() {
		return
	}
	r.enc.a.mu.RLock()
	p, ok := r.enc.a.renderPipelines[id]
	r.enc.a.mu.RUnlock()
	if !ok {
		r.enc.fail(fmt.Errorf("%w: render pipeline %d", gpucore.ErrNotFound, id))
		return
	}
	if p.format != r.format {
		r.enc.fail(fmt.Errorf("%w: pipeline is %s, target is %s", ErrUnsupportedFormat, p.format, r.format))
		return
	}
	r.pass.SetPipeline(p.pipeline)
}

func (r *renderPass) SetBindGroup(index uint32, id gpucore.BindGroupID) {
	if !r.recording() {
		return
	}
	if bg, ok := r.enc.bindGroup(id); ok {
		r.pass.SetBindGroup(index, bg, nil)
	}
}

func (r *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !r.recording() {
		return
	}
	r.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (r *renderPass) End() {
	if !r.recording() {
		return
	}
	r.ended = true
	r.pass.End()
	r.enc.open = false
}
