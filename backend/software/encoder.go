package software

import (
	"fmt"

	"github.com/gogpu/life/gpucore"
)

type opKind int

const (
	opDispatch opKind = iota
	opDraw
)

// op is one recorded dispatch or draw with its state resolved.
type op struct {
	kind opKind

	computeID gpucore.ComputePipelineID
	compute   *computePipeline
	renderID  gpucore.RenderPipelineID
	render    *renderPipeline

	groupIDs []gpucore.BindGroupID
	groups   []*bindGroup

	workgroups [3]uint32

	vertexCount   uint32
	instanceCount uint32
	firstVertex   uint32
}

type recordedPass struct {
	kind   PassKind
	label  string
	target *Surface
	view   gpucore.TextureViewID
	clear  gpucore.Color
	ops    []op
}

type commandBuffer struct {
	label  string
	passes []recordedPass
}

// commandEncoder records passes. Validation errors are sticky and reported
// by Finish.
type commandEncoder struct {
	a        *Adapter
	label    string
	passes   []recordedPass
	open     bool
	finished bool
	err      error
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
		e.fail(fmt.Errorf("%w: %q began a pass inside another", ErrPassOpen, e.label))
		return false
	}
	e.open = true
	return true
}

// BeginComputePass begins a compute pass.
func (e *commandEncoder) BeginComputePass(label string) gpucore.ComputePassEncoder {
	ok := e.begin()
	if ok {
		e.passes = append(e.passes, recordedPass{kind: PassCompute, label: label})
	}
	return &computePass{passEncoder: passEncoder{enc: e, idx: len(e.passes) - 1, valid: ok}}
}

// BeginRenderPass begins a render pass targeting a surface view.
func (e *commandEncoder) BeginRenderPass(desc *gpucore.RenderPassDesc) gpucore.RenderPassEncoder {
	ok := e.begin()
	if ok {
		if desc == nil {
			e.fail(gpucore.ErrInvalidDescriptor)
			ok = false
		} else {
			e.a.mu.Lock()
			target, found := e.a.views[desc.Target]
			e.a.mu.Unlock()
			if !found {
				e.fail(fmt.Errorf("%w: texture view %d", gpucore.ErrNotFound, desc.Target))
				ok = false
			} else {
				e.passes = append(e.passes, recordedPass{
					kind:   PassRender,
					label:  desc.Label,
					target: target,
					view:   desc.Target,
					clear:  desc.ClearColor,
				})
			}
		}
		if !ok {
			e.open = false
		}
	}
	return &renderPass{passEncoder: passEncoder{enc: e, idx: len(e.passes) - 1, valid: ok}}
}

// Finish ends recording and registers the command buffer for submission.
func (e *commandEncoder) Finish() (gpucore.CommandBufferID, error) {
	if e.finished {
		return gpucore.InvalidID, gpucore.ErrEncoderFinished
	}
	e.finished = true
	if e.open {
		e.fail(fmt.Errorf("%w: %q", ErrPassOpen, e.label))
	}
	if e.err != nil {
		return gpucore.InvalidID, fmt.Errorf("software: encoder %q: %w", e.label, e.err)
	}

	e.a.mu.Lock()
	defer e.a.mu.Unlock()
	if e.a.destroyed {
		return gpucore.InvalidID, ErrAdapterDestroyed
	}
	id := gpucore.CommandBufferID(e.a.newID())
	e.a.commandBuffers[id] = &commandBuffer{label: e.label, passes: e.passes}
	return id, nil
}

// Discard abandons recording.
func (e *commandEncoder) Discard() {
	e.finished = true
	e.passes = nil
}

// passEncoder holds the state shared by compute and render pass encoders.
type passEncoder struct {
	enc      *commandEncoder
	idx      int
	valid    bool
	ended    bool
	groupIDs []gpucore.BindGroupID
	groups   []*bindGroup
}

func (p *passEncoder) recording() bool {
	if !p.valid {
		return false
	}
	if p.ended {
		p.enc.fail(fmt.Errorf("software: command recorded after End"))
		return false
	}
	return true
}

func (p *passEncoder) setBindGroup(index uint32, id gpucore.BindGroupID) {
	if !p.recording() {
		return
	}
	p.enc.a.mu.Lock()
	bg, ok := p.enc.a.bindGroups[id]
	p.enc.a.mu.Unlock()
	if !ok {
		p.enc.fail(fmt.Errorf("%w: bind group %d", gpucore.ErrNotFound, id))
		return
	}
	for uint32(len(p.groups)) <= index {
		p.groups = append(p.groups, nil)
		p.groupIDs = append(p.groupIDs, gpucore.InvalidID)
	}
	p.groups[index] = bg
	p.groupIDs[index] = id
}

// checkGroups verifies that every group of the pipeline layout has a
// compatible bind group set.
func (p *passEncoder) checkGroups(layout *pipelineLayout) bool {
	for i, want := range layout.groups {
		if i >= len(p.groups) || p.groups[i] == nil {
			p.enc.fail(fmt.Errorf("%w: no bind group at index %d", ErrLayoutMismatch, i))
			return false
		}
		if !layoutsCompatible(p.groups[i].layout, want) {
			p.enc.fail(fmt.Errorf("%w: bind group %q at index %d does not match %q",
				ErrLayoutMismatch, p.groups[i].label, i, want.label))
			return false
		}
	}
	return true
}

func (p *passEncoder) snapshotGroups() ([]gpucore.BindGroupID, []*bindGroup) {
	return append([]gpucore.BindGroupID(nil), p.groupIDs...), append([]*bindGroup(nil), p.groups...)
}

func (p *passEncoder) end() {
	if !p.recording() {
		return
	}
	p.ended = true
	p.enc.open = false
}

func layoutsCompatible(a, b *bindGroupLayout) bool {
	if a == b {
		return true
	}
	if len(a.entries) != len(b.entries) {
		return false
	}
	for k, ea := range a.entries {
		eb, ok := b.entries[k]
		if !ok || ea.Type != eb.Type || ea.Visibility != eb.Visibility {
			return false
		}
	}
	return true
}

type computePass struct {
	passEncoder
	pipeline   *computePipeline
	pipelineID gpucore.ComputePipelineID
}

func (c *computePass) SetPipeline(id gpucore.ComputePipelineID) {
	if !c.recording() {
		return
	}
	c.enc.a.mu.Lock()
	p, ok := c.enc.a.computePipelines[id]
	c.enc.a.mu.Unlock()
	if !ok {
		c.enc.fail(fmt.Errorf("%w: compute pipeline %d", gpucore.ErrNotFound, id))
		return
	}
	c.pipeline, c.pipelineID = p, id
}

func (c *computePass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	c.setBindGroup(index, group)
}

func (c *computePass) Dispatch(x, y, z uint32) {
	if !c.recording() {
		return
	}
	if c.pipeline == nil {
		c.enc.fail(fmt.Errorf("%w: dispatch in %q", ErrNoPipeline, c.enc.passes[c.idx].label))
		return
	}
	if !c.checkGroups(c.pipeline.layout) {
		return
	}
	ids, groups := c.snapshotGroups()
	pass := &c.enc.passes[c.idx]
	pass.ops = append(pass.ops, op{
		kind:       opDispatch,
		computeID:  c.pipelineID,
		compute:    c.pipeline,
		groupIDs:   ids,
		groups:     groups,
		workgroups: [3]uint32{x, y, z},
	})
}

func (c *computePass) End() { c.end() }

type renderPass struct {
	passEncoder
	pipeline   *renderPipeline
	pipelineID gpucore.RenderPipelineID
}

func (r *renderPass) SetPipeline(id gpucore.RenderPipelineID) {
	if !r.recording() {
		return
	}
	r.enc.a.mu.Lock()
	p, ok := r.enc.a.renderPipelines[id]
	r.enc.a.mu.Unlock()
	if !ok {
		r.enc.fail(fmt.Errorf("%w: render pipeline %d", gpucore.ErrNotFound, id))
		return
	}
	r.pipeline, r.pipelineID = p, id
}

func (r *renderPass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	r.setBindGroup(index, group)
}

func (r *renderPass) Draw(vertexCount, instanceCount, firstVertex, _ uint32) {
	if !r.recording() {
		return
	}
	pass := &r.enc.passes[r.idx]
	if r.pipeline == nil {
		r.enc.fail(fmt.Errorf("%w: draw in %q", ErrNoPipeline, pass.label))
		return
	}
	if r.pipeline.format != pass.target.Format() {
		r.enc.fail(fmt.Errorf("%w: pipeline %q is %s, target is %s",
			ErrFormatMismatch, r.pipeline.label, r.pipeline.format, pass.target.Format()))
		return
	}
	if !r.checkGroups(r.pipeline.layout) {
		return
	}
	ids, groups := r.snapshotGroups()
	pass.ops = append(pass.ops, op{
		kind:          opDraw,
		renderID:      r.pipelineID,
		render:        r.pipeline,
		groupIDs:      ids,
		groups:        groups,
		vertexCount:   vertexCount,
		instanceCount: instanceCount,
		firstVertex:   firstVertex,
	})
}

func (r *renderPass) End() { r.end() }
