package software

import (
	"fmt"
	"image"
)

// execute runs the passes of one command buffer in order. Writes of a pass
// are visible to every later pass.
func (a *Adapter) execute(submission uint64, cb *commandBuffer) error {
	for i := range cb.passes {
		p := &cb.passes[i]
		var err error
		switch p.kind {
		case PassCompute:
			err = a.runCompute(submission, p)
		case PassRender:
			err = a.runRender(submission, p)
		}
		if err != nil {
			return fmt.Errorf("pass %q: %w", p.label, err)
		}
	}
	return nil
}

func (a *Adapter) runCompute(submission uint64, p *recordedPass) error {
	rec := PassRecord{Submission: submission, Kind: PassCompute, Label: p.label}
	var all []*Bindings
	for _, o := range p.ops {
		rec.Pipeline = uint64(o.computeID)
		rec.BindGroups = o.groupIDs
		rec.Workgroups = o.workgroups

		used, err := a.dispatch(o)
		all = append(all, used...)
		if err != nil {
			return err
		}
	}
	rec.Reads, rec.Writes = access(all)
	a.record(rec)
	return nil
}

// dispatch runs every invocation of every workgroup, including invocations
// past the edge of the data; kernels bounds-check like their WGSL source.
func (a *Adapter) dispatch(o op) ([]*Bindings, error) {
	limit := a.Capabilities().MaxComputeWorkgroupsPerDimension
	wx, wy, wz := o.workgroups[0], o.workgroups[1], o.workgroups[2]
	if wx > limit || wy > limit || wz > limit {
		return nil, fmt.Errorf("software: dispatch %dx%dx%d exceeds %d workgroups per dimension",
			wx, wy, wz, limit)
	}
	total := int(uint64(wx) * uint64(wy) * uint64(wz))
	if total == 0 {
		return nil, nil
	}

	size := workgroupDims(o.compute.kernel.WorkgroupSize)
	main := o.compute.kernel.Main
	workers := make([]*Bindings, a.pool.Workers())

	a.pool.Range(total, func(worker, i int) {
		b := workers[worker]
		if b == nil {
			b = newBindings(o.groups)
			workers[worker] = b
		}
		if b.err != nil {
			return
		}

		idx := uint32(i)
		var inv Invocation
		inv.WorkgroupID = [3]uint32{idx % wx, (idx / wx) % wy, idx / (wx * wy)}
		for lz := range size[2] {
			for ly := range size[1] {
				for lx := range size[0] {
					inv.LocalID = [3]uint32{lx, ly, lz}
					inv.GlobalID = [3]uint32{
						inv.WorkgroupID[0]*size[0] + lx,
						inv.WorkgroupID[1]*size[1] + ly,
						inv.WorkgroupID[2]*size[2] + lz,
					}
					main(inv, b)
				}
			}
		}
	})

	return workers, firstErr(workers)
}

func (a *Adapter) runRender(submission uint64, p *recordedPass) error {
	t := p.target
	t.mu.Lock()
	defer t.mu.Unlock()

	fill(t.img, p.clear)

	rec := PassRecord{Submission: submission, Kind: PassRender, Label: p.label, Target: p.view}
	var all []*Bindings
	for _, o := range p.ops {
		rec.Pipeline = uint64(o.renderID)
		rec.BindGroups = o.groupIDs
		rec.Vertices = o.vertexCount

		used, err := a.draw(o, t.img)
		all = append(all, used...)
		if err != nil {
			return err
		}
	}
	rec.Reads, rec.Writes = access(all)
	a.record(rec)
	return nil
}

// draw runs the vertex kernel, assembles a triangle list and shades the
// covered pixels row by row.
func (a *Adapter) draw(o op, img *image.RGBA) ([]*Bindings, error) {
	vb := newBindings(o.groups)
	verts := make([]VertexOutput, o.vertexCount)
	for i := range verts {
		verts[i] = o.render.vertex(o.firstVertex+uint32(i), vb)
	}
	if vb.err != nil {
		return []*Bindings{vb}, vb.err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	workers := make([]*Bindings, a.pool.Workers())
	fragment := o.render.fragment

	for range o.instanceCount {
		for i := 0; i+2 < len(verts); i += 3 {
			tri, ok := setupTriangle(verts[i], verts[i+1], verts[i+2], width, height)
			if !ok {
				continue
			}
			a.pool.Range(tri.maxY-tri.minY+1, func(worker, r int) {
				b := workers[worker]
				if b == nil {
					b = newBindings(o.groups)
					workers[worker] = b
				}
				if b.err != nil {
					return
				}
				y := tri.minY + r
				tri.scanRow(y, func(x int, in FragmentInput) {
					putPixel(img, x, y, fragment(in, b))
				})
			})
		}
	}

	used := append([]*Bindings{vb}, workers...)
	return used, firstErr(workers)
}

func firstErr(all []*Bindings) error {
	for _, b := range all {
		if b != nil && b.err != nil {
			return b.err
		}
	}
	return nil
}
