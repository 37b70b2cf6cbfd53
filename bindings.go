package life

import (
	"fmt"

	"github.com/gogpu/life/gpucore"
)

// resources owns every GPU object a Simulation creates. Zero IDs mean
// "not created"; release skips them, so a partially built set can be
// released after a failed New.
type resources struct {
	module gpucore.ShaderModuleID

	params  gpucore.BufferID
	buffers [2]gpucore.BufferID

	computeLayout gpucore.BindGroupLayoutID
	renderLayout  gpucore.BindGroupLayoutID

	computePipelineLayout gpucore.PipelineLayoutID
	renderPipelineLayout  gpucore.PipelineLayoutID

	computePipeline gpucore.ComputePipelineID
	renderPipeline  gpucore.RenderPipelineID

	// compute[i] reads buffers[i] and writes buffers[1-i].
	// render[i] reads buffers[i].
	compute [2]gpucore.BindGroupID
	render  [2]gpucore.BindGroupID
}

// computeLayoutEntries returns the bindings of the compute kernel.
func computeLayoutEntries(cellsSize uint64) []gpucore.BindGroupLayoutEntry {
	return []gpucore.BindGroupLayoutEntry{
		{Binding: bindingParams, Visibility: gpucore.ShaderStageCompute, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: ParamsSize},
		{Binding: bindingCellsIn, Visibility: gpucore.ShaderStageCompute, Type: gpucore.BindingTypeReadOnlyStorageBuffer, MinBindingSize: cellsSize},
		{Binding: bindingCellsOut, Visibility: gpucore.ShaderStageCompute, Type: gpucore.BindingTypeStorageBuffer, MinBindingSize: cellsSize},
	}
}

// renderLayoutEntries returns the bindings of the fragment kernel.
func renderLayoutEntries(cellsSize uint64) []gpucore.BindGroupLayoutEntry {
	return []gpucore.BindGroupLayoutEntry{
		{Binding: bindingParams, Visibility: gpucore.ShaderStageFragment, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: ParamsSize},
		{Binding: bindingCellsIn, Visibility: gpucore.ShaderStageFragment, Type: gpucore.BindingTypeReadOnlyStorageBuffer, MinBindingSize: cellsSize},
	}
}

// build creates every resource. On error the caller releases r.
func (r *resources) build(a gpucore.GPUAdapter, o *options, size Size, format gpucore.TextureFormat) error {
	label := o.label
	cellsSize := uint64(size.Cells() * cellBytes)

	var err error
	r.module, err = a.CreateShaderModule(&gpucore.ShaderModuleDesc{Label: label, Source: o.shaderSource})
	if err != nil {
		return fmt.Errorf("shader module: %w", err)
	}

	if r.params, err = a.CreateBuffer(label+" params", ParamsSize,
		gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst); err != nil {
		return fmt.Errorf("params buffer: %w", err)
	}
	for i := range r.buffers {
		if r.buffers[i], err = a.CreateBuffer(fmt.Sprintf("%s cells %d", label, i), int(cellsSize),
			gpucore.BufferUsageStorage|gpucore.BufferUsageCopyDst|gpucore.BufferUsageCopySrc); err != nil {
			return fmt.Errorf("cell buffer %d: %w", i, err)
		}
	}

	if r.computeLayout, err = a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   label + " compute",
		Entries: computeLayoutEntries(cellsSize),
	}); err != nil {
		return fmt.Errorf("compute bind group layout: %w", err)
	}
	if r.renderLayout, err = a.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   label + " render",
		Entries: renderLayoutEntries(cellsSize),
	}); err != nil {
		return fmt.Errorf("render bind group layout: %w", err)
	}

	if r.computePipelineLayout, err = a.CreatePipelineLayout(label+" compute",
		[]gpucore.BindGroupLayoutID{r.computeLayout}); err != nil {
		return fmt.Errorf("compute pipeline layout: %w", err)
	}
	if r.renderPipelineLayout, err = a.CreatePipelineLayout(label+" render",
		[]gpucore.BindGroupLayoutID{r.renderLayout}); err != nil {
		return fmt.Errorf("render pipeline layout: %w", err)
	}

	if r.computePipeline, err = a.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        label + " compute",
		Layout:       r.computePipelineLayout,
		ShaderModule: r.module,
		EntryPoint:   EntryCompute,
	}); err != nil {
		return fmt.Errorf("compute pipeline: %w", err)
	}
	if r.renderPipeline, err = r.newRenderPipeline(a, label, format); err != nil {
		return err
	}

	return r.buildBindingSets(a, label)
}

func (r *resources) newRenderPipeline(a gpucore.GPUAdapter, label string, format gpucore.TextureFormat) (gpucore.RenderPipelineID, error) {
	id, err := a.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:              label + " render",
		Layout:             r.renderPipelineLayout,
		ShaderModule:       r.module,
		VertexEntryPoint:   EntryVertex,
		FragmentEntryPoint: EntryFragment,
		TargetFormat:       format,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("render pipeline (%s): %w", format, err)
	}
	return id, nil
}

// buildBindingSets creates the four immutable binding sets.
func (r *resources) buildBindingSets(a gpucore.GPUAdapter, label string) error {
	for i := range 2 {
		src, dst := r.buffers[i], r.buffers[1-i]

		var err error
		r.compute[i], err = a.CreateBindGroup(&gpucore.BindGroupDesc{
			Label:  fmt.Sprintf("%s compute %d->%d", label, i, 1-i),
			Layout: r.computeLayout,
			Entries: []gpucore.BindGroupEntry{
				{Binding: bindingParams, Buffer: r.params},
				{Binding: bindingCellsIn, Buffer: src},
				{Binding: bindingCellsOut, Buffer: dst},
			},
		})
		if err != nil {
			return fmt.Errorf("compute binding set %d: %w", i, err)
		}

		r.render[i], err = a.CreateBindGroup(&gpucore.BindGroupDesc{
			Label:  fmt.Sprintf("%s render %d", label, i),
			Layout: r.renderLayout,
			Entries: []gpucore.BindGroupEntry{
				{Binding: bindingParams, Buffer: r.params},
				{Binding: bindingCellsIn, Buffer: src},
			},
		})
		if err != nil {
			return fmt.Errorf("render binding set %d: %w", i, err)
		}
	}
	return nil
}

// release destroys everything in reverse creation order.
func (r *resources) release(a gpucore.GPUAdapter) {
	for i := range 2 {
		if r.render[i] != gpucore.InvalidID {
			a.DestroyBindGroup(r.render[i])
		}
		if r.compute[i] != gpucore.InvalidID {
			a.DestroyBindGroup(r.compute[i])
		}
	}
	if r.renderPipeline != gpucore.InvalidID {
		a.DestroyRenderPipeline(r.renderPipeline)
	}
	if r.computePipeline != gpucore.InvalidID {
		a.DestroyComputePipeline(r.computePipeline)
	}
	if r.renderPipelineLayout != gpucore.InvalidID {
		a.DestroyPipelineLayout(r.renderPipelineLayout)
	}
	if r.computePipelineLayout != gpucore.InvalidID {
		a.DestroyPipelineLayout(r.computePipelineLayout)
	}
	if r.renderLayout != gpucore.InvalidID {
		a.DestroyBindGroupLayout(r.renderLayout)
	}
	if r.computeLayout != gpucore.InvalidID {
		a.DestroyBindGroupLayout(r.computeLayout)
	}
	for _, b := range r.buffers {
		if b != gpucore.InvalidID {
			a.DestroyBuffer(b)
		}
	}
	if r.params != gpucore.InvalidID {
		a.DestroyBuffer(r.params)
	}
	if r.module != gpucore.InvalidID {
		a.DestroyShaderModule(r.module)
	}
	*r = resources{}
}
