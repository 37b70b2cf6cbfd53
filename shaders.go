package life

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ShaderSource is the WGSL module with the compute, vertex and fragment
// entry points. Custom shaders passed to WithShaderSource must keep the
// same entry point names and bindings.
//
//go:embed shaders/life.wgsl
var ShaderSource string

// Entry points of ShaderSource.
const (
	EntryCompute  = "computeMain"
	EntryVertex   = "vertexMain"
	EntryFragment = "fragmentMain"
)

// Bindings of @group(0).
const (
	bindingParams   = 0
	bindingCellsIn  = 1
	bindingCellsOut = 2
)

const (
	// DefaultWorkgroupSize matches @workgroup_size(8, 8, 1) in ShaderSource.
	DefaultWorkgroupSize = 8

	// quadVertices is the vertex count of the full-screen quad.
	quadVertices = 6
)

// shaderWorkgroupSize returns @workgroup_size of the compute entry point
// named entry. Omitted components are 1.
func shaderWorkgroupSize(source, entry string) ([3]uint32, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return [3]uint32{}, fmt.Errorf("shader reflection: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return [3]uint32{}, fmt.Errorf("shader reflection: %w", err)
	}
	for _, ep := range module.EntryPoints {
		if ep.Name == entry && ep.Stage == ir.StageCompute {
			return ep.Workgroup, nil
		}
	}
	return [3]uint32{}, fmt.Errorf("shader reflection: no compute entry point %q", entry)
}
