package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gogpu/naga"
)

// Fixed handles the pipeline cache registers the sources under.
const (
	MeshHandle      gpu.ShaderHandle = 1450366287461538209
	VoxelHandle     gpu.ShaderHandle = 7632171639263852275
	WireframeHandle gpu.ShaderHandle = 6379866545205140404
)

//go:embed mesh.wgsl
var MeshWGSL string

//go:embed voxel.wgsl
var VoxelWGSL string

//go:embed wireframe.wgsl
var WireframeWGSL string

// All returns every embedded source keyed by its handle.
func All() map[gpu.ShaderHandle]string {
	return map[gpu.ShaderHandle]string{
		MeshHandle:      MeshWGSL,
		VoxelHandle:     VoxelWGSL,
		WireframeHandle: WireframeWGSL,
	}
}

// Validate compiles WGSL to SPIR-V and discards the result; only the
// error matters.
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("failed to compile shader: %w", err)
	}
	return nil
}
