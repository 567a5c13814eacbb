package voxcube

import (
	"fmt"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/shaders"
)

// VoxelPipeline extends the mesh pipeline with the voxel shader and a third
// bind group holding the voxel colors.
type VoxelPipeline struct {
	Mesh        *gpu.MeshPipeline
	VoxelLayout gpu.BindGroupLayout
	Shader      gpu.ShaderHandle

	Specialized *gpu.SpecializedMeshPipelines[gpu.MeshPipelineKey]
}

func NewVoxelPipeline(device gpu.Device, mesh *gpu.MeshPipeline) (*VoxelPipeline, error) {
	layout, err := device.CreateBindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "voxel_data_layout",
		Entries: []gpu.BindGroupLayoutEntry{{
			Binding:        0,
			Visibility:     gpu.ShaderStageFragment,
			Type:           gpu.BufferBindingTypeUniform,
			MinBindingSize: VoxelDataSize,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create voxel data layout: %w", err)
	}
	return &VoxelPipeline{
		Mesh:        mesh,
		VoxelLayout: layout,
		Shader:      shaders.VoxelHandle,
		Specialized: gpu.NewSpecializedMeshPipelines[gpu.MeshPipelineKey](),
	}, nil
}

func (p *VoxelPipeline) Specialize(key gpu.MeshPipelineKey, layout *gpu.MeshVertexBufferLayout) (*gpu.RenderPipelineDescriptor, error) {
	if topology := key.PrimitiveTopology(); topology != gpu.PrimitiveTopologyTriangleList {
		return nil, fmt.Errorf("voxel pipeline needs a triangle list, got %s: %w", topology, gpu.ErrUnsupportedTopology)
	}
	desc, err := p.Mesh.Specialize(key, layout)
	if err != nil {
		return nil, err
	}
	desc.Label = "voxel_pipeline"
	if key.Contains(gpu.MeshPipelineKeyTransparentMainPass) {
		desc.Label = "voxel_transparent_pipeline"
	}
	desc.Vertex.Shader = p.Shader
	desc.Fragment.Shader = p.Shader
	desc.Layout = []gpu.BindGroupLayout{p.Mesh.ViewLayout, p.Mesh.MeshLayout, p.VoxelLayout}
	return desc, nil
}

// WireframePipeline draws voxel cubes as lines. It shares the voxel layout
// so the same bind groups serve both passes.
type WireframePipeline struct {
	Voxel  *VoxelPipeline
	Shader gpu.ShaderHandle

	Specialized *gpu.SpecializedMeshPipelines[gpu.MeshPipelineKey]
}

func NewWireframePipeline(voxel *VoxelPipeline) *WireframePipeline {
	return &WireframePipeline{
		Voxel:       voxel,
		Shader:      shaders.WireframeHandle,
		Specialized: gpu.NewSpecializedMeshPipelines[gpu.MeshPipelineKey](),
	}
}

func (p *WireframePipeline) Specialize(key gpu.MeshPipelineKey, layout *gpu.MeshVertexBufferLayout) (*gpu.RenderPipelineDescriptor, error) {
	desc, err := p.Voxel.Specialize(key, layout)
	if err != nil {
		return nil, err
	}
	desc.Label = "wireframe_pipeline"
	desc.Vertex.Shader = p.Shader
	desc.Fragment.Shader = p.Shader
	desc.Primitive.PolygonMode = gpu.PolygonModeLine
	desc.Primitive.CullMode = gpu.CullModeNone
	desc.DepthStencil.Bias.SlopeScale = 1.0
	return desc, nil
}
