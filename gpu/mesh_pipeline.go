package gpu

import (
	"fmt"
	"math/bits"
)

const (
	// ViewUniformSize is view_proj + inverse_view + world_position, padded.
	ViewUniformSize = 144
	// MeshUniformSize is model + inverse_transpose_model + flags, padded.
	MeshUniformSize = 144
	// MeshUniformStride satisfies minUniformBufferOffsetAlignment.
	MeshUniformStride = 256
)

// MeshPipelineKey packs the draw state a mesh pipeline varies on.
type MeshPipelineKey uint32

const (
	MeshPipelineKeyNone                MeshPipelineKey = 0
	MeshPipelineKeyTransparentMainPass MeshPipelineKey = 1 << 0
	MeshPipelineKeyHDR                 MeshPipelineKey = 1 << 1

	msaaMask      = 0b111
	msaaShift     = 29
	topologyMask  = 0b111
	topologyShift = 26
)

func MeshPipelineKeyFromMsaaSamples(samples uint32) MeshPipelineKey {
	return MeshPipelineKey((uint32(bits.TrailingZeros32(samples)) & msaaMask) << msaaShift)
}

func MeshPipelineKeyFromPrimitiveTopology(topology PrimitiveTopology) MeshPipelineKey {
	return MeshPipelineKey((uint32(topology) & topologyMask) << topologyShift)
}

func MeshPipelineKeyFromHDR(hdr bool) MeshPipelineKey {
	if hdr {
		return MeshPipelineKeyHDR
	}
	return MeshPipelineKeyNone
}

func (k MeshPipelineKey) MsaaSamples() uint32 {
	return 1 << ((uint32(k) >> msaaShift) & msaaMask)
}

func (k MeshPipelineKey) PrimitiveTopology() PrimitiveTopology {
	return PrimitiveTopology((uint32(k) >> topologyShift) & topologyMask)
}

func (k MeshPipelineKey) Contains(flag MeshPipelineKey) bool {
	return k&flag == flag
}

// MeshPipeline holds the view and mesh bind group layouts every mesh
// shader shares, and builds the base descriptor other pipelines extend.
type MeshPipeline struct {
	ViewLayout  BindGroupLayout
	MeshLayout  BindGroupLayout
	Shader      ShaderHandle
	ColorFormat TextureFormat
	DepthFormat TextureFormat
}

func NewMeshPipeline(device Device, shader ShaderHandle, colorFormat TextureFormat) (*MeshPipeline, error) {
	viewLayout, err := device.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Label: "mesh_view_layout",
		Entries: []BindGroupLayoutEntry{{
			Binding:        0,
			Visibility:     ShaderStageVertex | ShaderStageFragment,
			Type:           BufferBindingTypeUniform,
			MinBindingSize: ViewUniformSize,
		}},
	})
	if err != nil {
		return nil, err
	}

	meshLayout, err := device.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Label: "mesh_layout",
		Entries: []BindGroupLayoutEntry{{
			Binding:          0,
			Visibility:       ShaderStageVertex | ShaderStageFragment,
			Type:             BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   MeshUniformSize,
		}},
	})
	if err != nil {
		viewLayout.Release()
		return nil, err
	}

	return &MeshPipeline{
		ViewLayout:  viewLayout,
		MeshLayout:  meshLayout,
		Shader:      shader,
		ColorFormat: colorFormat,
		DepthFormat: TextureFormatDepth32Float,
	}, nil
}

// Specialize returns the base mesh descriptor for key. Callers may edit the
// returned descriptor freely.
func (p *MeshPipeline) Specialize(key MeshPipelineKey, layout *MeshVertexBufferLayout) (*RenderPipelineDescriptor, error) {
	samples := key.MsaaSamples()
	if samples != 1 && samples != 4 {
		return nil, fmt.Errorf("%d samples: %w", samples, ErrUnsupportedSampleCount)
	}

	vertexLayout, err := layout.Layout(
		AttributeLocation{Attribute: AttributePosition, Location: 0},
		AttributeLocation{Attribute: AttributeNormal, Location: 1},
		AttributeLocation{Attribute: AttributeUV0, Location: 2},
	)
	if err != nil {
		return nil, err
	}

	label := "opaque_mesh_pipeline"
	var blend *BlendState
	depthWrite := true
	if key.Contains(MeshPipelineKeyTransparentMainPass) {
		label = "transparent_mesh_pipeline"
		b := AlphaBlending
		blend = &b
		depthWrite = false
	}

	format := p.ColorFormat
	if key.Contains(MeshPipelineKeyHDR) {
		format = TextureFormatRGBA16Float
	}

	return &RenderPipelineDescriptor{
		Label:  label,
		Layout: []BindGroupLayout{p.ViewLayout, p.MeshLayout},
		Vertex: VertexState{
			Shader:     p.Shader,
			EntryPoint: "vertex",
			Buffers:    []VertexBufferLayout{vertexLayout},
		},
		Fragment: &FragmentState{
			Shader:     p.Shader,
			EntryPoint: "fragment",
			Targets:    []ColorTargetState{{Format: format, Blend: blend}},
		},
		Primitive: PrimitiveState{
			Topology:    key.PrimitiveTopology(),
			FrontFace:   FrontFaceCCW,
			CullMode:    CullModeBack,
			PolygonMode: PolygonModeFill,
		},
		DepthStencil: &DepthStencilState{
			Format:            p.DepthFormat,
			DepthWriteEnabled: depthWrite,
			DepthCompare:      CompareFunctionLess,
		},
		Multisample: MultisampleState{
			Count: samples,
			Mask:  ^uint32(0),
		},
	}, nil
}

// SpecializedMeshPipeline builds a descriptor for a key and a mesh layout.
type SpecializedMeshPipeline[K comparable] interface {
	Specialize(key K, layout *MeshVertexBufferLayout) (*RenderPipelineDescriptor, error)
}

type specializedMeshKey[K comparable] struct {
	layout string
	key    K
}

// SpecializedMeshPipelines memoizes specializations by (vertex layout, key).
// Errors are returned to the caller and never cached.
type SpecializedMeshPipelines[K comparable] struct {
	cache map[specializedMeshKey[K]]CachedPipelineId
}

func NewSpecializedMeshPipelines[K comparable]() *SpecializedMeshPipelines[K] {
	return &SpecializedMeshPipelines[K]{cache: make(map[specializedMeshKey[K]]CachedPipelineId)}
}

func (s *SpecializedMeshPipelines[K]) Specialize(
	cache *PipelineCache,
	pipeline SpecializedMeshPipeline[K],
	key K,
	layout *MeshVertexBufferLayout,
) (CachedPipelineId, error) {
	k := specializedMeshKey[K]{layout: layout.Key(), key: key}
	if id, ok := s.cache[k]; ok {
		return id, nil
	}

	desc, err := pipeline.Specialize(key, layout)
	if err != nil {
		return 0, err
	}
	id := cache.QueueRenderPipeline(desc)
	s.cache[k] = id
	return id, nil
}

func (s *SpecializedMeshPipelines[K]) Len() int {
	return len(s.cache)
}
