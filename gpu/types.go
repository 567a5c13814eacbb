package gpu

import "slices"

// BufferUsage bits match the WebGPU values so backends can cast directly.
type BufferUsage uint32

const (
	BufferUsageMapRead  BufferUsage = 0x0001
	BufferUsageMapWrite BufferUsage = 0x0002
	BufferUsageCopySrc  BufferUsage = 0x0004
	BufferUsageCopyDst  BufferUsage = 0x0008
	BufferUsageIndex    BufferUsage = 0x0010
	BufferUsageVertex   BufferUsage = 0x0020
	BufferUsageUniform  BufferUsage = 0x0040
	BufferUsageStorage  BufferUsage = 0x0080
)

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x2
)

type BufferBindingType int

const (
	BufferBindingTypeUniform BufferBindingType = iota
	BufferBindingTypeStorage
	BufferBindingTypeReadOnlyStorage
)

type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyPointList
)

func (t PrimitiveTopology) String() string {
	switch t {
	case PrimitiveTopologyTriangleList:
		return "TriangleList"
	case PrimitiveTopologyTriangleStrip:
		return "TriangleStrip"
	case PrimitiveTopologyLineList:
		return "LineList"
	case PrimitiveTopologyLineStrip:
		return "LineStrip"
	case PrimitiveTopologyPointList:
		return "PointList"
	}
	return "Unknown"
}

type PolygonMode int

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
)

type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type CompareFunction int

const (
	CompareFunctionLess CompareFunction = iota
	CompareFunctionLessEqual
	CompareFunctionGreater
	CompareFunctionAlways
)

type TextureFormat int

const (
	TextureFormatBGRA8UnormSrgb TextureFormat = iota
	TextureFormatRGBA8UnormSrgb
	TextureFormatRGBA16Float
	TextureFormatDepth32Float
)

type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

// Size returns the byte size of one attribute of this format.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32x2:
		return 8
	case VertexFormatFloat32x3:
		return 12
	case VertexFormatFloat32x4:
		return 16
	}
	return 0
}

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type BlendFactor int

const (
	BlendFactorOne BlendFactor = iota
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
)

type BlendComponent struct {
	SrcFactor BlendFactor
	DstFactor BlendFactor
}

type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// AlphaBlending is regular premultiplied-free "over" blending.
var AlphaBlending = BlendState{
	Color: BlendComponent{SrcFactor: BlendFactorSrcAlpha, DstFactor: BlendFactorOneMinusSrcAlpha},
	Alpha: BlendComponent{SrcFactor: BlendFactorOne, DstFactor: BlendFactorOneMinusSrcAlpha},
}

type BufferInitDescriptor struct {
	Label    string
	Contents []byte
	Usage    BufferUsage
}

type BindGroupLayoutEntry struct {
	Binding          uint32
	Visibility       ShaderStage
	Type             BufferBindingType
	HasDynamicOffset bool
	MinBindingSize   uint64
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
}

type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

type VertexBufferLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

type VertexState struct {
	Shader     ShaderHandle
	EntryPoint string
	Buffers    []VertexBufferLayout
}

type ColorTargetState struct {
	Format TextureFormat
	Blend  *BlendState
}

type FragmentState struct {
	Shader     ShaderHandle
	EntryPoint string
	Targets    []ColorTargetState
}

type PrimitiveState struct {
	Topology    PrimitiveTopology
	FrontFace   FrontFace
	CullMode    CullMode
	PolygonMode PolygonMode
}

type DepthBiasState struct {
	Constant   int32
	SlopeScale float32
	Clamp      float32
}

type DepthStencilState struct {
	Format            TextureFormat
	DepthWriteEnabled bool
	DepthCompare      CompareFunction
	Bias              DepthBiasState
}

type MultisampleState struct {
	Count                  uint32
	Mask                   uint32
	AlphaToCoverageEnabled bool
}

type RenderPipelineDescriptor struct {
	Label        string
	Layout       []BindGroupLayout
	Vertex       VertexState
	Fragment     *FragmentState
	Primitive    PrimitiveState
	DepthStencil *DepthStencilState
	Multisample  MultisampleState
}

// Clone returns a deep copy so specializations can edit the result
// without touching the base descriptor.
func (d *RenderPipelineDescriptor) Clone() *RenderPipelineDescriptor {
	c := *d
	c.Layout = slices.Clone(d.Layout)
	c.Vertex.Buffers = make([]VertexBufferLayout, len(d.Vertex.Buffers))
	for i, b := range d.Vertex.Buffers {
		c.Vertex.Buffers[i] = VertexBufferLayout{
			ArrayStride: b.ArrayStride,
			Attributes:  slices.Clone(b.Attributes),
		}
	}
	if d.Fragment != nil {
		f := *d.Fragment
		f.Targets = make([]ColorTargetState, len(d.Fragment.Targets))
		for i, t := range d.Fragment.Targets {
			f.Targets[i] = t
			if t.Blend != nil {
				b := *t.Blend
				f.Targets[i].Blend = &b
			}
		}
		c.Fragment = &f
	}
	if d.DepthStencil != nil {
		ds := *d.DepthStencil
		c.DepthStencil = &ds
	}
	return &c
}

// LoweredPrimitive returns the topology and depth bias for backends without
// line polygon mode. Such pipelines are drawn as a line list, and line or
// point topologies cannot carry a depth bias.
func (d *RenderPipelineDescriptor) LoweredPrimitive() (PrimitiveTopology, DepthBiasState) {
	topology := d.Primitive.Topology
	if d.Primitive.PolygonMode == PolygonModeLine {
		topology = PrimitiveTopologyLineList
	}
	var bias DepthBiasState
	if d.DepthStencil != nil {
		bias = d.DepthStencil.Bias
	}
	if topology != PrimitiveTopologyTriangleList && topology != PrimitiveTopologyTriangleStrip {
		bias = DepthBiasState{}
	}
	return topology, bias
}
