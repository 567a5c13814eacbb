// Package wgpubackend implements the gpu interfaces on top of WebGPU.
package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/voxcube/gpu"
)

type Buffer struct {
	buf   *wgpu.Buffer
	label string
	size  uint64
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return b.size }
func (b *Buffer) Release()      { b.buf.Release() }

type BindGroupLayout struct {
	layout *wgpu.BindGroupLayout
}

func (l *BindGroupLayout) Release() { l.layout.Release() }

type BindGroup struct {
	group *wgpu.BindGroup
}

func (g *BindGroup) Release() { g.group.Release() }

type ShaderModule struct {
	module *wgpu.ShaderModule
}

func (m *ShaderModule) Release() { m.module.Release() }

type RenderPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
}

func (p *RenderPipeline) Release() {
	p.pipeline.Release()
	p.layout.Release()
}

// Device adapts a WebGPU device and its queue to gpu.Device.
type Device struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
}

func NewDevice(device *wgpu.Device) *Device {
	return &Device{Device: device, Queue: device.GetQueue()}
}

func (d *Device) CreateBufferInit(desc *gpu.BufferInitDescriptor) (gpu.Buffer, error) {
	buf, err := d.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    desc.Label,
		Contents: desc.Contents,
		Usage:    wgpu.BufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	return &Buffer{buf: buf, label: desc.Label, size: uint64(len(desc.Contents))}, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this device", buf.Label())
	}
	return d.Queue.WriteBuffer(b.buf, offset, data)
}

func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: wgpu.ShaderStage(e.Visibility),
			Buffer: wgpu.BufferBindingLayout{
				Type:             bufferBindingType(e.Type),
				HasDynamicOffset: e.HasDynamicOffset,
				MinBindingSize:   e.MinBindingSize,
			},
		}
	}
	layout, err := d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroupLayout{layout: layout}, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	layout, ok := desc.Layout.(*BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: layout was not created by this device", desc.Label)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		buf, ok := e.Buffer.(*Buffer)
		if !ok {
			return nil, fmt.Errorf("bind group %q: binding %d: buffer was not created by this device", desc.Label, e.Binding)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  buf.buf,
			Offset:  e.Offset,
			Size:    e.Size,
		}
	}
	group, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroup{group: group}, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Code},
	})
	if err != nil {
		return nil, err
	}
	return &ShaderModule{module: module}, nil
}

// CreateRenderPipeline builds the pipeline layout from desc.Layout and the
// pipeline itself. WebGPU has no line polygon mode, so a line pipeline is
// created with line list topology and drawn from an edge index buffer.
func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor, vertex, fragment gpu.ShaderModule) (gpu.RenderPipeline, error) {
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(desc.Layout))
	for i, l := range desc.Layout {
		layout, ok := l.(*BindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline %q: layout %d was not created by this device", desc.Label, i)
		}
		bindGroupLayouts[i] = layout.layout
	}
	pipelineLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, err
	}

	vs, ok := vertex.(*ShaderModule)
	if !ok {
		pipelineLayout.Release()
		return nil, fmt.Errorf("pipeline %q: vertex module was not created by this device", desc.Label)
	}

	buffers := make([]wgpu.VertexBufferLayout, len(desc.Vertex.Buffers))
	for i, b := range desc.Vertex.Buffers {
		attrs := make([]wgpu.VertexAttribute, len(b.Attributes))
		for j, a := range b.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: b.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	topology, bias := desc.LoweredPrimitive()

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  primitiveTopology(topology),
			FrontFace: frontFace(desc.Primitive.FrontFace),
			CullMode:  cullMode(desc.Primitive.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count:                  desc.Multisample.Count,
			Mask:                   desc.Multisample.Mask,
			AlphaToCoverageEnabled: desc.Multisample.AlphaToCoverageEnabled,
		},
	}

	if desc.Fragment != nil {
		fs, ok := fragment.(*ShaderModule)
		if !ok {
			pipelineLayout.Release()
			return nil, fmt.Errorf("pipeline %q: fragment module was not created by this device", desc.Label)
		}
		targets := make([]wgpu.ColorTargetState, len(desc.Fragment.Targets))
		for i, t := range desc.Fragment.Targets {
			targets[i] = wgpu.ColorTargetState{
				Format:    textureFormat(t.Format),
				WriteMask: wgpu.ColorWriteMaskAll,
			}
			if t.Blend != nil {
				targets[i].Blend = &wgpu.BlendState{
					Color: blendComponent(t.Blend.Color),
					Alpha: blendComponent(t.Blend.Alpha),
				}
			}
		}
		rpd.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    targets,
		}
	}

	if ds := desc.DepthStencil; ds != nil {
		rpd.DepthStencil = &wgpu.DepthStencilState{
			Format:              textureFormat(ds.Format),
			DepthWriteEnabled:   ds.DepthWriteEnabled,
			DepthCompare:        compareFunction(ds.DepthCompare),
			DepthBias:           bias.Constant,
			DepthBiasSlopeScale: bias.SlopeScale,
			DepthBiasClamp:      bias.Clamp,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	pipeline, err := d.Device.CreateRenderPipeline(rpd)
	if err != nil {
		pipelineLayout.Release()
		return nil, err
	}
	return &RenderPipeline{pipeline: pipeline, layout: pipelineLayout}, nil
}

func bufferBindingType(t gpu.BufferBindingType) wgpu.BufferBindingType {
	switch t {
	case gpu.BufferBindingTypeStorage:
		return wgpu.BufferBindingTypeStorage
	case gpu.BufferBindingTypeReadOnlyStorage:
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
	return wgpu.BufferBindingTypeUniform
}

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	switch f {
	case gpu.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case gpu.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	}
	return wgpu.VertexFormatFloat32x3
}

func primitiveTopology(t gpu.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gpu.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case gpu.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gpu.PrimitiveTopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gpu.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func frontFace(f gpu.FrontFace) wgpu.FrontFace {
	if f == gpu.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func cullMode(m gpu.CullMode) wgpu.CullMode {
	switch m {
	case gpu.CullModeFront:
		return wgpu.CullModeFront
	case gpu.CullModeBack:
		return wgpu.CullModeBack
	}
	return wgpu.CullModeNone
}

func compareFunction(c gpu.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gpu.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gpu.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gpu.CompareFunctionAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}

func textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case gpu.TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case gpu.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatBGRA8UnormSrgb
}

// colorFormat maps a surface format back. ok is false for formats the
// mesh pipeline cannot target.
func colorFormat(f wgpu.TextureFormat) (gpu.TextureFormat, bool) {
	switch f {
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return gpu.TextureFormatBGRA8UnormSrgb, true
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.TextureFormatRGBA8UnormSrgb, true
	case wgpu.TextureFormatRGBA16Float:
		return gpu.TextureFormatRGBA16Float, true
	}
	return 0, false
}

func blendComponent(c gpu.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: blendFactor(c.SrcFactor),
		DstFactor: blendFactor(c.DstFactor),
	}
}

func blendFactor(f gpu.BlendFactor) wgpu.BlendFactor {
	switch f {
	case gpu.BlendFactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case gpu.BlendFactorOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	}
	return wgpu.BlendFactorOne
}

func indexFormat(f gpu.IndexFormat) wgpu.IndexFormat {
	if f == gpu.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}
