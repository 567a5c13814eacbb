// Package gpu is the device-facing half of the renderer: resource
// descriptors, the pipeline cache, meshes and render passes. It knows
// nothing about entities; the ECS side drives it through Device.
package gpu

import "errors"

var (
	ErrUnsupportedSampleCount = errors.New("unsupported msaa sample count")
	ErrMissingVertexAttribute = errors.New("mesh is missing a required vertex attribute")
	ErrUnsupportedTopology    = errors.New("unsupported primitive topology")
	ErrUnknownShader          = errors.New("shader handle is not registered")
)

// ShaderHandle identifies a shader source registered with a PipelineCache.
type ShaderHandle uint64

type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

type BindGroupLayout interface {
	Release()
}

type BindGroup interface {
	Release()
}

type ShaderModule interface {
	Release()
}

type RenderPipeline interface {
	Release()
}

// Device creates GPU resources. Implementations are not required to be
// safe for concurrent use.
type Device interface {
	CreateBufferInit(desc *BufferInitDescriptor) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor, vertex, fragment ShaderModule) (RenderPipeline, error)
}

// Logger is the subset of the engine logger the gpu package writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}
