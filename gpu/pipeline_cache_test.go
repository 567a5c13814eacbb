package gpu_test

import (
	"errors"
	"testing"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(shader gpu.ShaderHandle) *gpu.RenderPipelineDescriptor {
	return &gpu.RenderPipelineDescriptor{
		Label:    "test",
		Vertex:   gpu.VertexState{Shader: shader, EntryPoint: "vertex"},
		Fragment: &gpu.FragmentState{Shader: shader, EntryPoint: "fragment"},
	}
}

func TestPipelineCache_QueueAndProcess(t *testing.T) {
	device := gputest.NewDevice()
	cache := gpu.NewPipelineCache(device, nil)
	cache.SetShader(7, "@vertex fn vertex() {}")

	id := cache.QueueRenderPipeline(testDescriptor(7))
	assert.Nil(t, cache.GetRenderPipeline(id), "pipeline must not be ready before processing")

	cache.ProcessQueue()
	p := cache.GetRenderPipeline(id)
	require.NotNil(t, p)
	assert.Same(t, device.Pipelines[0], p)

	// one module shared by vertex and fragment stages
	assert.Len(t, device.Shaders, 1)
	assert.Same(t, device.Pipelines[0].Vertex, device.Pipelines[0].Fragment)
}

func TestPipelineCache_UnknownShaderFails(t *testing.T) {
	cache := gpu.NewPipelineCache(gputest.NewDevice(), nil)

	id := cache.QueueRenderPipeline(testDescriptor(42))
	cache.ProcessQueue()

	assert.Nil(t, cache.GetRenderPipeline(id))
	assert.ErrorIs(t, cache.Err(id), gpu.ErrUnknownShader)

	// registering the shader requeues the failed pipeline
	cache.SetShader(42, "src")
	cache.ProcessQueue()
	assert.NotNil(t, cache.GetRenderPipeline(id))
	assert.NoError(t, cache.Err(id))
}

func TestPipelineCache_Validate(t *testing.T) {
	device := gputest.NewDevice()
	cache := gpu.NewPipelineCache(device, nil)
	errBad := errors.New("bad wgsl")
	cache.Validate = func(src string) error {
		if src == "broken" {
			return errBad
		}
		return nil
	}
	cache.SetShader(1, "broken")

	id := cache.QueueRenderPipeline(testDescriptor(1))
	cache.ProcessQueue()

	assert.ErrorIs(t, cache.Err(id), errBad)
	assert.Empty(t, device.Shaders)
}

func TestPipelineCache_OutOfRange(t *testing.T) {
	cache := gpu.NewPipelineCache(gputest.NewDevice(), nil)
	assert.Nil(t, cache.GetRenderPipeline(3))
	assert.Nil(t, cache.Descriptor(-1))
	assert.NoError(t, cache.Err(10))
}

func TestTrackedRenderPass_Dedupe(t *testing.T) {
	device := gputest.NewDevice()
	cache := gpu.NewPipelineCache(device, nil)
	cache.SetShader(1, "src")
	fill := cache.QueueRenderPipeline(testDescriptor(1))
	lineDesc := testDescriptor(1)
	lineDesc.Primitive.PolygonMode = gpu.PolygonModeLine
	line := cache.QueueRenderPipeline(lineDesc)
	cache.ProcessQueue()

	raw := &gputest.Pass{}
	pass := gpu.NewTrackedRenderPass(raw, cache)

	require.True(t, pass.SetRenderPipeline(fill))
	require.True(t, pass.SetRenderPipeline(fill))
	assert.Equal(t, gpu.PolygonModeFill, pass.PolygonMode())

	bg := &gputest.BindGroup{}
	pass.SetBindGroup(0, bg, nil)
	pass.SetBindGroup(0, bg, nil)
	pass.SetBindGroup(1, bg, []uint32{256})
	pass.SetBindGroup(1, bg, []uint32{512})

	buf := &gputest.Buffer{}
	pass.SetVertexBuffer(0, buf, 0)
	pass.SetVertexBuffer(0, buf, 0)
	pass.SetIndexBuffer(buf, gpu.IndexFormatUint16)
	pass.SetIndexBuffer(buf, gpu.IndexFormatUint16)

	require.True(t, pass.SetRenderPipeline(line))
	assert.Equal(t, gpu.PolygonModeLine, pass.PolygonMode())

	kinds := make(map[gputest.CallKind]int)
	for _, c := range raw.Calls {
		kinds[c.Kind]++
	}
	assert.Equal(t, 2, kinds[gputest.CallSetPipeline])
	assert.Equal(t, 3, kinds[gputest.CallSetBindGroup])
	assert.Equal(t, 1, kinds[gputest.CallSetVertexBuffer])
	assert.Equal(t, 1, kinds[gputest.CallSetIndexBuffer])
}

func TestTrackedRenderPass_PipelineNotReady(t *testing.T) {
	cache := gpu.NewPipelineCache(gputest.NewDevice(), nil)
	cache.SetShader(1, "src")
	id := cache.QueueRenderPipeline(testDescriptor(1))

	raw := &gputest.Pass{}
	pass := gpu.NewTrackedRenderPass(raw, cache)
	assert.False(t, pass.SetRenderPipeline(id))
	assert.Empty(t, raw.Calls)
}
