package gpu

import "slices"

// RenderPass records draw state and draw calls for one pass.
type RenderPass interface {
	SetPipeline(pipeline RenderPipeline)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer Buffer, offset, size uint64)
	SetIndexBuffer(buffer Buffer, format IndexFormat, offset, size uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End() error
}

// WholeSize binds a buffer from offset to its end.
const WholeSize = ^uint64(0)

type Color struct {
	R, G, B, A float64
}

type PassDescriptor struct {
	Label string
	// Clear resets color and depth; otherwise the previous contents load.
	Clear      bool
	ClearColor Color
}

// Frame is one acquired surface image.
type Frame interface {
	BeginPass(desc *PassDescriptor) (RenderPass, error)
	Present() error
}

// FrameSource hands out frames for the render world's draw stage.
type FrameSource interface {
	Acquire() (Frame, error)
}

type boundBindGroup struct {
	group   BindGroup
	offsets []uint32
}

type boundVertexBuffer struct {
	buffer Buffer
	offset uint64
}

// TrackedRenderPass drops redundant state changes and remembers the
// polygon mode of the bound pipeline so draw commands can pick the edge
// index list for line pipelines.
type TrackedRenderPass struct {
	pass        RenderPass
	cache       *PipelineCache
	pipeline    RenderPipeline
	polygonMode PolygonMode
	bindGroups  map[uint32]boundBindGroup
	vertex      map[uint32]boundVertexBuffer
	index       Buffer
}

func NewTrackedRenderPass(pass RenderPass, cache *PipelineCache) *TrackedRenderPass {
	return &TrackedRenderPass{
		pass:       pass,
		cache:      cache,
		bindGroups: make(map[uint32]boundBindGroup),
		vertex:     make(map[uint32]boundVertexBuffer),
	}
}

// SetRenderPipeline binds a cached pipeline, returning false if it is not
// ready.
func (t *TrackedRenderPass) SetRenderPipeline(id CachedPipelineId) bool {
	pipeline := t.cache.GetRenderPipeline(id)
	if pipeline == nil {
		return false
	}
	if pipeline == t.pipeline {
		return true
	}
	t.pipeline = pipeline
	t.polygonMode = t.cache.Descriptor(id).Primitive.PolygonMode
	t.pass.SetPipeline(pipeline)
	return true
}

func (t *TrackedRenderPass) PolygonMode() PolygonMode {
	return t.polygonMode
}

func (t *TrackedRenderPass) SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32) {
	if b, ok := t.bindGroups[index]; ok && b.group == group && slices.Equal(b.offsets, dynamicOffsets) {
		return
	}
	t.bindGroups[index] = boundBindGroup{group: group, offsets: slices.Clone(dynamicOffsets)}
	t.pass.SetBindGroup(index, group, dynamicOffsets)
}

func (t *TrackedRenderPass) SetVertexBuffer(slot uint32, buffer Buffer, offset uint64) {
	if b, ok := t.vertex[slot]; ok && b.buffer == buffer && b.offset == offset {
		return
	}
	t.vertex[slot] = boundVertexBuffer{buffer: buffer, offset: offset}
	t.pass.SetVertexBuffer(slot, buffer, offset, WholeSize)
}

func (t *TrackedRenderPass) SetIndexBuffer(buffer Buffer, format IndexFormat) {
	if t.index == buffer {
		return
	}
	t.index = buffer
	t.pass.SetIndexBuffer(buffer, format, 0, WholeSize)
}

func (t *TrackedRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	t.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (t *TrackedRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	t.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (t *TrackedRenderPass) End() error {
	return t.pass.End()
}
