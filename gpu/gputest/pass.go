package gputest

import (
	"slices"

	"github.com/gekko3d/voxcube/gpu"
)

type CallKind int

const (
	CallSetPipeline CallKind = iota
	CallSetBindGroup
	CallSetVertexBuffer
	CallSetIndexBuffer
	CallDraw
	CallDrawIndexed
)

// Call is one recorded render pass command.
type Call struct {
	Kind      CallKind
	Pipeline  gpu.RenderPipeline
	Index     uint32
	BindGroup gpu.BindGroup
	Offsets   []uint32
	Buffer    gpu.Buffer
	Count     uint32
}

type Pass struct {
	Desc  gpu.PassDescriptor
	Calls []Call
	Ended bool
}

func (p *Pass) SetPipeline(pipeline gpu.RenderPipeline) {
	p.Calls = append(p.Calls, Call{Kind: CallSetPipeline, Pipeline: pipeline})
}

func (p *Pass) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets []uint32) {
	p.Calls = append(p.Calls, Call{Kind: CallSetBindGroup, Index: index, BindGroup: group, Offsets: slices.Clone(dynamicOffsets)})
}

func (p *Pass) SetVertexBuffer(slot uint32, buffer gpu.Buffer, offset, size uint64) {
	p.Calls = append(p.Calls, Call{Kind: CallSetVertexBuffer, Index: slot, Buffer: buffer})
}

func (p *Pass) SetIndexBuffer(buffer gpu.Buffer, format gpu.IndexFormat, offset, size uint64) {
	p.Calls = append(p.Calls, Call{Kind: CallSetIndexBuffer, Buffer: buffer})
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Calls = append(p.Calls, Call{Kind: CallDraw, Count: vertexCount})
}

func (p *Pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Calls = append(p.Calls, Call{Kind: CallDrawIndexed, Count: indexCount})
}

func (p *Pass) End() error {
	p.Ended = true
	return nil
}

// Draws returns the draw and indexed draw calls in order.
func (p *Pass) Draws() []Call {
	var out []Call
	for _, c := range p.Calls {
		if c.Kind == CallDraw || c.Kind == CallDrawIndexed {
			out = append(out, c)
		}
	}
	return out
}

type Frame struct {
	Passes    []*Pass
	Presented bool
}

func (f *Frame) BeginPass(desc *gpu.PassDescriptor) (gpu.RenderPass, error) {
	p := &Pass{Desc: *desc}
	f.Passes = append(f.Passes, p)
	return p, nil
}

func (f *Frame) Present() error {
	f.Presented = true
	return nil
}

// FrameSource keeps every frame it handed out.
type FrameSource struct {
	Frames []*Frame
}

func (s *FrameSource) Acquire() (gpu.Frame, error) {
	f := &Frame{}
	s.Frames = append(s.Frames, f)
	return f, nil
}

// Last returns the most recent frame, or nil.
func (s *FrameSource) Last() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[len(s.Frames)-1]
}
