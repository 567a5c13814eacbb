// Package gputest provides an in-memory gpu.Device that records every
// resource and draw call, for running the render world without a GPU.
package gputest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/voxcube/gpu"
)

var ErrInjected = errors.New("injected device failure")

type Buffer struct {
	label    string
	Contents []byte
	Usage    gpu.BufferUsage
	Released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return uint64(len(b.Contents)) }
func (b *Buffer) Release()      { b.Released = true }

type BindGroupLayout struct {
	Desc     gpu.BindGroupLayoutDescriptor
	Released bool
}

func (l *BindGroupLayout) Release() { l.Released = true }

type BindGroup struct {
	Desc     gpu.BindGroupDescriptor
	Released bool
}

func (g *BindGroup) Release() { g.Released = true }

type ShaderModule struct {
	Desc     gpu.ShaderModuleDescriptor
	Released bool
}

func (m *ShaderModule) Release() { m.Released = true }

type RenderPipeline struct {
	Desc     *gpu.RenderPipelineDescriptor
	Vertex   *ShaderModule
	Fragment *ShaderModule
	Released bool
}

func (p *RenderPipeline) Release() { p.Released = true }

// Device records created resources. Set FailBuffers or FailPipelines to
// make the matching calls return ErrInjected.
type Device struct {
	Buffers    []*Buffer
	BindGroups []*BindGroup
	Layouts    []*BindGroupLayout
	Shaders    []*ShaderModule
	Pipelines  []*RenderPipeline
	Writes     int

	FailBuffers   bool
	FailPipelines bool
}

func NewDevice() *Device {
	return &Device{}
}

func (d *Device) CreateBufferInit(desc *gpu.BufferInitDescriptor) (gpu.Buffer, error) {
	if d.FailBuffers {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, ErrInjected)
	}
	b := &Buffer{label: desc.Label, Contents: slices.Clone(desc.Contents), Usage: desc.Usage}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("foreign buffer %T", buf)
	}
	end := offset + uint64(len(data))
	if end > uint64(len(b.Contents)) {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %q (%d bytes)", len(data), offset, b.label, len(b.Contents))
	}
	copy(b.Contents[offset:end], data)
	d.Writes++
	return nil
}

func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	l := &BindGroupLayout{Desc: *desc}
	d.Layouts = append(d.Layouts, l)
	return l, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	g := &BindGroup{Desc: *desc}
	d.BindGroups = append(d.BindGroups, g)
	return g, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	m := &ShaderModule{Desc: *desc}
	d.Shaders = append(d.Shaders, m)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor, vertex, fragment gpu.ShaderModule) (gpu.RenderPipeline, error) {
	if d.FailPipelines {
		return nil, fmt.Errorf("create pipeline %q: %w", desc.Label, ErrInjected)
	}
	p := &RenderPipeline{Desc: desc}
	p.Vertex, _ = vertex.(*ShaderModule)
	p.Fragment, _ = fragment.(*ShaderModule)
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

// BuffersLabelled returns every buffer created with label.
func (d *Device) BuffersLabelled(label string) []*Buffer {
	var out []*Buffer
	for _, b := range d.Buffers {
		if b.label == label {
			out = append(out, b)
		}
	}
	return out
}

// BindGroupsLabelled returns every bind group created with label.
func (d *Device) BindGroupsLabelled(label string) []*BindGroup {
	var out []*BindGroup
	for _, g := range d.BindGroups {
		if g.Desc.Label == label {
			out = append(out, g)
		}
	}
	return out
}
