package voxcube

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type MeshFlags uint32

const (
	MeshFlagShadowReceiver MeshFlags = 1 << 0
)

// NotShadowCaster keeps an entity out of shadow passes.
type NotShadowCaster struct{}

// NotShadowReceiver clears MeshFlagShadowReceiver.
type NotShadowReceiver struct{}

// MeshUniform is the per-entity group 1 data.
type MeshUniform struct {
	Transform             mgl32.Mat4
	InverseTransposeModel mgl32.Mat4
	Flags                 MeshFlags
}

func NewMeshUniform(model mgl32.Mat4, flags MeshFlags) MeshUniform {
	return MeshUniform{
		Transform:             model,
		InverseTransposeModel: model.Inv().Transpose(),
		Flags:                 flags,
	}
}

func (u *MeshUniform) appendBytes(buf []byte) []byte {
	buf = appendMat4(buf, u.Transform)
	buf = appendMat4(buf, u.InverseTransposeModel)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(u.Flags))
	return buf
}

// DynamicUniformIndex is the byte offset of an entity's MeshUniform in the
// shared mesh uniform buffer.
type DynamicUniformIndex struct {
	Offset uint32
}

// MeshUniforms packs every extracted MeshUniform into one dynamic uniform
// buffer. The buffer grows but never shrinks.
type MeshUniforms struct {
	buffer    gpu.Buffer
	capacity  uint64
	BindGroup gpu.BindGroup
	scratch   []byte
}

func (u *MeshUniforms) Capacity() uint64 {
	return u.capacity
}

func prepareMeshUniformsSystem(cmd *Commands, device *RenderDevice, meshPipeline *gpu.MeshPipeline, uniforms *MeshUniforms) {
	var ids []EntityId
	MakeQuery1[MeshUniform](cmd).Map(func(eid EntityId, u *MeshUniform) bool {
		ids = append(ids, eid)
		return true
	})
	if len(ids) == 0 {
		return
	}
	slices.Sort(ids)

	size := uint64(len(ids)) * gpu.MeshUniformStride
	data := slices.Grow(uniforms.scratch[:0], int(size))
	for i, eid := range ids {
		offset := uint64(i) * gpu.MeshUniformStride
		data = GetComponent[MeshUniform](cmd, eid).appendBytes(data)
		data = append(data, make([]byte, int(offset+gpu.MeshUniformStride)-len(data))...)
		cmd.AddComponents(eid, DynamicUniformIndex{Offset: uint32(offset)})
	}
	uniforms.scratch = data

	if size <= uniforms.capacity {
		if err := device.WriteBuffer(uniforms.buffer, 0, data); err != nil {
			panic(fmt.Errorf("failed to write mesh uniforms: %w", err))
		}
		return
	}

	if uniforms.buffer != nil {
		uniforms.BindGroup.Release()
		uniforms.buffer.Release()
	}
	buffer, err := device.CreateBufferInit(&gpu.BufferInitDescriptor{
		Label:    "mesh uniform buffer",
		Contents: data,
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Errorf("failed to create mesh uniform buffer: %w", err))
	}
	bindGroup, err := device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:  "mesh bind group",
		Layout: meshPipeline.MeshLayout,
		Entries: []gpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buffer,
			Size:    gpu.MeshUniformSize,
		}},
	})
	if err != nil {
		panic(fmt.Errorf("failed to create mesh bind group: %w", err))
	}
	uniforms.buffer = buffer
	uniforms.BindGroup = bindGroup
	uniforms.capacity = size
}
