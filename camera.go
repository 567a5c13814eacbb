package voxcube

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type PerspectiveProjection struct {
	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32
}

func DefaultPerspective() PerspectiveProjection {
	return PerspectiveProjection{
		FovY:   mgl32.DegToRad(45),
		Aspect: 1,
		Near:   0.1,
		Far:    1000,
	}
}

// Matrix is the GL style projection with clip z in [-1, 1]. Culling works on
// this one.
func (p PerspectiveProjection) Matrix() mgl32.Mat4 {
	return mgl32.Perspective(p.FovY, p.Aspect, p.Near, p.Far)
}

// zeroToOneDepth remaps clip z from [-w, w] to [0, w].
var zeroToOneDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// GPUMatrix is Matrix with WebGPU's [0, 1] depth range.
func (p PerspectiveProjection) GPUMatrix() mgl32.Mat4 {
	return zeroToOneDepth.Mul4(p.Matrix())
}

type Camera3d struct {
	Projection PerspectiveProjection
	// Order sorts cameras; lower orders render first.
	Order      int
	HDR        bool
	ClearColor gpu.Color
	Inactive   bool
}

func (c Camera3d) IsActive() bool {
	return !c.Inactive
}

// Camera3dBundle returns the components a camera entity needs.
func Camera3dBundle(camera Camera3d, transform TransformComponent) []any {
	return []any{
		camera,
		transform,
		GlobalTransform(transform),
		VisibleEntities{},
	}
}

// LookAt returns a transform at eye facing target.
func LookAt(eye, target, up mgl32.Vec3) TransformComponent {
	view := mgl32.LookAtV(eye, target, up)
	return TransformComponent{
		Position: eye,
		Rotation: mgl32.Mat4ToQuat(view.Inv()).Normalize(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Msaa is the sample count of the main pass. Only 1 and 4 are supported.
type Msaa struct {
	Samples uint32
}

func DefaultMsaa() Msaa {
	return Msaa{Samples: 4}
}

// ExtractedView is a camera in the render world.
type ExtractedView struct {
	Projection mgl32.Mat4
	Transform  GlobalTransform
	HDR        bool
	ClearColor gpu.Color
	Order      int
}

func (v ExtractedView) ViewProj() mgl32.Mat4 {
	return v.Projection.Mul4(v.Transform.Matrix().Inv())
}

// Rangefinder3d measures view space depth. Larger values are closer to the
// camera; everything in front of it is negative.
type Rangefinder3d struct {
	inverseViewRow2 mgl32.Vec4
}

func NewRangefinder3d(view GlobalTransform) Rangefinder3d {
	inv := view.Matrix().Inv()
	return Rangefinder3d{
		inverseViewRow2: mgl32.Vec4{inv.At(2, 0), inv.At(2, 1), inv.At(2, 2), inv.At(2, 3)},
	}
}

// Distance returns the view space z of the model's origin.
func (r Rangefinder3d) Distance(model mgl32.Mat4) float32 {
	return r.inverseViewRow2.Dot(model.Col(3))
}

// ViewBindGroup is the group 0 binding of a view.
type ViewBindGroup struct {
	BindGroup gpu.BindGroup
}

type viewBinding struct {
	buffer    gpu.Buffer
	bindGroup gpu.BindGroup
	seen      bool
}

// ViewUniforms owns one uniform buffer per view, reused across frames.
type ViewUniforms struct {
	views map[EntityId]*viewBinding
}

func NewViewUniforms() *ViewUniforms {
	return &ViewUniforms{views: make(map[EntityId]*viewBinding)}
}

func (u *ViewUniforms) Len() int {
	return len(u.views)
}

func viewUniformBytes(view *ExtractedView) []byte {
	buf := make([]byte, 0, gpu.ViewUniformSize)
	buf = appendMat4(buf, view.ViewProj())
	buf = appendMat4(buf, view.Transform.Matrix())
	pos := view.Transform.Position
	for _, f := range []float32{pos.X(), pos.Y(), pos.Z(), 0} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func appendMat4(buf []byte, m mgl32.Mat4) []byte {
	for _, f := range m {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func extractCamerasSystem(cmd *Commands, world *MainWorld) {
	main := world.Commands()
	MakeQuery3[Camera3d, GlobalTransform, VisibleEntities](main).Map(func(eid EntityId, camera *Camera3d, tr *GlobalTransform, visible *VisibleEntities) bool {
		if !camera.IsActive() {
			return true
		}
		cmd.InsertOrSpawn(eid,
			ExtractedView{
				Projection: camera.Projection.GPUMatrix(),
				Transform:  *tr,
				HDR:        camera.HDR,
				ClearColor: camera.ClearColor,
				Order:      camera.Order,
			},
			VisibleEntities{Entities: slices.Clone(visible.Entities)},
			RenderPhase[Opaque3d]{},
			RenderPhase[AlphaMask3d]{},
			RenderPhase[Transparent3d]{},
		)
		return true
	})
}

func extractMsaaSystem(msaa *Msaa, world *MainWorld) {
	if main := Resource[Msaa](world.Commands()); main != nil {
		*msaa = *main
	}
}

func prepareViewUniformsSystem(cmd *Commands, device *RenderDevice, meshPipeline *gpu.MeshPipeline, uniforms *ViewUniforms) {
	for _, b := range uniforms.views {
		b.seen = false
	}

	MakeQuery1[ExtractedView](cmd).Map(func(eid EntityId, view *ExtractedView) bool {
		data := viewUniformBytes(view)
		b, ok := uniforms.views[eid]
		if ok {
			if err := device.WriteBuffer(b.buffer, 0, data); err != nil {
				panic(fmt.Errorf("failed to write view uniform: %w", err))
			}
		} else {
			b = createViewBinding(device, meshPipeline, data)
			uniforms.views[eid] = b
		}
		b.seen = true
		cmd.AddComponents(eid, ViewBindGroup{BindGroup: b.bindGroup})
		return true
	})

	for eid, b := range uniforms.views {
		if !b.seen {
			b.bindGroup.Release()
			b.buffer.Release()
			delete(uniforms.views, eid)
		}
	}
}

func createViewBinding(device *RenderDevice, meshPipeline *gpu.MeshPipeline, data []byte) *viewBinding {
	buffer, err := device.CreateBufferInit(&gpu.BufferInitDescriptor{
		Label:    "view uniform buffer",
		Contents: data,
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Errorf("failed to create view uniform buffer: %w", err))
	}
	bindGroup, err := device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:  "mesh view bind group",
		Layout: meshPipeline.ViewLayout,
		Entries: []gpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buffer,
			Size:    gpu.ViewUniformSize,
		}},
	})
	if err != nil {
		panic(fmt.Errorf("failed to create view bind group: %w", err))
	}
	return &viewBinding{buffer: buffer, bindGroup: bindGroup}
}
