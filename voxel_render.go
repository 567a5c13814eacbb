package voxcube

import (
	"fmt"

	"github.com/gekko3d/voxcube/gpu"
)

// VoxelMeta is the GPU form of a VoxelData: the color buffer and the bind
// group exposing it at group 2.
type VoxelMeta struct {
	Buffer    gpu.Buffer
	BindGroup gpu.BindGroup
}

func (m *VoxelMeta) Release() {
	m.BindGroup.Release()
	m.Buffer.Release()
}

type VoxelMetaPreparer struct{}

func (VoxelMetaPreparer) PrepareAsset(data *VoxelData, cmd *Commands) (*VoxelMeta, error) {
	device := Resource[RenderDevice](cmd)
	pipeline := Resource[VoxelPipeline](cmd)

	buffer, err := device.CreateBufferInit(&gpu.BufferInitDescriptor{
		Label:    "voxel data buffer",
		Contents: data.Bytes(),
		Usage:    gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create voxel data buffer: %w", err)
	}
	bindGroup, err := device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:  "voxel data bind group",
		Layout: pipeline.VoxelLayout,
		Entries: []gpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buffer,
			Size:    VoxelDataSize,
		}},
	})
	if err != nil {
		buffer.Release()
		return nil, fmt.Errorf("failed to create voxel data bind group: %w", err)
	}
	return &VoxelMeta{Buffer: buffer, BindGroup: bindGroup}, nil
}

// VoxelMesh is the cube every voxel entity draws.
type VoxelMesh struct {
	Mesh Handle[gpu.Mesh]
}

type VoxelPhase int

const (
	VoxelPhaseAlphaMask VoxelPhase = iota
	VoxelPhaseTransparent
)

func (p VoxelPhase) String() string {
	if p == VoxelPhaseTransparent {
		return "transparent"
	}
	return "alpha_mask"
}

// VoxelSettings selects the phase voxels are queued into.
type VoxelSettings struct {
	Phase VoxelPhase
}

type VoxelRenderAssets = RenderAssets[VoxelData, *VoxelMeta]
type MeshRenderAssets = RenderAssets[gpu.Mesh, *gpu.GpuMesh]

type extractedVoxel struct {
	eid     EntityId
	voxel   Voxel
	uniform MeshUniform
}

// extractVoxelsSystem copies visible voxel entities into the render world.
// Shadow casters and non-casters are spawned as separate batches so only the
// latter get NotShadowCaster.
func extractVoxelsSystem(cmd *Commands, world *MainWorld) {
	var casters, nonCasters []extractedVoxel
	MakeQuery5[Voxel, GlobalTransform, ComputedVisibility, NotShadowReceiver, NotShadowCaster](world.Commands()).Map(
		func(eid EntityId, voxel *Voxel, tr *GlobalTransform, vis *ComputedVisibility, noReceive *NotShadowReceiver, noCast *NotShadowCaster) bool {
			if !vis.IsVisible() {
				return true
			}
			flags := MeshFlagShadowReceiver
			if noReceive != nil {
				flags &^= MeshFlagShadowReceiver
			}
			e := extractedVoxel{eid: eid, voxel: *voxel, uniform: NewMeshUniform(tr.Matrix(), flags)}
			if noCast != nil {
				nonCasters = append(nonCasters, e)
			} else {
				casters = append(casters, e)
			}
			return true
		}, NotShadowReceiver{}, NotShadowCaster{})

	for _, e := range casters {
		cmd.InsertOrSpawn(e.eid, e.voxel, e.uniform)
	}
	for _, e := range nonCasters {
		cmd.InsertOrSpawn(e.eid, e.voxel, e.uniform, NotShadowCaster{})
	}
}

func extractVoxelMeshSystem(mesh *VoxelMesh, world *MainWorld) {
	if main := Resource[VoxelMesh](world.Commands()); main != nil {
		*mesh = *main
	}
}

func queueVoxelsSystem(
	cmd *Commands,
	cache *gpu.PipelineCache,
	pipeline *VoxelPipeline,
	msaa *Msaa,
	voxelMesh *VoxelMesh,
	meshes *MeshRenderAssets,
	settings *VoxelSettings,
	alphaMaskDraws *DrawFunctions[AlphaMask3d],
	transparentDraws *DrawFunctions[Transparent3d],
) {
	gpuMesh, ok := meshes.Get(voxelMesh.Mesh)
	if !ok {
		return
	}
	transparent := settings.Phase == VoxelPhaseTransparent
	var drawFunction DrawFunctionId
	if transparent {
		drawFunction, ok = transparentDraws.Id(drawVoxelsName)
	} else {
		drawFunction, ok = alphaMaskDraws.Id(drawVoxelsName)
	}
	if !ok {
		return
	}

	MakeQuery4[ExtractedView, VisibleEntities, RenderPhase[AlphaMask3d], RenderPhase[Transparent3d]](cmd).Map(
		func(viewId EntityId, view *ExtractedView, visible *VisibleEntities, alphaMask *RenderPhase[AlphaMask3d], transparentPhase *RenderPhase[Transparent3d]) bool {
			rangefinder := NewRangefinder3d(view.Transform)
			key := gpu.MeshPipelineKeyFromMsaaSamples(msaa.Samples) |
				gpu.MeshPipelineKeyFromHDR(view.HDR) |
				gpu.MeshPipelineKeyFromPrimitiveTopology(gpuMesh.Topology)
			if transparent {
				key |= gpu.MeshPipelineKeyTransparentMainPass
			}

			for _, eid := range visible.Entities {
				uniform := GetComponent[MeshUniform](cmd, eid)
				if uniform == nil || !HasComponent[Voxel](cmd, eid) {
					continue
				}
				id, err := pipeline.Specialized.Specialize(cache, pipeline, key, gpuMesh.Layout)
				if err != nil {
					cmd.Logger().Errorf("voxel entity %d: %v", eid, err)
					continue
				}
				item := PhaseItem{
					Entity:       eid,
					Pipeline:     id,
					DrawFunction: drawFunction,
					Distance:     rangefinder.Distance(uniform.Transform),
				}
				if transparent {
					transparentPhase.Add(Transparent3d{item})
				} else {
					alphaMask.Add(AlphaMask3d{item})
				}
			}
			return true
		})
}

const drawVoxelsName = "draw_voxels"

// DrawVoxels binds view, mesh and voxel data and draws the cube.
var DrawVoxels = RenderCommands{
	SetItemPipeline{},
	SetMeshViewBindGroup{Index: 0},
	SetMeshBindGroup{Index: 1},
	SetVoxelBindGroup{Index: 2},
	DrawVoxel{},
}

// SetVoxelBindGroup binds the prepared VoxelMeta of the item's Voxel.
type SetVoxelBindGroup struct {
	Index uint32
}

func (c SetVoxelBindGroup) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	voxel := GetComponent[Voxel](ctx.Cmd, ctx.Item.Entity)
	metas := Resource[VoxelRenderAssets](ctx.Cmd)
	if voxel == nil || metas == nil {
		return RenderCommandFailure
	}
	meta, ok := metas.Get(voxel.Data)
	if !ok {
		return RenderCommandFailure
	}
	pass.SetBindGroup(c.Index, meta.BindGroup, nil)
	return RenderCommandSuccess
}

// DrawVoxel draws the shared cube. Line pipelines draw its edge list.
type DrawVoxel struct{}

func (DrawVoxel) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	voxelMesh := Resource[VoxelMesh](ctx.Cmd)
	meshes := Resource[MeshRenderAssets](ctx.Cmd)
	if voxelMesh == nil || meshes == nil {
		return RenderCommandFailure
	}
	mesh, ok := meshes.Get(voxelMesh.Mesh)
	if !ok {
		return RenderCommandFailure
	}

	pass.SetVertexBuffer(0, mesh.VertexBuffer, 0)
	index := mesh.Index
	if pass.PolygonMode() == gpu.PolygonModeLine && mesh.Edges != nil {
		index = mesh.Edges
	}
	if index == nil {
		pass.Draw(mesh.VertexCount, 1, 0, 0)
		return RenderCommandSuccess
	}
	pass.SetIndexBuffer(index.Buffer, index.Format)
	pass.DrawIndexed(index.Count, 1, 0, 0, 0)
	return RenderCommandSuccess
}
