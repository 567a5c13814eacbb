package voxcube

import (
	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/shaders"
)

// VoxelWireframeConfig toggles the overlay for every voxel entity. When
// Global is false only entities with VoxelWireframe get one.
type VoxelWireframeConfig struct {
	Global bool
}

// VoxelWireframeModule draws voxel entities a second time as lines into
// Opaque3d. Install it after VoxelModule.
type VoxelWireframeModule struct {
	Global bool
}

func (m VoxelWireframeModule) Install(app *App, cmd *Commands) {
	render := mustRenderApp(app)
	renderCmd := render.Commands()

	if Resource[VoxelWireframeConfig](cmd) == nil {
		cmd.AddResources(&VoxelWireframeConfig{Global: m.Global})
	}

	voxel := Resource[VoxelPipeline](renderCmd)
	if voxel == nil {
		panic("VoxelModule must be installed before VoxelWireframeModule")
	}
	Resource[gpu.PipelineCache](renderCmd).SetShader(shaders.WireframeHandle, shaders.WireframeWGSL)
	render.addResources(
		NewWireframePipeline(voxel),
		&VoxelWireframeConfig{},
	)
	Resource[DrawFunctions[Opaque3d]](renderCmd).Add(drawWireframesName, DrawWireframes)

	render.UseSystem(System(extractWireframeConfigSystem).InStage(RenderExtract))
	render.UseSystem(System(extractWireframesSystem).InStage(RenderExtract))
	render.UseSystem(System(queueWireframesSystem).InStage(RenderQueue))
}

const drawWireframesName = "draw_wireframes"

// DrawWireframes is DrawVoxels bound to the line pipeline.
var DrawWireframes = RenderCommands{
	SetItemPipeline{},
	SetMeshViewBindGroup{Index: 0},
	SetMeshBindGroup{Index: 1},
	SetVoxelBindGroup{Index: 2},
	DrawVoxel{},
}

func extractWireframeConfigSystem(config *VoxelWireframeConfig, world *MainWorld) {
	if main := Resource[VoxelWireframeConfig](world.Commands()); main != nil {
		*config = *main
	}
}

func extractWireframesSystem(cmd *Commands, world *MainWorld) {
	var marked []EntityId
	MakeQuery2[VoxelWireframe, ComputedVisibility](world.Commands()).WithTypes(Voxel{}).Map(func(eid EntityId, _ *VoxelWireframe, vis *ComputedVisibility) bool {
		if vis.IsVisible() {
			marked = append(marked, eid)
		}
		return true
	})
	for _, eid := range marked {
		cmd.InsertOrSpawn(eid, VoxelWireframe{})
	}
}

func queueWireframesSystem(
	cmd *Commands,
	cache *gpu.PipelineCache,
	pipeline *WireframePipeline,
	config *VoxelWireframeConfig,
	msaa *Msaa,
	voxelMesh *VoxelMesh,
	meshes *MeshRenderAssets,
	opaqueDraws *DrawFunctions[Opaque3d],
) {
	gpuMesh, ok := meshes.Get(voxelMesh.Mesh)
	if !ok {
		return
	}
	drawFunction, ok := opaqueDraws.Id(drawWireframesName)
	if !ok {
		return
	}

	MakeQuery3[ExtractedView, VisibleEntities, RenderPhase[Opaque3d]](cmd).Map(func(viewId EntityId, view *ExtractedView, visible *VisibleEntities, opaque *RenderPhase[Opaque3d]) bool {
		rangefinder := NewRangefinder3d(view.Transform)
		key := gpu.MeshPipelineKeyFromMsaaSamples(msaa.Samples) |
			gpu.MeshPipelineKeyFromHDR(view.HDR) |
			gpu.MeshPipelineKeyFromPrimitiveTopology(gpuMesh.Topology)

		for _, eid := range visible.Entities {
			uniform := GetComponent[MeshUniform](cmd, eid)
			if uniform == nil || !HasComponent[Voxel](cmd, eid) {
				continue
			}
			if !config.Global && !HasComponent[VoxelWireframe](cmd, eid) {
				continue
			}
			id, err := pipeline.Specialized.Specialize(cache, pipeline, key, gpuMesh.Layout)
			if err != nil {
				cmd.Logger().Errorf("wireframe entity %d: %v", eid, err)
				continue
			}
			opaque.Add(Opaque3d{PhaseItem{
				Entity:       eid,
				Pipeline:     id,
				DrawFunction: drawFunction,
				Distance:     rangefinder.Distance(uniform.Transform),
			}})
		}
		return true
	})
}
