package voxcube

import (
	"fmt"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/shaders"
)

// VoxelModule renders Voxel entities. It needs RenderModule installed first.
type VoxelModule struct {
	Phase VoxelPhase
}

func (m VoxelModule) Install(app *App, cmd *Commands) {
	render := mustRenderApp(app)
	renderCmd := render.Commands()

	AssetModule[VoxelData]{}.Install(app, cmd)
	registerVoxelHooks(app)

	meshes := Resource[Assets[gpu.Mesh]](cmd)
	cmd.AddResources(&VoxelMesh{Mesh: meshes.Add(*gpu.NewCube(1.0))})

	device := Resource[RenderDevice](renderCmd)
	cache := Resource[gpu.PipelineCache](renderCmd)
	cache.SetShader(shaders.VoxelHandle, shaders.VoxelWGSL)
	pipeline, err := NewVoxelPipeline(device, Resource[gpu.MeshPipeline](renderCmd))
	if err != nil {
		panic(fmt.Errorf("failed to install voxel rendering: %w", err))
	}
	render.addResources(
		pipeline,
		&VoxelMesh{},
		&VoxelSettings{Phase: m.Phase},
	)
	Resource[DrawFunctions[AlphaMask3d]](renderCmd).Add(drawVoxelsName, DrawVoxels)
	Resource[DrawFunctions[Transparent3d]](renderCmd).Add(drawVoxelsName, DrawVoxels)

	RenderAssetModule[VoxelData, *VoxelMeta]{Preparer: VoxelMetaPreparer{}}.Install(app, cmd)

	render.UseSystem(System(extractVoxelMeshSystem).InStage(RenderExtract))
	render.UseSystem(System(extractVoxelsSystem).InStage(RenderExtract))
	render.UseSystem(System(queueVoxelsSystem).InStage(RenderQueue))

	app.Logger().Debugf("voxel rendering installed, phase %s", m.Phase)
}
