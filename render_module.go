package voxcube

import (
	"fmt"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/shaders"
)

// RenderDevice is the render world's handle to the GPU.
type RenderDevice struct {
	gpu.Device
}

type FrameSourceResource struct {
	Source gpu.FrameSource
}

// MainWorld gives RenderExtract systems access to the main app. It is only
// present in the render world while extraction runs.
type MainWorld struct {
	app *App
}

func (w *MainWorld) Commands() *Commands {
	return w.app.Commands()
}

func mustRenderApp(app *App) *App {
	if app.render == nil {
		panic("RenderModule must be installed before render world modules")
	}
	return app.render
}

// appLogger resolves the app logger on every call so modules may install
// logging in any order.
type appLogger struct {
	app *App
}

func (l appLogger) Debugf(format string, args ...any) { l.app.Logger().Debugf(format, args...) }
func (l appLogger) Errorf(format string, args ...any) { l.app.Logger().Errorf(format, args...) }

// RenderModule creates the render sub-app and the shared mesh rendering
// machinery: pipeline cache, mesh pipeline, views, mesh uniforms and phases.
type RenderModule struct {
	Device      gpu.Device
	Frames      gpu.FrameSource
	ColorFormat gpu.TextureFormat
	// ValidateShaders compiles WGSL with naga before creating modules.
	ValidateShaders bool
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	render := newApp(renderStages)
	render.parent = app
	app.render = render

	cache := gpu.NewPipelineCache(m.Device, appLogger{app: app})
	if m.ValidateShaders {
		cache.Validate = shaders.Validate
	}
	cache.SetShader(shaders.MeshHandle, shaders.MeshWGSL)

	meshPipeline, err := gpu.NewMeshPipeline(m.Device, shaders.MeshHandle, m.ColorFormat)
	if err != nil {
		panic(fmt.Errorf("failed to create mesh pipeline: %w", err))
	}

	if Resource[Msaa](cmd) == nil {
		msaa := DefaultMsaa()
		cmd.AddResources(&msaa)
	}

	render.addResources(
		&RenderDevice{Device: m.Device},
		&FrameSourceResource{Source: m.Frames},
		cache,
		meshPipeline,
		NewViewUniforms(),
		&MeshUniforms{},
		NewDrawFunctions[Opaque3d](),
		NewDrawFunctions[AlphaMask3d](),
		NewDrawFunctions[Transparent3d](),
		&FrameStats{},
		&Msaa{},
	)

	AssetModule[gpu.Mesh]{}.Install(app, cmd)
	RenderAssetModule[gpu.Mesh, *gpu.GpuMesh]{Preparer: MeshPreparer{}}.Install(app, cmd)

	render.UseSystem(System(extractMsaaSystem).InStage(RenderExtract))
	render.UseSystem(System(extractCamerasSystem).InStage(RenderExtract))

	render.UseSystem(System(prepareViewUniformsSystem).InStage(RenderPrepare))
	render.UseSystem(System(prepareMeshUniformsSystem).InStage(RenderPrepare))

	render.UseSystem(System(sortPhaseSystem[Opaque3d]).InStage(RenderPhaseSort))
	render.UseSystem(System(sortPhaseSystem[AlphaMask3d]).InStage(RenderPhaseSort))
	render.UseSystem(System(sortPhaseSystem[Transparent3d]).InStage(RenderPhaseSort))

	// pipelines queued this frame must exist before the pass binds them
	render.UseSystem(System(processPipelinesSystem).InStage(RenderDraw))
	render.UseSystem(System(mainPassSystem).InStage(RenderDraw))

	render.UseSystem(System(cleanupRenderWorldSystem).InStage(RenderCleanup))
}

// MeshPreparer uploads meshes for RenderAssets.
type MeshPreparer struct{}

func (MeshPreparer) PrepareAsset(mesh *gpu.Mesh, cmd *Commands) (*gpu.GpuMesh, error) {
	device := Resource[RenderDevice](cmd)
	gpuMesh, err := gpu.PrepareMesh(device, mesh)
	if err != nil {
		return nil, fmt.Errorf("failed to upload mesh: %w", err)
	}
	return gpuMesh, nil
}

func processPipelinesSystem(cache *gpu.PipelineCache) {
	cache.ProcessQueue()
}

// cleanupRenderWorldSystem drops every render entity. Extraction rebuilds
// them next frame, so nothing stale outlives a frame.
func cleanupRenderWorldSystem(cmd *Commands) {
	cmd.app.ecs.clear()
}
