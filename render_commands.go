package voxcube

// SetItemPipeline binds the item's cached pipeline. It fails while the
// pipeline is still compiling or failed to compile.
type SetItemPipeline struct{}

func (SetItemPipeline) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	if !pass.SetRenderPipeline(ctx.Item.Pipeline) {
		return RenderCommandFailure
	}
	return RenderCommandSuccess
}

// SetMeshViewBindGroup binds the view uniforms.
type SetMeshViewBindGroup struct {
	Index uint32
}

func (c SetMeshViewBindGroup) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	view := GetComponent[ViewBindGroup](ctx.Cmd, ctx.View)
	if view == nil {
		return RenderCommandFailure
	}
	pass.SetBindGroup(c.Index, view.BindGroup, nil)
	return RenderCommandSuccess
}

// SetMeshBindGroup binds the mesh uniform buffer at the item's offset.
type SetMeshBindGroup struct {
	Index uint32
}

func (c SetMeshBindGroup) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	index := GetComponent[DynamicUniformIndex](ctx.Cmd, ctx.Item.Entity)
	uniforms := Resource[MeshUniforms](ctx.Cmd)
	if index == nil || uniforms == nil || uniforms.BindGroup == nil {
		return RenderCommandFailure
	}
	pass.SetBindGroup(c.Index, uniforms.BindGroup, []uint32{index.Offset})
	return RenderCommandSuccess
}
