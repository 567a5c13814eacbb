package voxcube

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gekko3d/voxcube/gpu"
)

type DrawFunctionId int

// PhaseItem is one queued draw. Distance comes from Rangefinder3d.
type PhaseItem struct {
	Entity       EntityId
	Pipeline     gpu.CachedPipelineId
	DrawFunction DrawFunctionId
	Distance     float32
}

type SortOrder int

const (
	FrontToBack SortOrder = iota
	BackToFront
)

type Opaque3d struct{ PhaseItem }
type AlphaMask3d struct{ PhaseItem }
type Transparent3d struct{ PhaseItem }

func (Opaque3d) SortOrder() SortOrder      { return FrontToBack }
func (AlphaMask3d) SortOrder() SortOrder   { return FrontToBack }
func (Transparent3d) SortOrder() SortOrder { return BackToFront }

func (i Opaque3d) Item() PhaseItem      { return i.PhaseItem }
func (i AlphaMask3d) Item() PhaseItem   { return i.PhaseItem }
func (i Transparent3d) Item() PhaseItem { return i.PhaseItem }

type SortedPhaseItem interface {
	Item() PhaseItem
	SortOrder() SortOrder
}

// RenderPhase is a per-view list of draws, rebuilt every frame.
type RenderPhase[I SortedPhaseItem] struct {
	Items []I
}

func (p *RenderPhase[I]) Add(item I) {
	p.Items = append(p.Items, item)
}

// Sort orders items by distance, ties by entity id. Front to back puts the
// largest view space z first.
func (p *RenderPhase[I]) Sort() {
	slices.SortStableFunc(p.Items, func(a, b I) int {
		ia, ib := a.Item(), b.Item()
		var c int
		if a.SortOrder() == BackToFront {
			c = cmp.Compare(ia.Distance, ib.Distance)
		} else {
			c = cmp.Compare(ib.Distance, ia.Distance)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(ia.Entity, ib.Entity)
	})
}

type RenderCommandResult int

const (
	RenderCommandSuccess RenderCommandResult = iota
	RenderCommandFailure
)

// RenderContext is what a render command sees of the frame.
type RenderContext struct {
	Cmd  *Commands
	View EntityId
	Item PhaseItem
}

// TrackedPass is the pass render commands record into.
type TrackedPass = gpu.TrackedRenderPass

type RenderCommand interface {
	Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult
}

// RenderCommands runs its commands in order and stops at the first failure.
type RenderCommands []RenderCommand

func (rc RenderCommands) Render(ctx *RenderContext, pass *TrackedPass) RenderCommandResult {
	for _, c := range rc {
		if c.Render(ctx, pass) == RenderCommandFailure {
			return RenderCommandFailure
		}
	}
	return RenderCommandSuccess
}

// DrawFunctions is the registry of draw functions for one phase item type.
type DrawFunctions[I SortedPhaseItem] struct {
	draws []RenderCommand
	names map[string]DrawFunctionId
}

func NewDrawFunctions[I SortedPhaseItem]() *DrawFunctions[I] {
	return &DrawFunctions[I]{names: make(map[string]DrawFunctionId)}
}

func (d *DrawFunctions[I]) Add(name string, draw RenderCommand) DrawFunctionId {
	if _, ok := d.names[name]; ok {
		panic(fmt.Sprintf("draw function %q is already registered", name))
	}
	id := DrawFunctionId(len(d.draws))
	d.draws = append(d.draws, draw)
	d.names[name] = id
	return id
}

func (d *DrawFunctions[I]) Id(name string) (DrawFunctionId, bool) {
	id, ok := d.names[name]
	return id, ok
}

func (d *DrawFunctions[I]) Get(id DrawFunctionId) RenderCommand {
	if id < 0 || int(id) >= len(d.draws) {
		return nil
	}
	return d.draws[id]
}

func sortPhaseSystem[I SortedPhaseItem](cmd *Commands) {
	MakeQuery1[RenderPhase[I]](cmd).Map(func(eid EntityId, phase *RenderPhase[I]) bool {
		phase.Sort()
		return true
	})
}

// FrameStats counts the outcome of the last drawn frame.
type FrameStats struct {
	Frames uint64
	Views  int
	Drawn  int
	Failed int
}

func renderPhase[I SortedPhaseItem](cmd *Commands, view EntityId, phase *RenderPhase[I], draws *DrawFunctions[I], pass *TrackedPass, stats *FrameStats) {
	for _, item := range phase.Items {
		ctx := &RenderContext{Cmd: cmd, View: view, Item: item.Item()}
		draw := draws.Get(ctx.Item.DrawFunction)
		if draw == nil || draw.Render(ctx, pass) == RenderCommandFailure {
			stats.Failed++
			continue
		}
		stats.Drawn++
	}
}

type drawView struct {
	eid  EntityId
	view *ExtractedView
}

// mainPassSystem draws every view into the acquired frame, ordered by camera
// order, each in one pass: opaque, then alpha mask, then transparent.
func mainPassSystem(
	cmd *Commands,
	frames *FrameSourceResource,
	cache *gpu.PipelineCache,
	opaque *DrawFunctions[Opaque3d],
	alphaMask *DrawFunctions[AlphaMask3d],
	transparent *DrawFunctions[Transparent3d],
	stats *FrameStats,
) {
	stats.Views, stats.Drawn, stats.Failed = 0, 0, 0

	var views []drawView
	MakeQuery1[ExtractedView](cmd).Map(func(eid EntityId, view *ExtractedView) bool {
		views = append(views, drawView{eid: eid, view: view})
		return true
	})
	if len(views) == 0 {
		return
	}
	slices.SortFunc(views, func(a, b drawView) int {
		if c := cmp.Compare(a.view.Order, b.view.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.eid, b.eid)
	})

	frame, err := frames.Source.Acquire()
	if err != nil {
		cmd.Logger().Warnf("skipping frame: %v", err)
		return
	}

	for i, v := range views {
		raw, err := frame.BeginPass(&gpu.PassDescriptor{
			Label:      "main_pass_3d",
			Clear:      i == 0,
			ClearColor: v.view.ClearColor,
		})
		if err != nil {
			panic(fmt.Errorf("failed to begin main pass: %w", err))
		}
		pass := gpu.NewTrackedRenderPass(raw, cache)

		if phase := GetComponent[RenderPhase[Opaque3d]](cmd, v.eid); phase != nil {
			renderPhase(cmd, v.eid, phase, opaque, pass, stats)
		}
		if phase := GetComponent[RenderPhase[AlphaMask3d]](cmd, v.eid); phase != nil {
			renderPhase(cmd, v.eid, phase, alphaMask, pass, stats)
		}
		if phase := GetComponent[RenderPhase[Transparent3d]](cmd, v.eid); phase != nil {
			renderPhase(cmd, v.eid, phase, transparent, pass, stats)
		}

		if err := pass.End(); err != nil {
			panic(fmt.Errorf("failed to end main pass: %w", err))
		}
		stats.Views++
	}

	if err := frame.Present(); err != nil {
		cmd.Logger().Warnf("present failed: %v", err)
	}
	stats.Frames++
}
