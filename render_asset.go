package voxcube

import (
	"errors"
	"fmt"
)

// ErrRetryNextUpdate tells the render asset system to try preparing the
// asset again on the next frame.
var ErrRetryNextUpdate = errors.New("render asset not ready, retry next update")

// RenderAssetPreparer turns an extracted asset into its GPU form. cmd is the
// render world.
type RenderAssetPreparer[A, P any] interface {
	PrepareAsset(asset *A, cmd *Commands) (P, error)
}

type releaser interface {
	Release()
}

type extractedAsset[A any] struct {
	id    AssetId
	asset A
}

// RenderAssets is the render world cache of prepared assets, keyed by the
// main world asset id.
type RenderAssets[A, P any] struct {
	preparer RenderAssetPreparer[A, P]
	reader   AssetEventReader[A]
	prepared map[AssetId]P

	extracted []extractedAsset[A]
	removed   []AssetId
	retry     []extractedAsset[A]

	// Prepares counts successful preparations.
	Prepares int
}

func NewRenderAssets[A, P any](preparer RenderAssetPreparer[A, P]) *RenderAssets[A, P] {
	return &RenderAssets[A, P]{
		preparer: preparer,
		prepared: make(map[AssetId]P),
	}
}

func (r *RenderAssets[A, P]) Get(h Handle[A]) (P, bool) {
	p, ok := r.prepared[h.Id]
	return p, ok
}

func (r *RenderAssets[A, P]) Len() int {
	return len(r.prepared)
}

// extract copies created and modified assets out of the main world. Removed
// ids are remembered so prepare can release their GPU form.
func (r *RenderAssets[A, P]) extract(assets *Assets[A]) {
	changed := make(map[AssetId]struct{})
	for _, ev := range r.reader.Read(assets) {
		switch ev.Kind {
		case AssetCreated, AssetModified:
			changed[ev.Id] = struct{}{}
		case AssetRemoved:
			delete(changed, ev.Id)
			r.removed = append(r.removed, ev.Id)
		}
	}
	for _, ev := range assets.Events() {
		if _, ok := changed[ev.Id]; !ok {
			continue
		}
		delete(changed, ev.Id)
		if value := assets.Get(Handle[A]{Id: ev.Id}); value != nil {
			r.extracted = append(r.extracted, extractedAsset[A]{id: ev.Id, asset: *value})
		}
	}
}

func (r *RenderAssets[A, P]) prepare(cmd *Commands) {
	for _, id := range r.removed {
		r.drop(id)
		r.retry = dropExtracted(r.retry, id)
	}
	r.removed = r.removed[:0]

	pending := r.retry
	for _, e := range r.extracted {
		pending = append(dropExtracted(pending, e.id), e)
	}
	r.extracted = r.extracted[:0]
	r.retry = nil

	for _, e := range pending {
		p, err := r.preparer.PrepareAsset(&e.asset, cmd)
		if errors.Is(err, ErrRetryNextUpdate) {
			r.retry = append(r.retry, e)
			continue
		}
		if err != nil {
			panic(fmt.Errorf("failed to prepare render asset %s: %w", e.id, err))
		}
		r.drop(e.id)
		r.prepared[e.id] = p
		r.Prepares++
	}
}

func (r *RenderAssets[A, P]) drop(id AssetId) {
	old, ok := r.prepared[id]
	if !ok {
		return
	}
	if rel, ok := any(old).(releaser); ok {
		rel.Release()
	}
	delete(r.prepared, id)
}

func dropExtracted[A any](list []extractedAsset[A], id AssetId) []extractedAsset[A] {
	out := list[:0]
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

func extractRenderAssetsSystem[A, P any](world *MainWorld, renderAssets *RenderAssets[A, P]) {
	assets := Resource[Assets[A]](world.Commands())
	if assets == nil {
		return
	}
	renderAssets.extract(assets)
}

func prepareRenderAssetsSystem[A, P any](cmd *Commands, renderAssets *RenderAssets[A, P]) {
	renderAssets.prepare(cmd)
}

// RenderAssetModule mirrors Assets[A] into the render world as prepared P
// values. Install it after RenderModule.
type RenderAssetModule[A, P any] struct {
	Preparer RenderAssetPreparer[A, P]
}

func (m RenderAssetModule[A, P]) Install(app *App, cmd *Commands) {
	render := mustRenderApp(app)
	render.addResources(NewRenderAssets(m.Preparer))
	render.UseSystem(
		System(extractRenderAssetsSystem[A, P]).
			InStage(RenderExtract),
	)
	render.UseSystem(
		System(prepareRenderAssetsSystem[A, P]).
			InStage(RenderPrepare),
	)
}
