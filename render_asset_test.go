package voxcube

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preparedAsset struct {
	value    int
	released bool
}

func (p *preparedAsset) Release() { p.released = true }

type fakePreparer struct {
	retries int
	fail    error
	calls   int
}

func (f *fakePreparer) PrepareAsset(asset *testAsset, cmd *Commands) (*preparedAsset, error) {
	f.calls++
	if f.retries > 0 {
		f.retries--
		return nil, ErrRetryNextUpdate
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return &preparedAsset{value: asset.value}, nil
}

// newBareRenderApp returns a main app with an empty render sub-app.
func newBareRenderApp() *App {
	app := NewApp()
	render := newApp(renderStages)
	render.parent = app
	app.render = render
	return app
}

func setupRenderAssets(t *testing.T, preparer *fakePreparer) (*App, *Assets[testAsset], *RenderAssets[testAsset, *preparedAsset]) {
	t.Helper()
	app := newBareRenderApp()
	app.UseModules(
		AssetModule[testAsset]{},
		RenderAssetModule[testAsset, *preparedAsset]{Preparer: preparer},
	)
	assets := Resource[Assets[testAsset]](app.Commands())
	renderAssets := Resource[RenderAssets[testAsset, *preparedAsset]](app.RenderApp().Commands())
	require.NotNil(t, assets)
	require.NotNil(t, renderAssets)
	return app, assets, renderAssets
}

func TestRenderAssets_PrepareModifyRemove(t *testing.T) {
	preparer := &fakePreparer{}
	app, assets, renderAssets := setupRenderAssets(t, preparer)

	h := assets.Add(testAsset{value: 1})
	app.Update()

	first, ok := renderAssets.Get(h)
	require.True(t, ok)
	assert.Equal(t, 1, first.value)

	// no change, no new preparation
	app.Update()
	assert.Equal(t, 1, renderAssets.Prepares)

	assets.Set(h, testAsset{value: 2})
	app.Update()
	second, _ := renderAssets.Get(h)
	assert.Equal(t, 2, second.value)
	assert.True(t, first.released, "replaced GPU data is released")

	assets.Release(h)
	app.Update()
	_, ok = renderAssets.Get(h)
	assert.False(t, ok)
	assert.True(t, second.released)
	assert.Equal(t, 0, renderAssets.Len())
}

func TestRenderAssets_ChangesInOneFrameArePreparedOnce(t *testing.T) {
	preparer := &fakePreparer{}
	app, assets, renderAssets := setupRenderAssets(t, preparer)

	h := assets.Add(testAsset{value: 1})
	assets.Set(h, testAsset{value: 2})
	assets.Set(h, testAsset{value: 3})
	app.Update()

	assert.Equal(t, 1, preparer.calls)
	p, _ := renderAssets.Get(h)
	assert.Equal(t, 3, p.value)
}

func TestRenderAssets_RetryNextUpdate(t *testing.T) {
	preparer := &fakePreparer{retries: 2}
	app, assets, renderAssets := setupRenderAssets(t, preparer)

	h := assets.Add(testAsset{value: 7})
	app.Update()
	_, ok := renderAssets.Get(h)
	assert.False(t, ok)

	app.Update()
	_, ok = renderAssets.Get(h)
	assert.False(t, ok)

	app.Update()
	p, ok := renderAssets.Get(h)
	require.True(t, ok)
	assert.Equal(t, 7, p.value)
	assert.Equal(t, 3, preparer.calls)
}

func TestRenderAssets_RemovedWhileRetrying(t *testing.T) {
	preparer := &fakePreparer{retries: 10}
	app, assets, renderAssets := setupRenderAssets(t, preparer)

	h := assets.Add(testAsset{})
	app.Update()
	assets.Release(h)
	app.Update()
	calls := preparer.calls
	app.Update()

	assert.Equal(t, calls, preparer.calls, "removed assets are not retried")
	assert.Equal(t, 0, renderAssets.Len())
}

func TestRenderAssets_PrepareErrorPanics(t *testing.T) {
	boom := errors.New("device lost")
	app, assets, _ := setupRenderAssets(t, &fakePreparer{fail: boom})

	assets.Add(testAsset{})
	assert.PanicsWithError(t, "failed to prepare render asset "+string(assets.Events()[0].Id)+": device lost", app.Update)
}

func TestRenderAssetModule_RequiresRenderModule(t *testing.T) {
	app := NewApp()
	assert.Panics(t, func() {
		app.UseModules(RenderAssetModule[testAsset, *preparedAsset]{Preparer: &fakePreparer{}})
	})
}
