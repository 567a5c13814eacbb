package voxcube

import (
	"slices"

	"github.com/google/uuid"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// Handle is a typed reference to an entry of Assets[T]. Handles are plain
// values; ownership is tracked with Retain and Release.
type Handle[T any] struct {
	Id AssetId
}

func (h Handle[T]) IsZero() bool {
	return h.Id == ""
}

type AssetEventKind int

const (
	AssetCreated AssetEventKind = iota
	AssetModified
	AssetRemoved
)

func (k AssetEventKind) String() string {
	switch k {
	case AssetCreated:
		return "created"
	case AssetModified:
		return "modified"
	case AssetRemoved:
		return "removed"
	}
	return "unknown"
}

type AssetEvent[T any] struct {
	Kind AssetEventKind
	Id   AssetId
}

type assetEntry[T any] struct {
	value   T
	version uint
	refs    int
}

// Assets stores values of one type behind reference counted handles.
//
// Events are kept for two updates, so a reader that runs once per frame sees
// every event exactly once no matter which stage produced it.
type Assets[T any] struct {
	entries map[AssetId]*assetEntry[T]

	events     []AssetEvent[T]
	eventStart uint64
	eventMark  int
}

func NewAssets[T any]() *Assets[T] {
	return &Assets[T]{
		entries: make(map[AssetId]*assetEntry[T]),
	}
}

// Add stores value with a reference count of one, owned by the caller.
func (a *Assets[T]) Add(value T) Handle[T] {
	id := makeAssetId()
	a.entries[id] = &assetEntry[T]{value: value, refs: 1}
	a.events = append(a.events, AssetEvent[T]{Kind: AssetCreated, Id: id})
	return Handle[T]{Id: id}
}

func (a *Assets[T]) Get(h Handle[T]) *T {
	e, ok := a.entries[h.Id]
	if !ok {
		return nil
	}
	return &e.value
}

// Set replaces the value behind h. It reports false if h is not stored.
func (a *Assets[T]) Set(h Handle[T], value T) bool {
	e, ok := a.entries[h.Id]
	if !ok {
		return false
	}
	e.value = value
	e.version++
	a.events = append(a.events, AssetEvent[T]{Kind: AssetModified, Id: h.Id})
	return true
}

func (a *Assets[T]) Contains(h Handle[T]) bool {
	_, ok := a.entries[h.Id]
	return ok
}

func (a *Assets[T]) Version(h Handle[T]) (uint, bool) {
	e, ok := a.entries[h.Id]
	if !ok {
		return 0, false
	}
	return e.version, true
}

func (a *Assets[T]) Refs(h Handle[T]) int {
	if e, ok := a.entries[h.Id]; ok {
		return e.refs
	}
	return 0
}

func (a *Assets[T]) Retain(h Handle[T]) {
	if e, ok := a.entries[h.Id]; ok {
		e.refs++
	}
}

// Release drops one reference. The asset is removed when none are left.
func (a *Assets[T]) Release(h Handle[T]) {
	e, ok := a.entries[h.Id]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(a.entries, h.Id)
	a.events = append(a.events, AssetEvent[T]{Kind: AssetRemoved, Id: h.Id})
}

func (a *Assets[T]) Len() int {
	return len(a.entries)
}

// Events returns the events of the current and the previous update.
func (a *Assets[T]) Events() []AssetEvent[T] {
	return a.events
}

// update drops events that have already survived one update.
func (a *Assets[T]) update() {
	a.events = slices.Clone(a.events[a.eventMark:])
	a.eventStart += uint64(a.eventMark)
	a.eventMark = len(a.events)
}

// AssetEventReader hands out each event once.
type AssetEventReader[T any] struct {
	next uint64
}

func (r *AssetEventReader[T]) Read(a *Assets[T]) []AssetEvent[T] {
	start := max(r.next, a.eventStart)
	end := a.eventStart + uint64(len(a.events))
	r.next = end
	if start >= end {
		return nil
	}
	return a.events[start-a.eventStart:]
}

func updateAssetEventsSystem[T any](assets *Assets[T]) {
	assets.update()
}

// AssetModule installs Assets[T] into the main world. Installing it twice
// is a no-op.
type AssetModule[T any] struct{}

func (AssetModule[T]) Install(app *App, cmd *Commands) {
	if Resource[Assets[T]](cmd) != nil {
		return
	}
	cmd.AddResources(NewAssets[T]())
	app.UseSystem(
		System(updateAssetEventsSystem[T]).
			InStage(Prelude),
	)
}
