package voxcube

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	ecs       *Ecs
	hooks     map[reflect.Type]ComponentHooks

	// render is the render sub-app of a main app; parent points back.
	render *App
	parent *App
	exit   bool

	// Command Buffering
	pendingAdditions    []pendingAdd
	pendingSpawns       []pendingAdd
	pendingRemovals     []EntityId
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompRemoval
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

// ComponentHook observes a component value entering or leaving an entity.
type ComponentHook func(cmd *Commands, eid EntityId, component any)

type ComponentHooks struct {
	OnAdd    ComponentHook
	OnRemove ComponentHook
}

func newApp(stages []Stage) *App {
	ecs := MakeEcs()
	app := &App{
		stages:    make([]Stage, 0, len(stages)),
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
		ecs:       &ecs,
		hooks:     make(map[reflect.Type]ComponentHooks),
	}
	for _, stage := range stages {
		app.stages = append(app.stages, stage)
		app.systems[stage.Name] = make([]systemFn, 0)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// RenderApp returns the render sub-app, or nil if rendering is not set up.
func (app *App) RenderApp() *App {
	return app.render
}

func (app *App) root() *App {
	for app.parent != nil {
		app = app.parent
	}
	return app
}

// Update runs one frame: every main stage, then the render sub-app.
func (app *App) Update() {
	for _, stage := range app.stages {
		app.runStage(stage)
	}
	if app.render != nil {
		app.render.runRender(app)
	}
}

// Run calls Update until a system requests an exit.
func (app *App) Run() {
	app.Logger().Infof("running")
	for !app.exit {
		app.Update()
	}
	app.Logger().Infof("exit requested, stopping")
}

func (app *App) runStage(stage Stage) {
	for _, system := range app.systems[stage.Name] {
		app.callSystem(system)
	}
	app.FlushCommands()
}

var typeOfMainWorld = reflect.TypeOf(MainWorld{})

func (app *App) runRender(main *App) {
	for _, stage := range app.stages {
		if stage.Name != RenderExtract.Name {
			app.runStage(stage)
			continue
		}
		app.resources[typeOfMainWorld] = &MainWorld{app: main}
		app.runStage(stage)
		delete(app.resources, typeOfMainWorld)
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be passed by pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// setResource inserts or replaces a resource.
func (app *App) setResource(resource any) {
	app.resources[reflect.TypeOf(resource).Elem()] = resource
}

// RegisterComponentHooks attaches hooks to a component type. Hooks run while
// commands are flushed.
func (app *App) RegisterComponentHooks(component any, hooks ComponentHooks) {
	app.hooks[componentType(component)] = hooks
}

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s: parameter %d must be a pointer, got %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(), i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

// FlushCommands applies buffered commands. Commands issued by hooks during a
// flush are kept for the next flush.
func (app *App) FlushCommands() {
	removals := app.pendingRemovals
	additions := app.pendingAdditions
	spawns := app.pendingSpawns
	compAdds := app.pendingCompAdds
	compRemovals := app.pendingCompRemovals
	app.pendingRemovals = nil
	app.pendingAdditions = nil
	app.pendingSpawns = nil
	app.pendingCompAdds = nil
	app.pendingCompRemovals = nil

	// 1. Process Removals first (so we don't add to dead entities)
	for _, eid := range removals {
		if !app.ecs.hasEntity(eid) {
			continue
		}
		app.runHooks(eid, app.ecs.components(eid), false)
		app.ecs.removeEntity(eid)
	}

	// 2. Process Additions
	for _, add := range additions {
		app.ecs.insertEntity(add.eid, add.components...)
		app.runHooks(add.eid, add.components, true)
	}

	// 3. Process spawns into caller chosen ids
	for _, spawn := range spawns {
		app.runReplacedHooks(spawn.eid, spawn.components)
		app.ecs.insertOrSpawn(spawn.eid, spawn.components...)
		app.runHooks(spawn.eid, spawn.components, true)
	}

	// 4. Process Component Additions
	for _, add := range compAdds {
		if !app.ecs.hasEntity(add.eid) {
			continue
		}
		app.runReplacedHooks(add.eid, add.components)
		app.ecs.addComponents(add.eid, add.components...)
		app.runHooks(add.eid, add.components, true)
	}

	// 5. Process Component Removals
	for _, rem := range compRemovals {
		if !app.ecs.hasEntity(rem.eid) {
			continue
		}
		if len(app.hooks) > 0 {
			var present []any
			for _, c := range rem.components {
				if v, ok := app.ecs.getComponent(rem.eid, componentType(c)); ok {
					present = append(present, v.Interface())
				}
			}
			app.runHooks(rem.eid, present, false)
		}
		app.ecs.removeComponents(rem.eid, rem.components...)
	}
}

func (app *App) runHooks(eid EntityId, components []any, added bool) {
	if len(app.hooks) == 0 {
		return
	}
	cmd := app.Commands()
	for _, c := range components {
		hooks, ok := app.hooks[componentType(c)]
		if !ok {
			continue
		}
		value := reflect.ValueOf(c)
		if value.Kind() == reflect.Pointer {
			value = value.Elem()
		}
		if added && hooks.OnAdd != nil {
			hooks.OnAdd(cmd, eid, value.Interface())
		}
		if !added && hooks.OnRemove != nil {
			hooks.OnRemove(cmd, eid, value.Interface())
		}
	}
}

// runReplacedHooks fires OnRemove for component values about to be
// overwritten.
func (app *App) runReplacedHooks(eid EntityId, components []any) {
	if len(app.hooks) == 0 || !app.ecs.hasEntity(eid) {
		return
	}
	var replaced []any
	for _, c := range components {
		t := componentType(c)
		if _, hooked := app.hooks[t]; !hooked {
			continue
		}
		if v, ok := app.ecs.getComponent(eid, t); ok {
			replaced = append(replaced, v.Interface())
		}
	}
	app.runHooks(eid, replaced, false)
}
