package voxcube

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := NewApp()

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	assert.Panics(t, func() { app.addResources(MockResource2{}) }, "resources must be pointers")
}

func TestApp_SystemResolvesCommandsAndResources(t *testing.T) {
	app := NewApp()
	app.addResources(NewMockResource1("one"))

	var gotName string
	var gotCmd *Commands
	app.UseSystem(System(func(cmd *Commands, r *MockResource1) {
		gotCmd = cmd
		gotName = r.name
	}))
	app.Update()

	assert.Equal(t, "one", gotName)
	require.NotNil(t, gotCmd)
	assert.Same(t, app, gotCmd.app)
}

func TestApp_SystemWithMissingResourcePanics(t *testing.T) {
	app := NewApp()
	app.UseSystem(System(func(r *MockResource2) {}))

	assert.Panics(t, app.Update)
}

func TestApp_StagesRunInOrder(t *testing.T) {
	app := NewApp()
	custom := Stage{Name: "Custom"}
	app.UseStage(custom, AfterStage(Update))

	var order []string
	for _, stage := range []Stage{Finale, custom, Prelude, Update, PostUpdate} {
		name := stage.Name
		app.UseSystem(System(func() { order = append(order, name) }).InStage(stage))
	}
	app.Update()

	assert.Equal(t, []string{"Prelude", "Update", "Custom", "PostUpdate", "Finale"}, order)
}

func TestApp_UnknownStagePanics(t *testing.T) {
	app := NewApp()
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InStage(Stage{Name: "Nope"}))
	})
	assert.Panics(t, func() {
		app.UseStage(Stage{Name: "X"}, BeforeStage(Stage{Name: "Nope"}))
	})
}

func TestApp_CommandsFlushBetweenStages(t *testing.T) {
	type Spawned struct{ n int }

	app := NewApp()
	var seen int
	app.UseSystem(System(func(cmd *Commands) {
		cmd.AddEntity(Spawned{n: 3})
	}).InStage(PreUpdate))
	app.UseSystem(System(func(cmd *Commands) {
		MakeQuery1[Spawned](cmd).Map(func(_ EntityId, s *Spawned) bool {
			seen += s.n
			return true
		})
	}).InStage(Update))

	app.Update()
	assert.Equal(t, 3, seen)
}

func TestApp_ComponentLifecycle(t *testing.T) {
	type A struct{ v int }
	type B struct{ v int }

	app := NewApp()
	cmd := app.Commands()

	eid := cmd.AddEntity(A{v: 1})
	assert.False(t, cmd.HasEntity(eid), "additions are deferred")
	app.FlushCommands()
	require.True(t, cmd.HasEntity(eid))

	cmd.AddComponents(eid, B{v: 2})
	app.FlushCommands()
	assert.Equal(t, &B{v: 2}, GetComponent[B](cmd, eid))

	cmd.RemoveComponents(eid, A{})
	app.FlushCommands()
	assert.False(t, HasComponent[A](cmd, eid))
	assert.True(t, HasComponent[B](cmd, eid))
	assert.Len(t, cmd.GetAllComponents(eid), 1)

	cmd.RemoveEntity(eid)
	app.FlushCommands()
	assert.False(t, cmd.HasEntity(eid))
	assert.Nil(t, GetComponent[B](cmd, eid))
}

func TestApp_ComponentHooks(t *testing.T) {
	type Owned struct{ id string }

	app := NewApp()
	cmd := app.Commands()

	var events []string
	app.RegisterComponentHooks(Owned{}, ComponentHooks{
		OnAdd: func(_ *Commands, _ EntityId, c any) {
			events = append(events, "add "+c.(Owned).id)
		},
		OnRemove: func(_ *Commands, _ EntityId, c any) {
			events = append(events, "remove "+c.(Owned).id)
		},
	})

	eid := cmd.AddEntity(&Owned{id: "a"})
	app.FlushCommands()
	cmd.AddComponents(eid, Owned{id: "b"})
	app.FlushCommands()
	cmd.InsertOrSpawn(eid, Owned{id: "c"})
	app.FlushCommands()
	cmd.RemoveComponents(eid, Owned{})
	app.FlushCommands()
	cmd.AddComponents(eid, Owned{id: "d"})
	app.FlushCommands()
	cmd.RemoveEntity(eid)
	app.FlushCommands()

	assert.Equal(t, []string{
		"add a",
		"remove a", "add b",
		"remove b", "add c",
		"remove c",
		"add d",
		"remove d",
	}, events)
}

func TestApp_RunStopsOnExit(t *testing.T) {
	app := NewApp()
	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Exit()
		}
	}))

	app.Run()
	assert.Equal(t, 3, frames)
}

func TestApp_LoggerFallsBackToNop(t *testing.T) {
	app := NewApp()
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Commands().Logger())

	var out bytes.Buffer
	app.addResources(NewWriterLogger("test", true, &out, &out))
	app.Commands().Logger().Infof("hello %d", 1)
	assert.Contains(t, out.String(), "hello 1")
}

func TestLoggingModule_Output(t *testing.T) {
	var out bytes.Buffer
	app := NewApp().UseModules(LoggingModule{Prefix: "duck", Debug: true, Output: &out})

	app.Logger().Debugf("frame %d", 7)
	app.Logger().Errorf("lost device")

	assert.Contains(t, out.String(), "[duck] DEBUG: frame 7")
	assert.Contains(t, out.String(), "[duck] ERROR: lost device")
}
