package voxcube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
}

// spawningModule spawns an entity at install time.
type spawningModule struct {
	eid EntityId
}

func (m *spawningModule) Install(app *App, commands *Commands) {
	type Startup struct{}
	m.eid = commands.AddEntity(Startup{})
}

func TestAppBuilder_UseModule(t *testing.T) {
	builder := NewAppBuilder()
	builder.UseModule(&MockModule{})

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
}

func TestAppBuilder_Build_WithMultipleModules(t *testing.T) {
	module1 := &MockModule{}
	module2 := &MockModule{}

	builder := NewAppBuilder()
	builder.UseModule(module1)
	builder.UseModule(module2)
	app := builder.Build()

	if len(builder.modules) != 2 {
		t.Errorf("Expected 2 modules, got %v", len(builder.modules))
	}
	if !module1.installed {
		t.Errorf("Expected Install to be called on the module 1, but it was not")
	}
	if !module2.installed {
		t.Errorf("Expected Install to be called on the module 2, but it was not")
	}
	assert.Nil(t, app.RenderApp(), "no render world without RenderModule")
}

func TestAppBuilder_BuildFlushesStartupEntities(t *testing.T) {
	module := &spawningModule{}
	app := NewAppBuilder().UseModule(module).Build()

	assert.True(t, app.Commands().HasEntity(module.eid))
}

func TestApp_UseModules(t *testing.T) {
	module := &spawningModule{}
	app := NewApp().UseModules(module)

	assert.True(t, app.Commands().HasEntity(module.eid))
}
