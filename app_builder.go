package voxcube

type Module interface {
	Install(app *App, cmd *Commands)
}

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{app: newApp(mainStages)}
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)

	return b
}

// Build installs modules in order and flushes whatever they spawned, so the
// first frame already sees startup entities.
func (b *AppBuilder) Build() *App {
	app := b.app
	commands := &Commands{app: app}

	for _, module := range b.modules {
		module.Install(app, commands)
	}
	app.FlushCommands()
	if app.render != nil {
		app.render.FlushCommands()
	}

	return app
}

// NewApp returns an app with the main stages and no modules.
func NewApp() *App {
	return newApp(mainStages)
}

// UseModules installs modules directly, flushing after each one.
func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
		app.FlushCommands()
	}
	return app
}
