package voxcube

import "reflect"

// Commands is handed to systems. Entity and component changes are buffered
// and applied when the current stage finishes.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

// InsertOrSpawn adds components to entityId, creating the entity under that
// exact id if it does not exist yet.
func (cmd *Commands) InsertOrSpawn(entityId EntityId, components ...any) {
	cmd.app.pendingSpawns = append(cmd.app.pendingSpawns, pendingAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompRemoval{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	return cmd.app.ecs.components(entityId)
}

func (cmd *Commands) HasEntity(entityId EntityId) bool {
	return cmd.app.ecs.hasEntity(entityId)
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.root().Logger()
}

// Exit stops App.Run after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.root().exit = true
}

// GetComponent returns a pointer into component storage, or nil. The pointer
// is invalidated by the next flush that moves the entity.
func GetComponent[T any](cmd *Commands, entityId EntityId) *T {
	v, ok := cmd.app.ecs.getComponent(entityId, typeOf[T]())
	if !ok {
		return nil
	}
	return v.Addr().Interface().(*T)
}

func HasComponent[T any](cmd *Commands, entityId EntityId) bool {
	_, ok := cmd.app.ecs.getComponent(entityId, typeOf[T]())
	return ok
}

// Resource looks up a resource by type, or returns nil.
func Resource[T any](cmd *Commands) *T {
	r, ok := cmd.app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil
	}
	return r.(*T)
}
