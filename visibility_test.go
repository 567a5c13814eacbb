package voxcube

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisibilityApp() (*App, *Commands) {
	app := NewApp().UseModules(TransformModule{}, VisibilityModule{})
	return app, app.Commands()
}

func spawnCube(cmd *Commands, pos mgl32.Vec3, extra ...any) EntityId {
	tr := TransformAt(pos)
	components := []any{
		tr,
		GlobalTransform(tr),
		Visibility{},
		ComputedVisibility{},
		Aabb{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}},
	}
	return cmd.AddEntity(append(components, extra...)...)
}

func spawnCamera(cmd *Commands, eye, target mgl32.Vec3) EntityId {
	camera := Camera3d{Projection: DefaultPerspective()}
	return cmd.AddEntity(Camera3dBundle(camera, LookAt(eye, target, mgl32.Vec3{0, 1, 0}))...)
}

func TestFrustum_AABB(t *testing.T) {
	proj := DefaultPerspective().Matrix()
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name string
		box  [2]mgl32.Vec3
		want bool
	}{
		{"in front", [2]mgl32.Vec3{{-1, -1, -6}, {1, 1, -4}}, true},
		{"behind", [2]mgl32.Vec3{{-1, -1, 4}, {1, 1, 6}}, false},
		{"far left", [2]mgl32.Vec3{{-100, -1, -6}, {-90, 1, -4}}, false},
		{"straddling near plane", [2]mgl32.Vec3{{-1, -1, -1}, {1, 1, 1}}, true},
		{"beyond far plane", [2]mgl32.Vec3{{-1, -1, -2000}, {1, 1, -1500}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AABBInFrustum(tt.box, planes))
		})
	}
}

func TestAabb_World(t *testing.T) {
	aabb := Aabb{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}
	tr := TransformAt(mgl32.Vec3{3, 0, 0})
	tr.Scale = mgl32.Vec3{2, 2, 2}

	world := aabb.World(tr.Matrix())
	vecNear(t, mgl32.Vec3{2, -1, -1}, world[0])
	vecNear(t, mgl32.Vec3{4, 1, 1}, world[1])
}

func TestCheckVisibility_CullsOutsideFrustum(t *testing.T) {
	app, cmd := newVisibilityApp()

	camera := spawnCamera(cmd, mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	inside := spawnCube(cmd, mgl32.Vec3{0, 0, 0})
	behind := spawnCube(cmd, mgl32.Vec3{0, 0, 20})
	uncullable := spawnCube(cmd, mgl32.Vec3{0, 0, 20}, NoFrustumCulling{})
	app.FlushCommands()

	app.Update()

	visible := GetComponent[VisibleEntities](cmd, camera)
	require.NotNil(t, visible)
	assert.True(t, visible.Contains(inside))
	assert.False(t, visible.Contains(behind))
	assert.True(t, visible.Contains(uncullable))
	assert.True(t, GetComponent[ComputedVisibility](cmd, inside).IsVisible())
	assert.False(t, GetComponent[ComputedVisibility](cmd, behind).IsVisible())
}

func TestCheckVisibility_HiddenPropagatesToChildren(t *testing.T) {
	app, cmd := newVisibilityApp()

	camera := spawnCamera(cmd, mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	parent := spawnCube(cmd, mgl32.Vec3{0, 0, 0})
	child := spawnCube(cmd, mgl32.Vec3{1, 0, 0}, Parent{Entity: parent})
	app.FlushCommands()

	app.Update()
	visible := GetComponent[VisibleEntities](cmd, camera)
	assert.Equal(t, []EntityId{parent, child}, visible.Entities)

	GetComponent[Visibility](cmd, parent).Hidden = true
	app.Update()
	visible = GetComponent[VisibleEntities](cmd, camera)
	assert.Empty(t, visible.Entities)
	assert.False(t, GetComponent[ComputedVisibility](cmd, child).InHierarchy)

	GetComponent[Visibility](cmd, parent).Hidden = false
	app.Update()
	visible = GetComponent[VisibleEntities](cmd, camera)
	assert.Equal(t, []EntityId{parent, child}, visible.Entities)
}

func TestCheckVisibility_PerCamera(t *testing.T) {
	app, cmd := newVisibilityApp()

	left := spawnCube(cmd, mgl32.Vec3{-50, 0, 0})
	right := spawnCube(cmd, mgl32.Vec3{50, 0, 0})
	camLeft := spawnCamera(cmd, mgl32.Vec3{-50, 0, 5}, mgl32.Vec3{-50, 0, 0})
	camRight := spawnCamera(cmd, mgl32.Vec3{50, 0, 5}, mgl32.Vec3{50, 0, 0})
	app.FlushCommands()

	app.Update()

	assert.Equal(t, []EntityId{left}, GetComponent[VisibleEntities](cmd, camLeft).Entities)
	assert.Equal(t, []EntityId{right}, GetComponent[VisibleEntities](cmd, camRight).Entities)
}

func TestCheckVisibility_InactiveCameraSeesNothing(t *testing.T) {
	app, cmd := newVisibilityApp()

	spawnCube(cmd, mgl32.Vec3{0, 0, 0})
	camera := cmd.AddEntity(Camera3dBundle(
		Camera3d{Projection: DefaultPerspective(), Inactive: true},
		LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
	)...)
	app.FlushCommands()

	app.Update()
	assert.Empty(t, GetComponent[VisibleEntities](cmd, camera).Entities)
}

func TestRangefinder3d(t *testing.T) {
	view := GlobalTransform(LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	r := NewRangefinder3d(view)

	near := mgl32.Translate3D(0, 0, 4)
	far := mgl32.Translate3D(0, 0, -5)
	assert.InDelta(t, -1, r.Distance(near), 1e-4)
	assert.InDelta(t, -10, r.Distance(far), 1e-4)
}
