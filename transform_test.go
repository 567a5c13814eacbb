package voxcube

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecNear(t *testing.T, expected, actual mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	if !expected.ApproxEqualThreshold(actual, 1e-4) {
		assert.Fail(t, "vectors differ", "expected %v, got %v %v", expected, actual, msgAndArgs)
	}
}

func TestTransformHierarchy(t *testing.T) {
	app := NewApp()
	app.UseModules(TransformModule{})
	cmd := app.Commands()

	parentTr := TransformAt(mgl32.Vec3{10, 0, 0})
	parent := cmd.AddEntity(parentTr, GlobalTransform{})

	child := cmd.AddEntity(
		Parent{Entity: parent},
		TransformAt(mgl32.Vec3{0, 5, 0}),
		GlobalTransform{},
	)
	grandchild := cmd.AddEntity(
		Parent{Entity: child},
		TransformAt(mgl32.Vec3{0, 0, 2}),
		GlobalTransform{},
	)
	app.FlushCommands()

	TransformPropagationSystem(cmd)

	vecNear(t, mgl32.Vec3{10, 5, 0}, GetComponent[GlobalTransform](cmd, child).Position)
	vecNear(t, mgl32.Vec3{10, 5, 2}, GetComponent[GlobalTransform](cmd, grandchild).Position)

	// Rotate the parent 90 degrees around Y: local +Y stays, local +Z maps to +X.
	GetComponent[TransformComponent](cmd, parent).Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	TransformPropagationSystem(cmd)

	vecNear(t, mgl32.Vec3{10, 5, 0}, GetComponent[GlobalTransform](cmd, child).Position)
	vecNear(t, mgl32.Vec3{12, 5, 0}, GetComponent[GlobalTransform](cmd, grandchild).Position)
}

func TestTransformHierarchy_ScaleAndUpdateStage(t *testing.T) {
	app := NewApp()
	app.UseModules(TransformModule{})
	cmd := app.Commands()

	root := IdentityTransform()
	root.Scale = mgl32.Vec3{2, 2, 2}
	parent := cmd.AddEntity(root, GlobalTransform{})
	child := cmd.AddEntity(Parent{Entity: parent}, TransformAt(mgl32.Vec3{1, 0, 0}), GlobalTransform{})
	app.FlushCommands()

	app.Update()

	global := GetComponent[GlobalTransform](cmd, child)
	require.NotNil(t, global)
	vecNear(t, mgl32.Vec3{2, 0, 0}, global.Position)
	vecNear(t, mgl32.Vec3{2, 2, 2}, global.Scale)
}

func TestTransformComponent_Matrix(t *testing.T) {
	tr := TransformComponent{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	// scale to (2,0,0), rotate to (0,2,0), translate
	vecNear(t, mgl32.Vec3{1, 4, 3}, p)
}

func TestGlobalTransform_Forward(t *testing.T) {
	g := GlobalTransform(IdentityTransform())
	vecNear(t, mgl32.Vec3{0, 0, -1}, g.Forward())

	look := LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{5, 0, 5}, mgl32.Vec3{0, 1, 0})
	vecNear(t, mgl32.Vec3{1, 0, 0}, GlobalTransform(look).Forward())
}
