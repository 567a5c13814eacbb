package voxcube

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is the authored transform. For entities with a Parent
// it is relative to the parent's GlobalTransform.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func IdentityTransform() TransformComponent {
	return TransformComponent{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func TransformAt(position mgl32.Vec3) TransformComponent {
	tr := IdentityTransform()
	tr.Position = position
	return tr
}

// Matrix returns T*R*S.
func (tr TransformComponent) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(tr.Position.X(), tr.Position.Y(), tr.Position.Z())
	r := tr.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(tr.Scale.X(), tr.Scale.Y(), tr.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

type Parent struct {
	Entity EntityId
}

// GlobalTransform is the world space transform, written by
// TransformPropagationSystem.
type GlobalTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func (g GlobalTransform) Matrix() mgl32.Mat4 {
	return TransformComponent(g).Matrix()
}

// Forward is the world space -Z axis.
func (g GlobalTransform) Forward() mgl32.Vec3 {
	return g.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

type TransformModule struct{}

func (TransformModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(TransformPropagationSystem).
			InStage(PostUpdate),
	)
}

const maxHierarchyPasses = 8

func TransformPropagationSystem(cmd *Commands) {
	// Roots copy their transform straight through.
	MakeQuery2[TransformComponent, GlobalTransform](cmd).WithoutTypes(Parent{}).Map(func(eid EntityId, tr *TransformComponent, global *GlobalTransform) bool {
		*global = GlobalTransform(*tr)
		return true
	})

	// Children settle one hierarchy level per pass.
	for pass := 0; pass < maxHierarchyPasses; pass++ {
		changed := false
		MakeQuery3[TransformComponent, Parent, GlobalTransform](cmd).Map(func(eid EntityId, local *TransformComponent, parent *Parent, world *GlobalTransform) bool {
			parentWorld := GetComponent[GlobalTransform](cmd, parent.Entity)
			if parentWorld == nil {
				return true
			}

			// Propagate components directly to preserve scale signs (reflections)
			// WorldPos = ParentPos + ParentRot * (ParentScale * LocalPos)
			scaledLocalPos := mgl32.Vec3{
				local.Position.X() * parentWorld.Scale.X(),
				local.Position.Y() * parentWorld.Scale.Y(),
				local.Position.Z() * parentWorld.Scale.Z(),
			}
			next := GlobalTransform{
				Position: parentWorld.Position.Add(parentWorld.Rotation.Rotate(scaledLocalPos)),
				Rotation: parentWorld.Rotation.Mul(local.Rotation).Normalize(),
				Scale: mgl32.Vec3{
					parentWorld.Scale.X() * local.Scale.X(),
					parentWorld.Scale.Y() * local.Scale.Y(),
					parentWorld.Scale.Z() * local.Scale.Z(),
				},
			}
			if next != *world {
				*world = next
				changed = true
			}
			return true
		})
		if !changed {
			break
		}
	}
}
