package voxcube

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Visibility is the authored visibility of an entity. Hidden hides the
// entity and its children.
type Visibility struct {
	Hidden bool
}

// ComputedVisibility is written every frame by the visibility systems.
type ComputedVisibility struct {
	InHierarchy bool
	InView      bool
}

func (v ComputedVisibility) IsVisible() bool {
	return v.InHierarchy && v.InView
}

// Aabb is a local space bounding box.
type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NoFrustumCulling keeps an entity in every view's visible set.
type NoFrustumCulling struct{}

// VisibleEntities lists, in ascending id order, the entities a camera sees.
type VisibleEntities struct {
	Entities []EntityId
}

func (v VisibleEntities) Contains(eid EntityId) bool {
	_, ok := slices.BinarySearch(v.Entities, eid)
	return ok
}

type VisibilityModule struct{}

func (VisibilityModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(VisibilityPropagationSystem).
			InStage(PreRender),
	)
	app.UseSystem(
		System(CheckVisibilitySystem).
			InStage(PreRender),
	)
}

// VisibilityPropagationSystem resolves InHierarchy from Visibility and the
// parent chain.
func VisibilityPropagationSystem(cmd *Commands) {
	MakeQuery2[Visibility, ComputedVisibility](cmd).WithoutTypes(Parent{}).Map(func(eid EntityId, vis *Visibility, computed *ComputedVisibility) bool {
		computed.InHierarchy = !vis.Hidden
		return true
	})

	for pass := 0; pass < maxHierarchyPasses; pass++ {
		changed := false
		MakeQuery3[Visibility, Parent, ComputedVisibility](cmd).Map(func(eid EntityId, vis *Visibility, parent *Parent, computed *ComputedVisibility) bool {
			inHierarchy := !vis.Hidden
			if parentVis := GetComponent[ComputedVisibility](cmd, parent.Entity); parentVis != nil {
				inHierarchy = inHierarchy && parentVis.InHierarchy
			}
			if computed.InHierarchy != inHierarchy {
				computed.InHierarchy = inHierarchy
				changed = true
			}
			return true
		})
		if !changed {
			break
		}
	}
}

// CheckVisibilitySystem frustum culls every entity against every active
// camera, filling the cameras' VisibleEntities and the entities' InView.
func CheckVisibilitySystem(cmd *Commands) {
	MakeQuery1[ComputedVisibility](cmd).Map(func(eid EntityId, computed *ComputedVisibility) bool {
		computed.InView = false
		return true
	})

	MakeQuery3[Camera3d, GlobalTransform, VisibleEntities](cmd).Map(func(cameraId EntityId, camera *Camera3d, camTr *GlobalTransform, visible *VisibleEntities) bool {
		visible.Entities = visible.Entities[:0]
		if !camera.IsActive() {
			return true
		}
		viewProj := camera.Projection.Matrix().Mul4(camTr.Matrix().Inv())
		planes := ExtractFrustum(viewProj)

		MakeQuery4[ComputedVisibility, GlobalTransform, Aabb, NoFrustumCulling](cmd).Map(func(eid EntityId, computed *ComputedVisibility, tr *GlobalTransform, aabb *Aabb, noCull *NoFrustumCulling) bool {
			if !computed.InHierarchy {
				return true
			}
			if noCull == nil && aabb != nil && !AABBInFrustum(aabb.World(tr.Matrix()), planes) {
				return true
			}
			computed.InView = true
			visible.Entities = append(visible.Entities, eid)
			return true
		}, Aabb{}, NoFrustumCulling{})

		slices.Sort(visible.Entities)
		return true
	})
}

// World returns the world space bounds of the box transformed by model.
func (a Aabb) World(model mgl32.Mat4) [2]mgl32.Vec3 {
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := 0; i < 8; i++ {
		corner := a.Min
		if i&1 != 0 {
			corner[0] = a.Max[0]
		}
		if i&2 != 0 {
			corner[1] = a.Max[1]
		}
		if i&4 != 0 {
			corner[2] = a.Max[2]
		}
		p := model.Mul4x1(corner.Vec4(1)).Vec3()
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return [2]mgl32.Vec3{lo, hi}
}

// ExtractFrustum extracts the 6 planes of the frustum from a GL style
// view-projection matrix. Returns planes in order: Left, Right, Bottom, Top,
// Near, Far. Normals point inside.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(r, 0), vp.At(r, 1), vp.At(r, 2), vp.At(r, 3)}
	}
	w := row(3)
	for axis := 0; axis < 3; axis++ {
		planes[axis*2] = w.Add(row(axis))
		planes[axis*2+1] = w.Sub(row(axis))
	}

	for i := range planes {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// AABBInFrustum checks if an AABB is at least partly inside the frustum.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for _, plane := range planes {
		// the corner furthest along the plane normal
		var p mgl32.Vec3
		for k := 0; k < 3; k++ {
			if plane[k] > 0 {
				p[k] = aabb[1][k]
			} else {
				p[k] = aabb[0][k]
			}
		}
		if plane.Vec3().Dot(p)+plane[3] < 0 {
			return false
		}
	}
	return true
}
