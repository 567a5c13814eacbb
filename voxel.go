package voxcube

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	VoxelGridSize = 16
	VoxelCount    = VoxelGridSize * VoxelGridSize * VoxelGridSize
	// VoxelDataSize is the byte size of the GPU copy of a VoxelData.
	VoxelDataSize = VoxelCount * 4
)

// VoxelData is a 16³ grid of packed 0xAARRGGBB colors, indexed
// x + 16*y + 256*z. Zero is transparent.
type VoxelData struct {
	Colors [VoxelCount]uint32
}

func VoxelIndex(x, y, z int) int {
	return x + VoxelGridSize*y + VoxelGridSize*VoxelGridSize*z
}

func inGrid(x, y, z int) bool {
	return x >= 0 && x < VoxelGridSize && y >= 0 && y < VoxelGridSize && z >= 0 && z < VoxelGridSize
}

// At returns 0 outside the grid.
func (d *VoxelData) At(x, y, z int) uint32 {
	if !inGrid(x, y, z) {
		return 0
	}
	return d.Colors[VoxelIndex(x, y, z)]
}

// Set ignores coordinates outside the grid.
func (d *VoxelData) Set(x, y, z int, color uint32) {
	if !inGrid(x, y, z) {
		return
	}
	d.Colors[VoxelIndex(x, y, z)] = color
}

// Filled counts the non-transparent cells.
func (d *VoxelData) Filled() int {
	n := 0
	for _, c := range d.Colors {
		if c != 0 {
			n++
		}
	}
	return n
}

// Bytes is the little endian color array in index order.
func (d *VoxelData) Bytes() []byte {
	buf := make([]byte, 0, VoxelDataSize)
	for _, c := range d.Colors {
		buf = binary.LittleEndian.AppendUint32(buf, c)
	}
	return buf
}

func SolidVoxelData(color uint32) VoxelData {
	var d VoxelData
	for i := range d.Colors {
		d.Colors[i] = color
	}
	return d
}

func PackColor(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func UnpackColor(c uint32) (r, g, b, a uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)
}

// Voxel renders an entity as a cube shaded from a VoxelData.
type Voxel struct {
	Data Handle[VoxelData]
}

// VoxelWireframe opts an entity into the wireframe overlay when the
// overlay is not global.
type VoxelWireframe struct{}

// VoxelBundle returns the components of a renderable voxel entity.
func VoxelBundle(data Handle[VoxelData], transform TransformComponent) []any {
	return []any{
		Voxel{Data: data},
		transform,
		GlobalTransform(transform),
		Visibility{},
		ComputedVisibility{},
		Aabb{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}},
	}
}

func registerVoxelHooks(app *App) {
	app.RegisterComponentHooks(Voxel{}, ComponentHooks{
		OnAdd: func(cmd *Commands, eid EntityId, component any) {
			if assets := Resource[Assets[VoxelData]](cmd); assets != nil {
				assets.Retain(component.(Voxel).Data)
			}
		},
		OnRemove: func(cmd *Commands, eid EntityId, component any) {
			if assets := Resource[Assets[VoxelData]](cmd); assets != nil {
				assets.Release(component.(Voxel).Data)
			}
		},
	})
}
