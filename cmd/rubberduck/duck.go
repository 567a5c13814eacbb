package main

import (
	"github.com/gekko3d/voxcube"
)

var (
	duckYellow = voxcube.PackColor(0xff, 0xcc, 0x00, 0xff)
	duckRed    = voxcube.PackColor(0xcc, 0x00, 0x00, 0xff)
	duckDark   = voxcube.PackColor(0x20, 0x20, 0x20, 0xff)
	duckWhite  = voxcube.PackColor(0xff, 0xff, 0xff, 0xff)
)

type ellipsoid struct {
	cx, cy, cz float32
	rx, ry, rz float32
}

func (e ellipsoid) contains(x, y, z int) bool {
	dx := (float32(x) + 0.5 - e.cx) / e.rx
	dy := (float32(y) + 0.5 - e.cy) / e.ry
	dz := (float32(z) + 0.5 - e.cz) / e.rz
	return dx*dx+dy*dy+dz*dz <= 1
}

// duckModel builds the rubber duck: a body, a head facing +z, a beak and
// two eyes. Empty voxels stay transparent.
func duckModel() voxcube.VoxelData {
	var data voxcube.VoxelData
	body := ellipsoid{cx: 8, cy: 4, cz: 7, rx: 5, ry: 3.5, rz: 6}
	tail := ellipsoid{cx: 8, cy: 7, cz: 2, rx: 2.5, ry: 2, rz: 2}
	head := ellipsoid{cx: 8, cy: 10, cz: 10, rx: 3.5, ry: 3.5, rz: 3.5}
	beak := ellipsoid{cx: 8, cy: 9.5, cz: 14, rx: 2, ry: 1, rz: 1.5}

	for z := 0; z < voxcube.VoxelGridSize; z++ {
		for y := 0; y < voxcube.VoxelGridSize; y++ {
			for x := 0; x < voxcube.VoxelGridSize; x++ {
				switch {
				case beak.contains(x, y, z):
					data.Set(x, y, z, duckRed)
				case head.contains(x, y, z), body.contains(x, y, z), tail.contains(x, y, z):
					data.Set(x, y, z, duckYellow)
				}
			}
		}
	}

	for _, x := range []int{6, 9} {
		data.Set(x, 11, 12, duckDark)
		data.Set(x, 10, 12, duckWhite)
	}
	return data
}
