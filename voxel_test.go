package voxcube

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoxelIndex(t *testing.T) {
	assert.Equal(t, 0, VoxelIndex(0, 0, 0))
	assert.Equal(t, 1, VoxelIndex(1, 0, 0))
	assert.Equal(t, 16, VoxelIndex(0, 1, 0))
	assert.Equal(t, 256, VoxelIndex(0, 0, 1))
	assert.Equal(t, VoxelCount-1, VoxelIndex(15, 15, 15))
}

func TestPackColor(t *testing.T) {
	c := PackColor(0xcc, 0x11, 0x22, 0xff)
	assert.Equal(t, uint32(0xffcc1122), c)

	r, g, b, a := UnpackColor(c)
	assert.Equal(t, [4]uint8{0xcc, 0x11, 0x22, 0xff}, [4]uint8{r, g, b, a})
}

func TestVoxelData_SetAtBytes(t *testing.T) {
	var d VoxelData
	d.Set(1, 2, 3, 0xdeadbeef)
	d.Set(-1, 0, 0, 1)
	d.Set(0, 16, 0, 1)

	assert.Equal(t, uint32(0xdeadbeef), d.At(1, 2, 3))
	assert.Equal(t, uint32(0), d.At(16, 0, 0))
	assert.Equal(t, 1, d.Filled())

	raw := d.Bytes()
	require.Len(t, raw, VoxelDataSize)
	off := VoxelIndex(1, 2, 3) * 4
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(raw[off:]))
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, raw[off:off+4])
}

func TestSolidVoxelData(t *testing.T) {
	d := SolidVoxelData(PackColor(1, 2, 3, 255))
	assert.Equal(t, VoxelCount, d.Filled())
}

func TestVoxelBundle(t *testing.T) {
	h := Handle[VoxelData]{Id: "duck"}
	bundle := VoxelBundle(h, TransformAt([3]float32{1, 2, 3}))

	var found int
	for _, c := range bundle {
		switch v := c.(type) {
		case Voxel:
			assert.Equal(t, h, v.Data)
			found++
		case GlobalTransform:
			assert.Equal(t, float32(2), v.Position.Y())
			found++
		case Aabb, Visibility, ComputedVisibility, TransformComponent:
			found++
		}
	}
	assert.Equal(t, 6, found)
}

func TestVoxelDataFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, VoxelAtlasWidth, VoxelAtlasHeight))
	// slice z=2, x=3, top row is y=15
	img.SetNRGBA(2*VoxelGridSize+3, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	// bottom row of slice 0
	img.SetNRGBA(0, VoxelGridSize-1, color.NRGBA{R: 255, A: 128})

	d := VoxelDataFromImage(img)
	assert.Equal(t, PackColor(10, 20, 30, 255), d.At(3, 15, 2))
	assert.Equal(t, PackColor(255, 0, 0, 128), d.At(0, 0, 0))
	assert.Equal(t, 2, d.Filled())
}

func TestVoxelDataImage_RoundTrip(t *testing.T) {
	var d VoxelData
	d.Set(0, 0, 0, PackColor(1, 2, 3, 255))
	d.Set(15, 7, 9, PackColor(200, 100, 50, 255))
	d.Set(4, 15, 15, PackColor(9, 9, 9, 255))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, VoxelDataImage(&d)))

	got, err := LoadVoxelDataPNG(&buf)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestVoxelDataFromImage_ScalesOtherSizes(t *testing.T) {
	// a 512x32 atlas: every cell is 2x2 pixels
	img := image.NewNRGBA(image.Rect(0, 0, 2*VoxelAtlasWidth, 2*VoxelAtlasHeight))
	red := color.NRGBA{R: 255, A: 255}
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			// slice z=1, x=5, row 3 (y=12)
			img.SetNRGBA(2*(VoxelGridSize+5)+dx, 2*3+dy, red)
		}
	}

	d := VoxelDataFromImage(img)
	assert.Equal(t, PackColor(255, 0, 0, 255), d.At(5, 12, 1))
	assert.Equal(t, 1, d.Filled())
}

func TestLoadVoxelDataPNG_InvalidData(t *testing.T) {
	_, err := LoadVoxelDataPNG(bytes.NewReader([]byte("not a png")))
	assert.Error(t, err)
}
