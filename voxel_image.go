package voxcube

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// VoxelAtlasWidth and VoxelAtlasHeight size a slice atlas: the 16 Z slices
// side by side, each 16x16 with +Y up.
const (
	VoxelAtlasWidth  = VoxelGridSize * VoxelGridSize
	VoxelAtlasHeight = VoxelGridSize
)

// VoxelDataFromImage reads a slice atlas. Other sizes are resampled to the
// atlas size with nearest neighbour filtering so cells stay crisp.
func VoxelDataFromImage(img image.Image) VoxelData {
	atlas := image.NewNRGBA(image.Rect(0, 0, VoxelAtlasWidth, VoxelAtlasHeight))
	if img.Bounds().Dx() == VoxelAtlasWidth && img.Bounds().Dy() == VoxelAtlasHeight {
		draw.Draw(atlas, atlas.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.NearestNeighbor.Scale(atlas, atlas.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	var data VoxelData
	for z := 0; z < VoxelGridSize; z++ {
		for row := 0; row < VoxelGridSize; row++ {
			for x := 0; x < VoxelGridSize; x++ {
				c := color.NRGBAModel.Convert(atlas.At(z*VoxelGridSize+x, row)).(color.NRGBA)
				if c.A == 0 {
					continue
				}
				data.Set(x, VoxelGridSize-1-row, z, PackColor(c.R, c.G, c.B, c.A))
			}
		}
	}
	return data
}

func LoadVoxelDataPNG(r io.Reader) (VoxelData, error) {
	img, err := png.Decode(r)
	if err != nil {
		return VoxelData{}, err
	}
	return VoxelDataFromImage(img), nil
}

// VoxelDataImage renders data back into a slice atlas.
func VoxelDataImage(data *VoxelData) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, VoxelAtlasWidth, VoxelAtlasHeight))
	for z := 0; z < VoxelGridSize; z++ {
		for y := 0; y < VoxelGridSize; y++ {
			for x := 0; x < VoxelGridSize; x++ {
				r, g, b, a := UnpackColor(data.At(x, y, z))
				img.SetNRGBA(z*VoxelGridSize+x, VoxelGridSize-1-y, color.NRGBA{R: r, G: g, B: b, A: a})
			}
		}
	}
	return img
}
