package voxcube

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	VOXMagicNumber = "VOX "
)

var ErrInvalidVox = errors.New("not a valid VOX file")

type VoxVoxel struct {
	X, Y, Z, ColorIndex byte
}

type VoxModel struct {
	SizeX, SizeY, SizeZ uint32
	Voxels              []VoxVoxel
}

type VoxPalette [256][4]byte // RGBA colors

type VoxMaterial struct {
	ID       int
	Weight   float32
	Property map[string]string
}

type VoxFile struct {
	Version      int
	Models       []VoxModel
	Palette      VoxPalette
	VoxMaterials []VoxMaterial
}

func LoadVoxFile(filename string) (*VoxFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	vox, err := ParseVox(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return vox, nil
}

// ParseVox reads a MagicaVoxel file. Scene graph chunks are skipped.
func ParseVox(r io.Reader) (*VoxFile, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != VOXMagicNumber {
		return nil, ErrInvalidVox
	}

	var version int32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}

	voxFile := &VoxFile{
		Version: int(version),
		Palette: defaultPalette(),
	}

	// Chunks are flattened: MAIN only wraps the others.
	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		var header [2]int32
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			return nil, err
		}
		chunkSize := header[0]
		if chunkSize < 0 {
			return nil, fmt.Errorf("chunk %q has negative size: %w", chunkID[:], ErrInvalidVox)
		}

		chunkData := make([]byte, chunkSize)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, err
		}

		switch string(chunkID[:]) {
		case "SIZE":
			if len(chunkData) < 12 {
				return nil, fmt.Errorf("SIZE chunk too small: %w", ErrInvalidVox)
			}
			voxFile.Models = append(voxFile.Models, VoxModel{
				SizeX: binary.LittleEndian.Uint32(chunkData[0:4]),
				SizeY: binary.LittleEndian.Uint32(chunkData[4:8]),
				SizeZ: binary.LittleEndian.Uint32(chunkData[8:12]),
			})
		case "XYZI":
			if len(voxFile.Models) == 0 || len(chunkData) < 4 {
				return nil, fmt.Errorf("XYZI chunk without SIZE: %w", ErrInvalidVox)
			}
			model := &voxFile.Models[len(voxFile.Models)-1]
			numVoxels := int(binary.LittleEndian.Uint32(chunkData[:4]))
			if 4+numVoxels*4 > len(chunkData) {
				return nil, fmt.Errorf("XYZI chunk data overflow: %w", ErrInvalidVox)
			}
			model.Voxels = make([]VoxVoxel, numVoxels)
			for i := range model.Voxels {
				offset := 4 + i*4
				model.Voxels[i] = VoxVoxel{
					X:          chunkData[offset],
					Y:          chunkData[offset+1],
					Z:          chunkData[offset+2],
					ColorIndex: chunkData[offset+3],
				}
			}
		case "RGBA":
			// entry i of the chunk is color index i+1
			for i := 0; i < 255 && i*4+3 < len(chunkData); i++ {
				copy(voxFile.Palette[i+1][:], chunkData[i*4:i*4+4])
			}
		case "MATL":
			mat, err := parseMaterial(chunkData)
			if err != nil {
				return nil, err
			}
			voxFile.VoxMaterials = append(voxFile.VoxMaterials, mat)
		}
	}

	return voxFile, nil
}

func parseMaterial(data []byte) (VoxMaterial, error) {
	mat := VoxMaterial{
		Property: make(map[string]string),
	}
	readInt := func() (int, bool) {
		if len(data) < 4 {
			return 0, false
		}
		v := int(binary.LittleEndian.Uint32(data[:4]))
		data = data[4:]
		return v, true
	}
	readString := func() (string, bool) {
		n, ok := readInt()
		if !ok || n < 0 || n > len(data) {
			return "", false
		}
		s := string(data[:n])
		data = data[n:]
		return s, true
	}

	var ok bool
	if mat.ID, ok = readInt(); !ok {
		return mat, fmt.Errorf("MATL chunk truncated: %w", ErrInvalidVox)
	}
	count, ok := readInt()
	if !ok {
		return mat, fmt.Errorf("MATL chunk truncated: %w", ErrInvalidVox)
	}
	for i := 0; i < count; i++ {
		key, ok1 := readString()
		value, ok2 := readString()
		if !ok1 || !ok2 {
			return mat, fmt.Errorf("MATL property %d truncated: %w", i, ErrInvalidVox)
		}
		if key == "_weight" {
			if _, err := fmt.Sscanf(value, "%f", &mat.Weight); err != nil {
				return mat, err
			}
			continue
		}
		mat.Property[key] = value
	}
	return mat, nil
}

func defaultPalette() VoxPalette {
	var palette VoxPalette
	for i := range palette {
		palette[i] = [4]uint8{255, 255, 255, 255} // white as fallback
	}
	return palette
}

// VoxelDataFromVox converts one model of a vox file. Models larger than the
// grid are scaled down uniformly. MagicaVoxel is Z up; the grid is Y up.
func VoxelDataFromVox(vox *VoxFile, modelIndex int) (VoxelData, error) {
	var data VoxelData
	if modelIndex < 0 || modelIndex >= len(vox.Models) {
		return data, fmt.Errorf("model %d of %d: %w", modelIndex, len(vox.Models), ErrInvalidVox)
	}
	model := vox.Models[modelIndex]

	largest := max(model.SizeX, model.SizeY, model.SizeZ)
	scale := float32(1)
	if largest > VoxelGridSize {
		scale = float32(VoxelGridSize) / float32(largest)
	}

	for _, v := range model.Voxels {
		color := vox.Palette[v.ColorIndex]
		x := int(float32(v.X) * scale)
		y := int(float32(v.Z) * scale)
		z := int(float32(v.Y) * scale)
		data.Set(x, y, z, PackColor(color[0], color[1], color[2], color[3]))
	}
	return data, nil
}
