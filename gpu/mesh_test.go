package gpu_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gekko3d/voxcube/gpu"
	"github.com/gekko3d/voxcube/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCube_Counts(t *testing.T) {
	cube := gpu.NewCube(1)

	assert.Equal(t, 24, cube.VertexCount())
	assert.Len(t, cube.Indices, 36)
	assert.Equal(t, gpu.PrimitiveTopologyTriangleList, cube.Topology)

	for _, p := range cube.Positions {
		for _, c := range p {
			assert.InDelta(t, 0.5, math.Abs(float64(c)), 1e-6)
		}
	}
}

func TestNewCube_WindingFacesOutward(t *testing.T) {
	cube := gpu.NewCube(2)
	for i := 0; i < len(cube.Indices); i += 3 {
		a := cube.Positions[cube.Indices[i]]
		b := cube.Positions[cube.Indices[i+1]]
		c := cube.Positions[cube.Indices[i+2]]
		n := cube.Normals[cube.Indices[i]]

		ab := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		ac := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		cross := [3]float32{
			ab[1]*ac[2] - ab[2]*ac[1],
			ab[2]*ac[0] - ab[0]*ac[2],
			ab[0]*ac[1] - ab[1]*ac[0],
		}
		dot := cross[0]*n[0] + cross[1]*n[1] + cross[2]*n[2]
		assert.Greater(t, dot, float32(0), "triangle %d winds against its normal", i/3)
	}
}

func TestMesh_VertexData(t *testing.T) {
	cube := gpu.NewCube(1)
	layout := cube.VertexBufferLayout()

	require.Len(t, layout.Attributes, 3)
	assert.Equal(t, uint64(32), layout.Stride)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Equal(t, uint64(24), layout.Attributes[2].Offset)

	data := cube.VertexData()
	require.Len(t, data, 24*32)

	x := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	nz := math.Float32frombits(binary.LittleEndian.Uint32(data[20:24]))
	assert.Equal(t, cube.Positions[0][0], x)
	assert.Equal(t, cube.Normals[0][2], nz)
}

func TestMesh_EdgeIndices(t *testing.T) {
	cube := gpu.NewCube(1)
	edges := cube.EdgeIndices()

	// 6 faces, each 4 outline edges plus the diagonal
	assert.Len(t, edges, 60)

	lines := &gpu.Mesh{Topology: gpu.PrimitiveTopologyLineList, Positions: cube.Positions}
	assert.Nil(t, lines.EdgeIndices())
}

func TestMeshVertexBufferLayout_Layout(t *testing.T) {
	full := gpu.NewCube(1).VertexBufferLayout()
	vl, err := full.Layout(
		gpu.AttributeLocation{Attribute: gpu.AttributeNormal, Location: 3},
	)
	require.NoError(t, err)
	require.Len(t, vl.Attributes, 1)
	assert.Equal(t, uint32(3), vl.Attributes[0].ShaderLocation)
	assert.Equal(t, uint64(12), vl.Attributes[0].Offset)

	positionsOnly := (&gpu.Mesh{Positions: [][3]float32{{0, 0, 0}}}).VertexBufferLayout()
	_, err = positionsOnly.Layout(gpu.AttributeLocation{Attribute: gpu.AttributeNormal, Location: 1})
	assert.ErrorIs(t, err, gpu.ErrMissingVertexAttribute)

	assert.NotEqual(t, full.Key(), positionsOnly.Key())
}

func TestPrepareMesh(t *testing.T) {
	device := gputest.NewDevice()

	gm, err := gpu.PrepareMesh(device, gpu.NewCube(1))
	require.NoError(t, err)

	assert.Equal(t, uint32(24), gm.VertexCount)
	require.NotNil(t, gm.Index)
	assert.Equal(t, uint32(36), gm.Index.Count)
	require.NotNil(t, gm.Edges)
	assert.Equal(t, uint32(60), gm.Edges.Count)
	assert.Equal(t, uint64(24*32), gm.VertexBuffer.Size())
	assert.Len(t, device.Buffers, 3)

	device.FailBuffers = true
	_, err = gpu.PrepareMesh(device, gpu.NewCube(1))
	assert.ErrorIs(t, err, gputest.ErrInjected)
}
