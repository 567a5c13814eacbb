package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

type MeshAttributeId uint32

const (
	AttributePosition MeshAttributeId = iota
	AttributeNormal
	AttributeUV0
)

var attributeFormats = map[MeshAttributeId]VertexFormat{
	AttributePosition: VertexFormatFloat32x3,
	AttributeNormal:   VertexFormatFloat32x3,
	AttributeUV0:      VertexFormatFloat32x2,
}

var attributeNames = map[MeshAttributeId]string{
	AttributePosition: "Vertex_Position",
	AttributeNormal:   "Vertex_Normal",
	AttributeUV0:      "Vertex_Uv",
}

// Mesh is CPU-side geometry. Attributes are interleaved in id order when
// uploaded.
type Mesh struct {
	Topology  PrimitiveTopology
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint16
}

// NewCube returns an axis aligned cube centered on the origin with the
// given edge length: 24 vertices (4 per face) and 36 indices.
func NewCube(size float32) *Mesh {
	h := size / 2
	lo, hi := -h, h

	type vtx struct {
		p  [3]float32
		n  [3]float32
		uv [2]float32
	}
	vertices := []vtx{
		// front
		{[3]float32{lo, lo, hi}, [3]float32{0, 0, 1}, [2]float32{0, 0}},
		{[3]float32{hi, lo, hi}, [3]float32{0, 0, 1}, [2]float32{1, 0}},
		{[3]float32{hi, hi, hi}, [3]float32{0, 0, 1}, [2]float32{1, 1}},
		{[3]float32{lo, hi, hi}, [3]float32{0, 0, 1}, [2]float32{0, 1}},
		// back
		{[3]float32{lo, hi, lo}, [3]float32{0, 0, -1}, [2]float32{1, 0}},
		{[3]float32{hi, hi, lo}, [3]float32{0, 0, -1}, [2]float32{0, 0}},
		{[3]float32{hi, lo, lo}, [3]float32{0, 0, -1}, [2]float32{0, 1}},
		{[3]float32{lo, lo, lo}, [3]float32{0, 0, -1}, [2]float32{1, 1}},
		// right
		{[3]float32{hi, lo, lo}, [3]float32{1, 0, 0}, [2]float32{0, 0}},
		{[3]float32{hi, hi, lo}, [3]float32{1, 0, 0}, [2]float32{1, 0}},
		{[3]float32{hi, hi, hi}, [3]float32{1, 0, 0}, [2]float32{1, 1}},
		{[3]float32{hi, lo, hi}, [3]float32{1, 0, 0}, [2]float32{0, 1}},
		// left
		{[3]float32{lo, lo, hi}, [3]float32{-1, 0, 0}, [2]float32{1, 0}},
		{[3]float32{lo, hi, hi}, [3]float32{-1, 0, 0}, [2]float32{0, 0}},
		{[3]float32{lo, hi, lo}, [3]float32{-1, 0, 0}, [2]float32{0, 1}},
		{[3]float32{lo, lo, lo}, [3]float32{-1, 0, 0}, [2]float32{1, 1}},
		// top
		{[3]float32{hi, hi, lo}, [3]float32{0, 1, 0}, [2]float32{1, 0}},
		{[3]float32{lo, hi, lo}, [3]float32{0, 1, 0}, [2]float32{0, 0}},
		{[3]float32{lo, hi, hi}, [3]float32{0, 1, 0}, [2]float32{0, 1}},
		{[3]float32{hi, hi, hi}, [3]float32{0, 1, 0}, [2]float32{1, 1}},
		// bottom
		{[3]float32{hi, lo, hi}, [3]float32{0, -1, 0}, [2]float32{0, 0}},
		{[3]float32{lo, lo, hi}, [3]float32{0, -1, 0}, [2]float32{1, 0}},
		{[3]float32{lo, lo, lo}, [3]float32{0, -1, 0}, [2]float32{1, 1}},
		{[3]float32{hi, lo, lo}, [3]float32{0, -1, 0}, [2]float32{0, 1}},
	}

	m := &Mesh{Topology: PrimitiveTopologyTriangleList}
	for _, v := range vertices {
		m.Positions = append(m.Positions, v.p)
		m.Normals = append(m.Normals, v.n)
		m.UVs = append(m.UVs, v.uv)
	}
	for face := uint16(0); face < 6; face++ {
		b := face * 4
		m.Indices = append(m.Indices, b, b+1, b+2, b+2, b+3, b)
	}
	return m
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

func (m *Mesh) attributes() []MeshAttributeId {
	var ids []MeshAttributeId
	if len(m.Positions) > 0 {
		ids = append(ids, AttributePosition)
	}
	if len(m.Normals) > 0 {
		ids = append(ids, AttributeNormal)
	}
	if len(m.UVs) > 0 {
		ids = append(ids, AttributeUV0)
	}
	return ids
}

// VertexBufferLayout describes the interleaved layout of VertexData.
func (m *Mesh) VertexBufferLayout() *MeshVertexBufferLayout {
	layout := &MeshVertexBufferLayout{}
	for _, id := range m.attributes() {
		format := attributeFormats[id]
		layout.Attributes = append(layout.Attributes, MeshAttribute{
			Id:     id,
			Format: format,
			Offset: layout.Stride,
		})
		layout.Stride += format.Size()
	}
	return layout
}

// VertexData interleaves all present attributes in little endian.
func (m *Mesh) VertexData() []byte {
	layout := m.VertexBufferLayout()
	out := make([]byte, 0, int(layout.Stride)*m.VertexCount())
	putFloats := func(fs ...float32) {
		for _, f := range fs {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	for i := range m.Positions {
		for _, a := range layout.Attributes {
			switch a.Id {
			case AttributePosition:
				p := m.Positions[i]
				putFloats(p[0], p[1], p[2])
			case AttributeNormal:
				n := m.Normals[i]
				putFloats(n[0], n[1], n[2])
			case AttributeUV0:
				uv := m.UVs[i]
				putFloats(uv[0], uv[1])
			}
		}
	}
	return out
}

// EdgeIndices turns a triangle list into a line list holding every unique
// triangle edge once, the same edges a line polygon mode rasterizes.
func (m *Mesh) EdgeIndices() []uint16 {
	if m.Topology != PrimitiveTopologyTriangleList {
		return nil
	}
	tris := m.Indices
	if len(tris) == 0 {
		tris = make([]uint16, m.VertexCount())
		for i := range tris {
			tris[i] = uint16(i)
		}
	}

	type edge struct{ a, b uint16 }
	seen := make(map[edge]struct{})
	var out []uint16
	add := func(a, b uint16) {
		if a > b {
			a, b = b, a
		}
		e := edge{a, b}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, a, b)
	}
	for i := 0; i+2 < len(tris); i += 3 {
		add(tris[i], tris[i+1])
		add(tris[i+1], tris[i+2])
		add(tris[i+2], tris[i])
	}
	return out
}

type MeshAttribute struct {
	Id     MeshAttributeId
	Format VertexFormat
	Offset uint64
}

type MeshVertexBufferLayout struct {
	Attributes []MeshAttribute
	Stride     uint64
}

// Key identifies the layout for pipeline memoization.
func (l *MeshVertexBufferLayout) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", l.Stride)
	for _, a := range l.Attributes {
		fmt.Fprintf(&sb, "|%d:%d@%d", a.Id, a.Format, a.Offset)
	}
	return sb.String()
}

func (l *MeshVertexBufferLayout) Contains(id MeshAttributeId) bool {
	for _, a := range l.Attributes {
		if a.Id == id {
			return true
		}
	}
	return false
}

// AttributeLocation binds a mesh attribute to a shader location.
type AttributeLocation struct {
	Attribute MeshAttributeId
	Location  uint32
}

// Layout builds the pipeline vertex buffer layout for the requested
// attributes, failing if the mesh lacks one of them.
func (l *MeshVertexBufferLayout) Layout(locations ...AttributeLocation) (VertexBufferLayout, error) {
	out := VertexBufferLayout{ArrayStride: l.Stride}
	for _, loc := range locations {
		found := false
		for _, a := range l.Attributes {
			if a.Id != loc.Attribute {
				continue
			}
			out.Attributes = append(out.Attributes, VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: loc.Location,
			})
			found = true
			break
		}
		if !found {
			return VertexBufferLayout{}, fmt.Errorf("%s: %w", attributeNames[loc.Attribute], ErrMissingVertexAttribute)
		}
	}
	return out, nil
}

type GpuIndexBuffer struct {
	Buffer Buffer
	Count  uint32
	Format IndexFormat
}

// GpuMesh is the uploaded form of a Mesh.
type GpuMesh struct {
	VertexBuffer Buffer
	VertexCount  uint32
	Index        *GpuIndexBuffer
	Edges        *GpuIndexBuffer
	Topology     PrimitiveTopology
	Layout       *MeshVertexBufferLayout
}

func PrepareMesh(device Device, mesh *Mesh) (*GpuMesh, error) {
	vertexBuffer, err := device.CreateBufferInit(&BufferInitDescriptor{
		Label:    "mesh vertex buffer",
		Contents: mesh.VertexData(),
		Usage:    BufferUsageVertex,
	})
	if err != nil {
		return nil, err
	}

	out := &GpuMesh{
		VertexBuffer: vertexBuffer,
		VertexCount:  uint32(mesh.VertexCount()),
		Topology:     mesh.Topology,
		Layout:       mesh.VertexBufferLayout(),
	}

	if len(mesh.Indices) > 0 {
		out.Index, err = uploadIndices(device, "mesh index buffer", mesh.Indices)
		if err != nil {
			vertexBuffer.Release()
			return nil, err
		}
	}
	if edges := mesh.EdgeIndices(); len(edges) > 0 {
		out.Edges, err = uploadIndices(device, "mesh edge buffer", edges)
		if err != nil {
			out.Release()
			return nil, err
		}
	}
	return out, nil
}

func (m *GpuMesh) Release() {
	m.VertexBuffer.Release()
	if m.Index != nil {
		m.Index.Buffer.Release()
	}
	if m.Edges != nil {
		m.Edges.Buffer.Release()
	}
}

func uploadIndices(device Device, label string, indices []uint16) (*GpuIndexBuffer, error) {
	data := make([]byte, 0, len(indices)*2+2)
	for _, i := range indices {
		data = binary.LittleEndian.AppendUint16(data, i)
	}
	// buffer sizes must stay 4-byte aligned
	if len(data)%4 != 0 {
		data = append(data, 0, 0)
	}
	buf, err := device.CreateBufferInit(&BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    BufferUsageIndex,
	})
	if err != nil {
		return nil, err
	}
	return &GpuIndexBuffer{Buffer: buf, Count: uint32(len(indices)), Format: IndexFormatUint16}, nil
}
