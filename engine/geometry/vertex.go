package geometry

import (
	"encoding/binary"
	m "math"

	"github.com/spaghettifunk/kiln/engine/math"
)

// VertexSize is the packed size of one Vertex in bytes.
const VertexSize = 36

// IndexSize is the size of one index in bytes.
const IndexSize = 4

// Vertex is the only vertex layout the pipeline accepts.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Color    math.Vec3
}

// UpAxis selects which axis a generated shape faces or stands along.
type UpAxis int

const (
	AxisX UpAxis = iota
	AxisY
	AxisZ
)

func (a UpAxis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return "unknown"
}

func putVec3(dst []byte, v math.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], m.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:], m.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:], m.Float32bits(v.Z))
}

// Pack writes v into dst, which must hold at least VertexSize bytes.
func (v Vertex) Pack(dst []byte) {
	putVec3(dst[0:], v.Position)
	putVec3(dst[12:], v.Normal)
	putVec3(dst[24:], v.Color)
}
