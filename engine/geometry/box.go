package geometry

import (
	"github.com/spaghettifunk/kiln/engine/math"
)

type boxFace struct {
	translate math.Vec3
	normal    math.Vec3
	clockwise bool
}

func boxFaces(width, height, depth float32) [6]boxFace {
	return [6]boxFace{
		// top
		{math.NewVec3(0, 0, depth*0.5), math.NewVec3(0, 0, 1), false},
		// bottom
		{math.NewVec3(0, 0, -depth*0.5), math.NewVec3(0, 0, -1), true},
		// right
		{math.NewVec3(width*0.5, 0, 0), math.NewVec3(1, 0, 0), false},
		// left
		{math.NewVec3(-width*0.5, 0, 0), math.NewVec3(-1, 0, 0), true},
		// front
		{math.NewVec3(0, height*0.5, 0), math.NewVec3(0, 1, 0), false},
		// rear
		{math.NewVec3(0, -height*0.5, 0), math.NewVec3(0, -1, 0), true},
	}
}

// buildFace appends one box face and returns the first vertex index of the
// next face.
func buildFace(mesh *Mesh, start uint32, width, height float32, face boxFace, color math.Vec3, horizontalSegments, verticalSegments uint32) uint32 {
	t := face.translate
	for i := uint32(0); i <= horizontalSegments; i++ {
		x := -(width * 0.5) + float32(i)*(width/float32(horizontalSegments))
		for j := uint32(0); j <= verticalSegments; j++ {
			y := -(height * 0.5) + float32(j)*(height/float32(verticalSegments))

			var pos math.Vec3
			switch {
			case face.normal.Z != 0:
				pos = math.NewVec3(t.X+x, t.Y+y, t.Z)
			case face.normal.Y != 0:
				pos = math.NewVec3(t.X+y, t.Y, t.Z+x)
			default:
				pos = math.NewVec3(t.X, t.Y+x, t.Z+y)
			}
			mesh.AddVertex(Vertex{Position: pos, Normal: face.normal, Color: color})
		}
	}

	// Vertices are laid out column by column, verticalSegments+1 per column.
	column := verticalSegments + 1
	for j := uint32(0); j < verticalSegments; j++ {
		for i := uint32(0); i < horizontalSegments; i++ {
			first := start + i*column + j
			second := first + column
			third := first + 1
			fourth := second + 1

			if face.clockwise {
				mesh.AddIndex(first)
				mesh.AddIndex(third)
				mesh.AddIndex(second)

				mesh.AddIndex(third)
				mesh.AddIndex(fourth)
				mesh.AddIndex(second)
			} else {
				mesh.AddIndex(first)
				mesh.AddIndex(second)
				mesh.AddIndex(third)

				mesh.AddIndex(third)
				mesh.AddIndex(second)
				mesh.AddIndex(fourth)
			}
		}
	}
	return start + (horizontalSegments+1)*(verticalSegments+1)
}

func generateBox(halfExtents math.Vec3, horizontalSegments, verticalSegments uint32, colors [6]math.Vec3) *Mesh {
	width := halfExtents.X * 2
	height := halfExtents.Y * 2
	depth := halfExtents.Z * 2

	mesh := NewMesh()
	start := uint32(0)
	for i, face := range boxFaces(width, height, depth) {
		start = buildFace(mesh, start, width, height, face, colors[i], horizontalSegments, verticalSegments)
	}
	return mesh
}

// GenerateBox builds an axis-aligned white box centered on the origin.
// Faces are emitted as +Z, -Z, +X, -X, +Y, -Y.
func GenerateBox(halfExtents math.Vec3, horizontalSegments, verticalSegments uint32) *Mesh {
	return GenerateBoxColored(halfExtents, horizontalSegments, verticalSegments, math.NewVec3One())
}

func GenerateBoxColored(halfExtents math.Vec3, horizontalSegments, verticalSegments uint32, color math.Vec3) *Mesh {
	return generateBox(halfExtents, horizontalSegments, verticalSegments, [6]math.Vec3{color, color, color, color, color, color})
}

// GenerateBoxFaceColored colors each face separately, in face order.
func GenerateBoxFaceColored(halfExtents math.Vec3, horizontalSegments, verticalSegments uint32, colors [6]math.Vec3) *Mesh {
	return generateBox(halfExtents, horizontalSegments, verticalSegments, colors)
}
