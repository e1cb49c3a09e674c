package geometry

import (
	"github.com/spaghettifunk/kiln/engine/math"
)

// planeDefaultColor marks a plane that was never colored.
var planeDefaultColor = math.NewVec3(-1, -1, -1)

// GeneratePlane builds a width x height grid centered on the origin and
// facing +Z, then turns it to face up.
func GeneratePlane(width, height float32, up UpAxis, widthSegments, heightSegments uint32) *Mesh {
	mesh := NewMesh()

	for i := uint32(0); i <= widthSegments; i++ {
		x := -(width / 2) + float32(i)*(width/float32(widthSegments))
		for j := uint32(0); j <= heightSegments; j++ {
			y := -(height / 2) + float32(j)*(height/float32(heightSegments))
			mesh.AddVertex(Vertex{
				Position: math.NewVec3(x, y, 0),
				Normal:   math.NewVec3(0, 0, 1),
				Color:    planeDefaultColor,
			})
		}
	}

	for i := uint32(0); i < widthSegments; i++ {
		for j := uint32(0); j < heightSegments; j++ {
			first := i*(heightSegments+1) + j
			second := first + heightSegments + 1
			third := first + 1
			fourth := second + 1

			mesh.AddIndex(first)
			mesh.AddIndex(second)
			mesh.AddIndex(third)

			mesh.AddIndex(third)
			mesh.AddIndex(second)
			mesh.AddIndex(fourth)
		}
	}

	switch up {
	case AxisX:
		for i := range mesh.Vertices {
			v := &mesh.Vertices[i]
			v.Position.X, v.Position.Z = v.Position.Z, -v.Position.X
			v.Normal.X, v.Normal.Z = v.Normal.Z, -v.Normal.X
		}
	case AxisY:
		for i := range mesh.Vertices {
			v := &mesh.Vertices[i]
			v.Position.Y, v.Position.Z = v.Position.Z, -v.Position.Y
			v.Normal.Y, v.Normal.Z = v.Normal.Z, -v.Normal.Y
		}
	}
	return mesh
}

func GeneratePlaneColored(width, height float32, up UpAxis, widthSegments, heightSegments uint32, color math.Vec3) *Mesh {
	mesh := GeneratePlane(width, height, up, widthSegments, heightSegments)
	mesh.SetColor(color)
	return mesh
}
