package geometry

import (
	"github.com/spaghettifunk/kiln/engine/math"
)

/**
 * @brief Generates a UV sphere centered on the origin.
 *
 * The poles are built from a full ring of coincident vertices. The
 * degenerate triangles touching them are left out of the index list, so
 * some pole vertices are never referenced.
 *
 * @param radius The sphere radius.
 * @param longitudinalSegments Segments around the Y axis.
 * @param latitudinalSegments Segments from pole to pole.
 */
func GenerateSphere(radius float32, longitudinalSegments, latitudinalSegments uint32) *Mesh {
	mesh := NewMesh()

	for lat := uint32(0); lat <= latitudinalSegments; lat++ {
		for long := uint32(0); long <= longitudinalSegments; long++ {
			theta := float32(lat) * math.K_PI / float32(latitudinalSegments)
			phi := float32(long) * 2.0 * math.K_PI / float32(longitudinalSegments)

			sinTheta := math.Sin(theta)
			cosTheta := math.Cos(theta)

			normal := math.NewVec3(math.Cos(phi)*sinTheta, cosTheta, math.Sin(phi)*sinTheta)
			mesh.AddVertex(Vertex{
				Position: normal.MulScalar(radius),
				Normal:   normal,
			})
		}
	}

	for lat := uint32(0); lat < latitudinalSegments; lat++ {
		for long := uint32(0); long < longitudinalSegments; long++ {
			first := lat*(longitudinalSegments+1) + long
			second := first + longitudinalSegments + 1
			third := first + 1
			fourth := second + 1

			if lat != 0 {
				mesh.AddIndex(first)
				mesh.AddIndex(third)
				mesh.AddIndex(second)
			}
			if lat != latitudinalSegments-1 {
				mesh.AddIndex(second)
				mesh.AddIndex(third)
				mesh.AddIndex(fourth)
			}
		}
	}
	return mesh
}

func GenerateSphereColored(radius float32, longitudinalSegments, latitudinalSegments uint32, color math.Vec3) *Mesh {
	mesh := GenerateSphere(radius, longitudinalSegments, latitudinalSegments)
	mesh.SetColor(color)
	return mesh
}
