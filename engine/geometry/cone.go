package geometry

import (
	"github.com/spaghettifunk/kiln/engine/math"
)

// ConeConfig describes a cone or truncated cylinder standing on Up.
type ConeConfig struct {
	Height           float32
	TopRadius        float32
	BottomRadius     float32
	Up               UpAxis
	RadialSegments   uint32
	VerticalSegments uint32
	OpenEnded        bool
}

func addRing(mesh *Mesh, count uint32, pos, normal math.Vec3) {
	for s := uint32(0); s <= count; s++ {
		mesh.AddVertex(Vertex{Position: pos, Normal: normal})
	}
}

/**
 * @brief Generates a cone, or a cylinder when both radii match.
 *
 * Closed cones get a ring of coincident vertices at the center of each cap.
 * Triangles whose area collapses to zero at a cap or at a zero radius are
 * dropped from the index list, so the vertex list is larger than what
 * the indices reference.
 */
func GenerateCone(config ConeConfig) *Mesh {
	mesh := NewMesh()

	height := config.Height
	rs := config.RadialSegments
	vs := config.VerticalSegments
	dR := config.BottomRadius - config.TopRadius
	length := math.Sqrt(height*height + dR*dR)

	if !config.OpenEnded {
		addRing(mesh, rs, math.NewVec3(0, -(height/2), 0), math.NewVec3(0, -1, 0))
	}

	for t := uint32(0); t <= vs; t++ {
		radius := config.BottomRadius - dR*float32(t)/float32(vs)
		for s := uint32(0); s <= rs; s++ {
			theta := float32(s) * 2.0 * math.K_PI / float32(rs)
			sinTheta := math.Sin(theta)
			cosTheta := math.Cos(theta)
			mesh.AddVertex(Vertex{
				Position: math.NewVec3(radius*sinTheta, -(height/2)+(float32(t)*height/float32(vs)), radius*cosTheta),
				Normal:   math.NewVec3(sinTheta*height/length, dR/length, cosTheta*height/length),
			})
		}
	}

	if !config.OpenEnded {
		addRing(mesh, rs, math.NewVec3(0, height/2, 0), math.NewVec3(0, 1, 0))
	}

	totalNT := int(vs)
	if !config.OpenEnded {
		totalNT = int(vs) + 2
	}

	for t := 0; t < totalNT; t++ {
		for s := uint32(0); s < rs; s++ {
			first := uint32(t)*(rs+1) + s
			second := first + rs + 1
			third := first + 1
			fourth := second + 1

			excludeFirst := t == 0 || (t == 1 && config.BottomRadius == 0)
			excludeSecond := t == totalNT-1 || (t == totalNT-2 && config.TopRadius == 0)

			if !excludeFirst {
				mesh.AddIndex(first)
				mesh.AddIndex(third)
				mesh.AddIndex(second)
			}
			if !excludeSecond {
				mesh.AddIndex(second)
				mesh.AddIndex(third)
				mesh.AddIndex(fourth)
			}
		}
	}

	switch config.Up {
	case AxisX:
		for i := range mesh.Vertices {
			v := &mesh.Vertices[i]
			v.Position.X, v.Position.Y = v.Position.Y, -v.Position.X
			v.Normal.X, v.Normal.Y = v.Normal.Y, -v.Normal.X
		}
	case AxisZ:
		for i := range mesh.Vertices {
			v := &mesh.Vertices[i]
			v.Position.Y, v.Position.Z = -v.Position.Z, v.Position.Y
			v.Normal.Y, v.Normal.Z = -v.Normal.Z, v.Normal.Y
		}
	}
	return mesh
}

func GenerateConeColored(config ConeConfig, color math.Vec3) *Mesh {
	mesh := GenerateCone(config)
	mesh.SetColor(color)
	return mesh
}
