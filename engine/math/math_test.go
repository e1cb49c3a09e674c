package math

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const delta = 1e-5

func requireVec4(t *testing.T, expected, actual Vec4) {
	t.Helper()
	require.InDelta(t, expected.X, actual.X, delta)
	require.InDelta(t, expected.Y, actual.Y, delta)
	require.InDelta(t, expected.Z, actual.Z, delta)
	require.InDelta(t, expected.W, actual.W, delta)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := NewVec3(1.2, 1.2, 1.0)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3(0, 0, 1))

	requireVec4(t, NewVec4(0, 0, 0, 1), view.MulVec4(eye.ToVec4(1)))

	// The target lies straight down -Z in view space.
	dist := eye.Length()
	requireVec4(t, NewVec4(0, 0, -dist, 1), view.MulVec4(NewVec4(0, 0, 0, 1)))
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(10)
	proj := NewMat4Perspective(DegToRad(60), 800.0/600.0, near, far)

	n := proj.MulVec4(NewVec4(0, 0, -near, 1))
	require.InDelta(t, 0, n.Z/n.W, delta)

	f := proj.MulVec4(NewVec4(0, 0, -far, 1))
	require.InDelta(t, 1, f.Z/f.W, delta)
}

func TestMulComposesLeftFirst(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 0, 0))
	scale := NewMat4Scale(NewVec3(2, 2, 2))

	// Translate, then scale.
	out := translate.Mul(scale).MulVec4(NewVec4(1, 0, 0, 1))
	requireVec4(t, NewVec4(4, 0, 0, 1), out)

	out = scale.Mul(translate).MulVec4(NewVec4(1, 0, 0, 1))
	requireVec4(t, NewVec4(3, 0, 0, 1), out)
}

func TestIdentityIsNeutral(t *testing.T) {
	m := NewMat4LookAt(NewVec3(3, 2, 1), NewVec3Zero(), NewVec3(0, 0, 1))
	require.Equal(t, m, m.Mul(NewMat4Identity()))
	require.Equal(t, m, NewMat4Identity().Mul(m))
}

func TestQuaternionRotation(t *testing.T) {
	tests := []struct {
		name     string
		q        Quaternion
		in, want Vec4
	}{
		{"identity", NewQuatIdentity(), NewVec4(1, 2, 3, 1), NewVec4(1, 2, 3, 1)},
		{"euler z 90", NewQuatFromEuler(NewVec3(0, 0, DegToRad(90))), NewVec4(1, 0, 0, 0), NewVec4(0, 1, 0, 0)},
		{"euler x 90", NewQuatFromEuler(NewVec3(DegToRad(90), 0, 0)), NewVec4(0, 1, 0, 0), NewVec4(0, 0, 1, 0)},
		{"axis y 90", NewQuatFromAxisAngle(NewVec3(0, 1, 0), DegToRad(90), true), NewVec4(0, 0, 1, 0), NewVec4(1, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireVec4(t, tt.want, tt.q.ToMat4().MulVec4(tt.in))
		})
	}
}

func TestVec3Ops(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	require.Equal(t, NewVec3(0, 0, 1), x.Cross(y))
	require.Equal(t, float32(0), x.Dot(y))
	require.InDelta(t, 1, NewVec3(3, 4, 0).Normalize().Length(), delta)
	require.Equal(t, NewVec3Zero(), NewVec3Zero().Normalize())
	require.True(t, x.Add(y).Sub(y).Compare(x, delta))
}

func TestClamp(t *testing.T) {
	require.Equal(t, uint32(2), Clamp(uint32(1), 2, 8))
	require.Equal(t, uint32(8), Clamp(uint32(9), 2, 8))
	require.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}
