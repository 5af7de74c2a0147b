package math

import (
	m "math"
	"testing"
)

const tolerance = 1e-5

func TestMat4MulOrder(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 0, 0))
	rotate := NewMat4EulerZ(K_HALF_PI)

	// translate first, then rotate: (1,0,0) -> (2,0,0) -> (0,2,0)
	p := NewVec3(1, 0, 0).Transform(translate.Mul(rotate))
	if !p.Compare(NewVec3(0, 2, 0), tolerance) {
		t.Fatalf("translate.Mul(rotate) gave %+v, want (0,2,0)", p)
	}

	// rotate first, then translate: (1,0,0) -> (0,1,0) -> (1,1,0)
	p = NewVec3(1, 0, 0).Transform(rotate.Mul(translate))
	if !p.Compare(NewVec3(1, 1, 0), tolerance) {
		t.Fatalf("rotate.Mul(translate) gave %+v, want (1,1,0)", p)
	}
}

func TestMat4IdentityMul(t *testing.T) {
	a := NewMat4AxisAngle(NewVec3(1, 1, 0), 0.7)
	if !a.Mul(NewMat4Identity()).Compare(a, tolerance) {
		t.Fatal("a * identity != a")
	}
	if !NewMat4Identity().Mul(a).Compare(a, tolerance) {
		t.Fatal("identity * a != a")
	}
}

func TestAxisAngle(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float32
		in    Vec3
		want  Vec3
	}{
		{"z quarter turn", NewVec3(0, 0, 1), K_HALF_PI, NewVec3(1, 0, 0), NewVec3(0, 1, 0)},
		{"y quarter turn", NewVec3(0, 1, 0), K_HALF_PI, NewVec3(0, 0, 1), NewVec3(1, 0, 0)},
		{"x quarter turn", NewVec3(1, 0, 0), K_HALF_PI, NewVec3(0, 1, 0), NewVec3(0, 0, 1)},
		{"unnormalized axis", NewVec3(0, 0, 5), K_PI, NewVec3(1, 0, 0), NewVec3(-1, 0, 0)},
		{"full turn", NewVec3(1, 1, 1), K_PI_2, NewVec3(0.3, -0.2, 0.9), NewVec3(0.3, -0.2, 0.9)},
		{"zero axis", NewVec3Zero(), 1.0, NewVec3(1, 2, 3), NewVec3(1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Transform(NewMat4AxisAngle(tt.axis, tt.angle))
			if !got.Compare(tt.want, 1e-4) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAxisAngleMatchesEulerZ(t *testing.T) {
	a := NewMat4AxisAngle(NewVec3(0, 0, 1), 0.4)
	b := NewMat4EulerZ(0.4)
	if !a.Compare(b, tolerance) {
		t.Fatalf("axis-angle about z %v differs from euler z %v", a.Data, b.Data)
	}
}

func TestLookAt(t *testing.T) {
	eye := NewVec3(0, 0, 3)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())

	// the target ends up straight ahead on -Z, at the eye distance
	origin := NewVec3Zero().Transform(view)
	if !origin.Compare(NewVec3(0, 0, -3), tolerance) {
		t.Fatalf("origin in view space = %+v", origin)
	}
	// right stays right and up stays up
	right := NewVec3(1, 0, 0).Transform(view)
	if !right.Compare(NewVec3(1, 0, -3), tolerance) {
		t.Fatalf("+X in view space = %+v", right)
	}
	up := NewVec3(0, 1, 0).Transform(view)
	if !up.Compare(NewVec3(0, 1, -3), tolerance) {
		t.Fatalf("+Y in view space = %+v", up)
	}
	// the eye itself is the view-space origin
	if p := eye.Transform(view); !p.Compare(NewVec3Zero(), tolerance) {
		t.Fatalf("eye in view space = %+v", p)
	}
}

func TestPerspectiveWithVulkanClip(t *testing.T) {
	near, far := float32(0.1), float32(100)
	proj := NewMat4Perspective(DegToRad(60), 1.0, near, far).Mul(NewMat4VulkanClip())

	ndcZ := func(viewZ float32) float32 {
		c := proj.MulVec4(NewVec4(0, 0, viewZ, 1))
		return c.Z / c.W
	}
	if z := ndcZ(-near); kabs(z) > 1e-4 {
		t.Fatalf("near plane depth = %f, want 0", z)
	}
	if z := ndcZ(-far); kabs(z-1) > 1e-3 {
		t.Fatalf("far plane depth = %f, want 1", z)
	}

	// +Y in view space maps to -Y in Vulkan clip space
	c := proj.MulVec4(NewVec4(0, 1, -2, 1))
	if c.Y/c.W >= 0 {
		t.Fatalf("expected flipped y, got %f", c.Y/c.W)
	}
}

func TestVec3(t *testing.T) {
	a := NewVec3(1, 0, 0)
	b := NewVec3(0, 1, 0)
	if c := a.Cross(b); !c.Compare(NewVec3(0, 0, 1), tolerance) {
		t.Fatalf("x cross y = %+v", c)
	}
	if d := a.Dot(b); d != 0 {
		t.Fatalf("x dot y = %f", d)
	}
	if l := NewVec3(3, 4, 0).Length(); kabs(l-5) > tolerance {
		t.Fatalf("length = %f", l)
	}
	if n := NewVec3(0, 0, 9).Normalized(); !n.Compare(NewVec3(0, 0, 1), tolerance) {
		t.Fatalf("normalized = %+v", n)
	}
	if n := NewVec3Zero().Normalized(); n != NewVec3Zero() {
		t.Fatalf("normalized zero = %+v", n)
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{m.Pi, m.Pi},
		{2 * m.Pi, 0},
		{-m.Pi / 2, 3 * m.Pi / 2},
		{5 * m.Pi, m.Pi},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); m.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapAngle(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
	if d := AngleDistance(0.01, 2*m.Pi-0.01); m.Abs(d-0.02) > 1e-9 {
		t.Errorf("AngleDistance across zero = %f", d)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatal("int clamp")
	}
	if Clamp(uint32(10), 1, 8) != 8 {
		t.Fatal("uint32 clamp")
	}
}

func TestAngleConversions(t *testing.T) {
	for _, deg := range []float32{0, 45, 90, 180, 360} {
		if got := RadToDeg(DegToRad(deg)); m.Abs(float64(got-deg)) > 1e-3 {
			t.Errorf("round trip of %v degrees = %v", deg, got)
		}
	}
	if got := DegToRad(180); m.Abs(float64(got)-m.Pi) > tolerance {
		t.Errorf("DegToRad(180) = %v", got)
	}
}

func TestAxisAngleRotationBlock(t *testing.T) {
	axis := NewVec3(1, 1, 0).Normalized()
	identity := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}

	if got := NewMat4AxisAngle(axis, 0).Rotation(); got != identity {
		t.Fatalf("zero angle rotation = %v", got)
	}

	// A quarter turn about z sends x to y: row 1, column 0 of the block.
	quarter := NewMat4AxisAngle(NewVec3(0, 0, 1), K_HALF_PI).Rotation()
	if m.Abs(float64(quarter[3]-1)) > tolerance || m.Abs(float64(quarter[0])) > tolerance {
		t.Fatalf("quarter turn about z = %v", quarter)
	}
}
