package components

import (
	"testing"

	"github.com/spaghettifunk/spincube/engine/math"
)

func TestCameraLooksDownNegativeZ(t *testing.T) {
	camera := NewCamera(math.NewVec3(0, 0, 3), math.NewVec3Zero(), math.DegToRad(45), 1, 0.1, 100)

	// The target sits straight ahead of the eye, so it lands at the view-space origin shifted by -3 on z.
	target := camera.GetView().MulVec4(math.NewVec4(0, 0, 0, 1))
	if !math.NewVec3(target.X, target.Y, target.Z).Compare(math.NewVec3(0, 0, -3), 1e-5) {
		t.Fatalf("target in view space = %+v", target)
	}
}

func TestCameraProjectsIntoVulkanDepthRange(t *testing.T) {
	camera := NewCamera(math.NewVec3(0, 0, 3), math.NewVec3Zero(), math.DegToRad(45), 4.0/3.0, 0.1, 100)
	vp := camera.GetViewProjection()

	clip := vp.MulVec4(math.NewVec4(0, 0, 0, 1))
	if clip.W <= 0 {
		t.Fatalf("origin is behind the camera: %+v", clip)
	}
	depth := clip.Z / clip.W
	if depth <= 0 || depth >= 1 {
		t.Errorf("depth %f outside [0, 1]", depth)
	}

	// World up must map to negative clip y once the Vulkan flip is applied.
	up := vp.MulVec4(math.NewVec4(0, 0.5, 0, 1))
	if up.Y/up.W >= 0 {
		t.Errorf("world up projected to y=%f", up.Y/up.W)
	}
}

func TestCameraRebuildsWhenDirty(t *testing.T) {
	camera := NewCamera(math.NewVec3(0, 0, 3), math.NewVec3Zero(), math.DegToRad(45), 1, 0.1, 100)
	before := camera.GetViewProjection()
	if camera.IsDirty {
		t.Fatal("camera still dirty after a read")
	}

	camera.SetAspectRatio(2)
	if !camera.IsDirty {
		t.Fatal("SetAspectRatio did not mark the camera dirty")
	}
	if camera.GetViewProjection().Compare(before, 1e-6) {
		t.Error("view projection not rebuilt after an aspect change")
	}

	camera.SetPosition(math.NewVec3(0, 0, 5))
	after := camera.GetView().MulVec4(math.NewVec4(0, 0, 0, 1))
	if !math.NewVec3(after.X, after.Y, after.Z).Compare(math.NewVec3(0, 0, -5), 1e-5) {
		t.Errorf("target in view space = %+v", after)
	}
}
