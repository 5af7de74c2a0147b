package metadata

import (
	"fmt"

	"github.com/spaghettifunk/spincube/engine/math"
)

// Bounds returns the axis-aligned extents of the mesh.
func (mesh *Mesh) Bounds() (min, max math.Vec3) {
	if len(mesh.Vertices) == 0 {
		return
	}
	min = mesh.Vertices[0].Position
	max = min
	for _, v := range mesh.Vertices[1:] {
		p := v.Position
		min = math.NewVec3(fmin(min.X, p.X), fmin(min.Y, p.Y), fmin(min.Z, p.Z))
		max = math.NewVec3(fmax(max.X, p.X), fmax(max.Y, p.Y), fmax(max.Z, p.Z))
	}
	return
}

// Validate checks that every index refers to a vertex and that the index
// list describes whole triangles.
func (mesh *Mesh) Validate() error {
	if len(mesh.Indices)%3 != 0 {
		return fmt.Errorf("mesh %s: index count %d is not a multiple of 3", mesh.Name, len(mesh.Indices))
	}
	for i, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Vertices) {
			return fmt.Errorf("mesh %s: index %d refers to vertex %d of %d", mesh.Name, i, idx, len(mesh.Vertices))
		}
	}
	return nil
}

func fmin(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
