// Package tessellate turns template surface descriptions into indexed
// triangle meshes. Implicit parts go through a geometry kernel and come
// back as triangle soup, which Weld folds into shared vertices; the
// icosphere family is generated directly.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/cortex/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Part is one closed surface of a template: an axis-aligned ellipsoid
// with the given semi-axes, centered at Center.
type Part struct {
	Name   string
	Radii  r3.Vec
	Center r3.Vec
}

// Tessellate unions all parts into a single solid and converts it to a
// triangle soup with the provided kernel.
func Tessellate(parts []Part, k kernel.Kernel, cells int) (*kernel.Mesh, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("tessellate: no parts")
	}

	var solid kernel.Solid
	for _, p := range parts {
		if p.Radii.X <= 0 || p.Radii.Y <= 0 || p.Radii.Z <= 0 {
			return nil, fmt.Errorf("tessellate: part %q has non-positive radii %v", p.Name, p.Radii)
		}
		s := k.Ellipsoid(p.Radii.X, p.Radii.Y, p.Radii.Z)
		if p.Center != (r3.Vec{}) {
			s = k.Translate(s, p.Center.X, p.Center.Y, p.Center.Z)
		}
		if solid == nil {
			solid = s
		} else {
			solid = k.Union(solid, s)
		}
	}

	mesh, err := k.ToMesh(solid, cells)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed: %w", err)
	}
	return mesh, nil
}

// weldKey quantizes a position so that coincident soup vertices share a key.
type weldKey [3]int64

func quantize(x, y, z, tol float64) weldKey {
	return weldKey{
		int64(math.Round(x / tol)),
		int64(math.Round(y / tol)),
		int64(math.Round(z / tol)),
	}
}

// Weld merges soup vertices closer than tol (per axis, after
// quantization) and drops triangles that collapse to a line or point.
func Weld(m *kernel.Mesh, tol float64) ([]r3.Vec, [][3]int, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil, fmt.Errorf("tessellate: weld of empty mesh")
	}
	if tol <= 0 {
		return nil, nil, fmt.Errorf("tessellate: weld tolerance must be positive, got %g", tol)
	}
	if len(m.Indices)%3 != 0 {
		return nil, nil, fmt.Errorf("tessellate: %d indices is not a multiple of 3", len(m.Indices))
	}

	index := make(map[weldKey]int, m.VertexCount()/4)
	remap := make([]int, m.VertexCount())
	var vertices []r3.Vec
	for i := range remap {
		x := float64(m.Vertices[3*i])
		y := float64(m.Vertices[3*i+1])
		z := float64(m.Vertices[3*i+2])
		key := quantize(x, y, z, tol)
		id, ok := index[key]
		if !ok {
			id = len(vertices)
			index[key] = id
			vertices = append(vertices, r3.Vec{X: x, Y: y, Z: z})
		}
		remap[i] = id
	}

	faces := make([][3]int, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		var f [3]int
		for c := 0; c < 3; c++ {
			idx := int(m.Indices[3*t+c])
			if idx >= len(remap) {
				return nil, nil, fmt.Errorf("tessellate: triangle %d references vertex %d of %d", t, idx, len(remap))
			}
			f[c] = remap[idx]
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		faces = append(faces, f)
	}
	return vertices, faces, nil
}
