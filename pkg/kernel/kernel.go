// Package kernel defines the abstract solid-modeling interface used to
// build template surfaces. Implementations (sdfx) turn implicit solids
// into triangle soups behind this interface, so template construction
// does not depend on a particular backend.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Ellipsoid(rx, ry, rz float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid

	// Mesh output. cells is the tessellation resolution along the
	// longest bounding box axis; values <= 0 select the kernel default.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
