// Package containment answers whether a point lies inside a mesh.
//
// The test is radial: find the mesh vertex nearest to the point and
// compare distances from the origin. It is exact for star-shaped meshes
// centered on the origin and misclassifies points in concavities.
package containment

import (
	"math"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects the containment test.
type Mode int

const (
	// Radial compares the point's distance from the origin with that of
	// its nearest mesh vertex.
	Radial Mode = iota
)

func (m Mode) String() string {
	if m == Radial {
		return "radial"
	}
	return "unknown"
}

// Oracle answers point-in-mesh queries against a fixed mesh geometry.
// It is safe for concurrent use once built.
type Oracle struct {
	mode Mode
	all  *kdtree.Tree
	neg  *kdtree.Tree // vertices with x < 0
	pos  *kdtree.Tree // vertices with x > 0
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithMode selects the containment test.
func WithMode(m Mode) Option {
	return func(o *Oracle) { o.mode = m }
}

// New indexes the vertices referenced by the mesh faces.
func New(m *geometry.Mesh, opts ...Option) (*Oracle, error) {
	o := &Oracle{mode: Radial}
	for _, opt := range opts {
		opt(o)
	}
	if o.mode != Radial {
		return nil, errors.Errorf("unsupported containment mode %d", int(o.mode))
	}

	vertices := m.Vertices()
	seen := make([]bool, len(vertices))
	var all, neg, pos kdtree.Points
	for _, f := range m.Faces() {
		for _, vi := range f {
			if seen[vi] {
				continue
			}
			seen[vi] = true
			v := vertices[vi]
			p := kdtree.Point{v.X, v.Y, v.Z}
			all = append(all, p)
			switch {
			case v.X < 0:
				neg = append(neg, p)
			case v.X > 0:
				pos = append(pos, p)
			}
		}
	}
	if len(all) == 0 {
		return nil, errors.Wrap(geometry.ErrInvalidMesh, "no referenced vertices")
	}

	o.all = kdtree.New(all, false)
	if len(neg) > 0 {
		o.neg = kdtree.New(neg, false)
	}
	if len(pos) > 0 {
		o.pos = kdtree.New(pos, false)
	}
	return o, nil
}

// Mode returns the containment test in use.
func (o *Oracle) Mode() Mode { return o.mode }

// IsInside reports whether p lies strictly inside the mesh. Unless
// contribute is set, only vertices on p's side of the x = 0 plane are
// candidates; a point off the plane with no vertex on its side is outside.
func (o *Oracle) IsInside(p r3.Vec, contribute bool) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return false
	}
	nearest, ok := o.Nearest(p, contribute)
	if !ok {
		return false
	}
	return r3.Norm(p) < r3.Norm(nearest)
}

// Nearest returns the candidate vertex closest to p under the hemisphere
// rule of IsInside. ok is false when no vertex qualifies.
func (o *Oracle) Nearest(p r3.Vec, contribute bool) (v r3.Vec, ok bool) {
	tree := o.all
	if !contribute {
		switch {
		case p.X < 0:
			tree = o.neg
		case p.X > 0:
			tree = o.pos
		}
	}
	if tree == nil {
		return r3.Vec{}, false
	}
	c, _ := tree.Nearest(kdtree.Point{p.X, p.Y, p.Z})
	q := c.(kdtree.Point)
	return r3.Vec{X: q[0], Y: q[1], Z: q[2]}, true
}
