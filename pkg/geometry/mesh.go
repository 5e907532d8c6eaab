// Package geometry is the geometry store of the projection engine: an
// immutable triangle mesh plus a mutable per-face-vertex RGBA buffer.
// All color writes go through SetColor, which validates the whole write
// before touching the buffer, so observers never see a partial update.
package geometry

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidMesh is returned when geometry has the wrong shape or
	// references vertices that do not exist.
	ErrInvalidMesh = errors.New("invalid mesh")
	// ErrUnknownTemplate is returned by Load for names outside the catalog.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrShapeMismatch is returned when a buffer does not match the mesh
	// (or, for source sets, when positions and data disagree).
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidColor is returned when a color buffer contains NaN.
	ErrInvalidColor = errors.New("invalid color")
)

// shape is the immutable part of a mesh. Templates share one shape
// between every Mesh loaded from them.
type shape struct {
	vertices []r3.Vec
	faces    [][3]int
	// Face-vertex coordinates in structure-of-arrays form, slot 3*f+c.
	x, y, z []float64
}

func newShape(vertices []r3.Vec, faces [][3]int) *shape {
	n := len(faces) * 3
	s := &shape{
		vertices: vertices,
		faces:    faces,
		x:        make([]float64, n),
		y:        make([]float64, n),
		z:        make([]float64, n),
	}
	for f, face := range faces {
		for c, vi := range face {
			v := vertices[vi]
			k := 3*f + c
			s.x[k], s.y[k], s.z[k] = v.X, v.Y, v.Z
		}
	}
	return s
}

// Mesh is a triangle mesh with a face-vertex color buffer.
// Geometry is immutable after construction; colors change only through
// SetColor and ResetColor. Mesh is safe for concurrent readers.
type Mesh struct {
	Name string

	geo          *shape
	defaultColor RGBA

	mu     sync.RWMutex
	colors []RGBA
}

// Option configures a Mesh at construction.
type Option func(*Mesh)

// WithName sets the mesh name.
func WithName(name string) Option {
	return func(m *Mesh) { m.Name = name }
}

// WithDefaultColor sets the color the buffer starts with and that
// ResetColor restores.
func WithDefaultColor(c RGBA) Option {
	return func(m *Mesh) { m.defaultColor = c.Clamped() }
}

// NewMesh builds a mesh from vertex positions and zero-based faces.
// Faces whose minimum index is not zero are shifted down so that the
// smallest index becomes zero (one-based input).
func NewMesh(vertices []r3.Vec, faces [][3]int, opts ...Option) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, errors.Wrap(ErrInvalidMesh, "mesh has no vertices")
	}
	if len(faces) == 0 {
		return nil, errors.Wrap(ErrInvalidMesh, "mesh has no faces")
	}
	for i, v := range vertices {
		if !finite(v.X) || !finite(v.Y) || !finite(v.Z) {
			return nil, errors.Wrapf(ErrInvalidMesh, "vertex %d is not finite: %v", i, v)
		}
	}

	lo := faces[0][0]
	for _, f := range faces {
		for _, vi := range f {
			if vi < lo {
				lo = vi
			}
		}
	}
	fs := make([][3]int, len(faces))
	for i, f := range faces {
		for c := range f {
			vi := f[c] - lo
			if vi >= len(vertices) {
				return nil, errors.Wrapf(ErrInvalidMesh,
					"face %d references vertex %d, mesh has %d vertices", i, vi, len(vertices))
			}
			fs[i][c] = vi
		}
	}

	vs := make([]r3.Vec, len(vertices))
	copy(vs, vertices)
	return newMeshFromShape(newShape(vs, fs), opts...), nil
}

func newMeshFromShape(s *shape, opts ...Option) *Mesh {
	m := &Mesh{geo: s, defaultColor: DefaultColor}
	for _, opt := range opts {
		opt(m)
	}
	m.colors = make([]RGBA, len(s.faces)*3)
	for k := range m.colors {
		m.colors[k] = m.defaultColor
	}
	return m
}

// LoadCustom builds a mesh from caller-supplied arrays. vertices must be
// (V,3) or (3,V) and faces (F,3) or (3,F); the transposed layouts are
// accepted and converted.
func LoadCustom(vertices [][]float64, faces [][]int, opts ...Option) (*Mesh, error) {
	vt, ok := toTriples(vertices)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMesh, "vertices must be (V,3) or (3,V), got %d rows", len(vertices))
	}
	ft, ok := toTriples(faces)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMesh, "faces must be (F,3) or (3,F), got %d rows", len(faces))
	}
	vs := make([]r3.Vec, len(vt))
	for i, v := range vt {
		vs[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	return NewMesh(vs, ft, opts...)
}

// toTriples interprets in as N rows of three, transposing a 3xN layout.
// A 3x3 input is read row-wise.
func toTriples[T any](in [][]T) ([][3]T, bool) {
	if len(in) == 0 {
		return nil, false
	}
	rows := true
	for _, r := range in {
		if len(r) != 3 {
			rows = false
			break
		}
	}
	if rows {
		out := make([][3]T, len(in))
		for i, r := range in {
			out[i] = [3]T{r[0], r[1], r[2]}
		}
		return out, true
	}
	if len(in) != 3 || len(in[0]) == 0 || len(in[0]) != len(in[1]) || len(in[1]) != len(in[2]) {
		return nil, false
	}
	out := make([][3]T, len(in[0]))
	for i := range out {
		out[i] = [3]T{in[0][i], in[1][i], in[2][i]}
	}
	return out, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ---------------------------------------------------------------------------
// Geometry lookups
// ---------------------------------------------------------------------------

// NumVertices returns V.
func (m *Mesh) NumVertices() int { return len(m.geo.vertices) }

// NumFaces returns F.
func (m *Mesh) NumFaces() int { return len(m.geo.faces) }

// NumSlots returns the number of face-vertex slots, 3F.
func (m *Mesh) NumSlots() int { return len(m.geo.faces) * 3 }

// Vertices returns the vertex positions. The slice is shared and must
// not be modified.
func (m *Mesh) Vertices() []r3.Vec { return m.geo.vertices }

// Faces returns the zero-based face index triplets. The slice is shared
// and must not be modified.
func (m *Mesh) Faces() [][3]int { return m.geo.faces }

// FaceVertices returns the face-vertex coordinates as three parallel
// arrays indexed by slot 3*f+c. The slices are shared and must not be
// modified.
func (m *Mesh) FaceVertices() (x, y, z []float64) {
	return m.geo.x, m.geo.y, m.geo.z
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	min, max = m.geo.vertices[0], m.geo.vertices[0]
	for _, v := range m.geo.vertices[1:] {
		min.X, max.X = math.Min(min.X, v.X), math.Max(max.X, v.X)
		min.Y, max.Y = math.Min(min.Y, v.Y), math.Max(max.Y, v.Y)
		min.Z, max.Z = math.Min(min.Z, v.Z), math.Max(max.Z, v.Z)
	}
	return min, max
}

// Normals returns area-weighted unit vertex normals. Vertices that no
// face references get a zero normal.
func (m *Mesh) Normals() []r3.Vec {
	normals := make([]r3.Vec, len(m.geo.vertices))
	for _, f := range m.geo.faces {
		a, b, c := m.geo.vertices[f[0]], m.geo.vertices[f[1]], m.geo.vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, vi := range f {
			normals[vi] = r3.Add(normals[vi], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}

// ---------------------------------------------------------------------------
// Color buffer
// ---------------------------------------------------------------------------

// DefaultColor returns the color the buffer was initialized with.
func (m *Mesh) DefaultColor() RGBA { return m.defaultColor }

// Colors returns a copy of the face-vertex color buffer.
func (m *Mesh) Colors() FaceColors {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(FaceColors, len(m.colors))
	copy(out, m.colors)
	return out
}

// VertexColors returns one color per vertex, taken from the last face
// slot that references it. Unreferenced vertices report the default color.
func (m *Mesh) VertexColors() VertexColors {
	out := make(VertexColors, len(m.geo.vertices))
	for i := range out {
		out[i] = m.defaultColor
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for f, face := range m.geo.faces {
		for c, vi := range face {
			out[vi] = m.colors[3*f+c]
		}
	}
	return out
}

// SetColor writes buf into the color buffer. A VertexColors buffer is
// broadcast through the faces; a FaceColors buffer is copied slot by
// slot. When mask is non-nil only entries whose mask is true are written;
// the mask is indexed like buf. Components are clamped to [0, 1]. The
// buffer is left untouched when the write is rejected.
func (m *Mesh) SetColor(buf ColorBuffer, mask []bool) error {
	switch b := buf.(type) {
	case FaceColors:
		if len(b) != m.NumSlots() {
			return errors.Wrapf(ErrShapeMismatch, "face colors have %d entries, mesh has %d slots", len(b), m.NumSlots())
		}
		if err := checkBuffer(b, mask); err != nil {
			return err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		for k, c := range b {
			if mask == nil || mask[k] {
				m.colors[k] = c.Clamped()
			}
		}
		return nil

	case VertexColors:
		if len(b) != m.NumVertices() {
			return errors.Wrapf(ErrShapeMismatch, "vertex colors have %d entries, mesh has %d vertices", len(b), m.NumVertices())
		}
		if err := checkBuffer(b, mask); err != nil {
			return err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		for f, face := range m.geo.faces {
			for c, vi := range face {
				if mask == nil || mask[vi] {
					m.colors[3*f+c] = b[vi].Clamped()
				}
			}
		}
		return nil

	case nil:
		return errors.Wrap(ErrShapeMismatch, "nil color buffer")

	default:
		return errors.Wrapf(ErrShapeMismatch, "unsupported color buffer %T", buf)
	}
}

func checkBuffer(buf []RGBA, mask []bool) error {
	if mask != nil && len(mask) != len(buf) {
		return errors.Wrapf(ErrShapeMismatch, "mask has %d entries, buffer has %d", len(mask), len(buf))
	}
	for k, c := range buf {
		if (mask == nil || mask[k]) && c.hasNaN() {
			return errors.Wrapf(ErrInvalidColor, "entry %d is NaN: %v", k, c)
		}
	}
	return nil
}

// ResetColor restores every slot to the default color.
func (m *Mesh) ResetColor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.colors {
		m.colors[k] = m.defaultColor
	}
}
