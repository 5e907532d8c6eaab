// Package source holds the point sources projected onto a mesh: their
// positions, scalar values, visibility mask, structural mask and radius
// of influence. The set is owned by the caller; the projection engine
// only reads it.
package source

import (
	"math"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultRadius is the sphere of influence used when none is given.
const DefaultRadius = 10.0

// ErrInvalidRadius is returned for negative or non-finite radii.
var ErrInvalidRadius = errors.New("invalid radius")

// ProjectOn selects which mesh a source set is projected onto.
type ProjectOn int

const (
	Surface ProjectOn = iota // cortical outer surface
	Deep                     // region-of-interest mesh
)

func (p ProjectOn) String() string {
	switch p {
	case Surface:
		return "surface"
	case Deep:
		return "deep"
	default:
		return "unknown"
	}
}

// Set is an ordered collection of point sources.
//
// A source contributes to projection iff it is neither hidden nor
// structurally masked. Structurally masked sources that are visible are
// still drawn, with the overlay color, but never accumulate.
type Set struct {
	xyz       []r3.Vec
	data      []float64
	hidden    []bool
	smask     []bool
	radius    float64
	projectOn ProjectOn
}

// Option configures a Set at construction.
type Option func(*Set) error

// WithRadius sets the radius of influence.
func WithRadius(r float64) Option {
	return func(s *Set) error {
		return s.SetRadius(r)
	}
}

// WithSMask sets the structural mask. Its length must match the sources.
func WithSMask(smask []bool) Option {
	return func(s *Set) error {
		if len(smask) != len(s.xyz) {
			return errors.Wrapf(geometry.ErrShapeMismatch, "smask has %d entries, %d sources", len(smask), len(s.xyz))
		}
		copy(s.smask, smask)
		return nil
	}
}

// WithHidden sets the initial visibility mask (true hides a source).
func WithHidden(hidden []bool) Option {
	return func(s *Set) error {
		if len(hidden) != len(s.xyz) {
			return errors.Wrapf(geometry.ErrShapeMismatch, "mask has %d entries, %d sources", len(hidden), len(s.xyz))
		}
		for i, h := range hidden {
			s.hidden[i] = s.hidden[i] || h
		}
		return nil
	}
}

// WithProjectOn selects the target mesh.
func WithProjectOn(p ProjectOn) Option {
	return func(s *Set) error {
		s.projectOn = p
		return nil
	}
}

// New builds a set from positions and values. A nil data slice means all
// values are zero. Non-finite values are hidden, as a masked-invalid
// array would be.
func New(xyz []r3.Vec, data []float64, opts ...Option) (*Set, error) {
	if data == nil {
		data = make([]float64, len(xyz))
	}
	if len(data) != len(xyz) {
		return nil, errors.Wrapf(geometry.ErrShapeMismatch, "%d positions, %d values", len(xyz), len(data))
	}
	s := &Set{
		xyz:    make([]r3.Vec, len(xyz)),
		data:   make([]float64, len(data)),
		hidden: make([]bool, len(xyz)),
		smask:  make([]bool, len(xyz)),
		radius: DefaultRadius,
	}
	copy(s.xyz, xyz)
	copy(s.data, data)
	for i, v := range s.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.hidden[i] = true
		}
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromRows builds a set from an (N,3) or (3,N) coordinate array.
func FromRows(rows [][]float64, data []float64, opts ...Option) (*Set, error) {
	switch {
	case len(rows) == 0:
		return New(nil, data, opts...)
	case allLen(rows, 3):
		xyz := make([]r3.Vec, len(rows))
		for i, r := range rows {
			xyz[i] = r3.Vec{X: r[0], Y: r[1], Z: r[2]}
		}
		return New(xyz, data, opts...)
	case len(rows) == 3 && allLen(rows, len(rows[0])):
		xyz := make([]r3.Vec, len(rows[0]))
		for i := range xyz {
			xyz[i] = r3.Vec{X: rows[0][i], Y: rows[1][i], Z: rows[2][i]}
		}
		return New(xyz, data, opts...)
	default:
		return nil, errors.Wrapf(geometry.ErrShapeMismatch, "positions must be (N,3) or (3,N), got %d rows", len(rows))
	}
}

// FromMatrix builds a set from an (N,3) or (3,N) matrix.
func FromMatrix(m mat.Matrix, data []float64, opts ...Option) (*Set, error) {
	r, c := m.Dims()
	if c != 3 && r == 3 {
		m = m.T()
		r, c = c, r
	}
	if c != 3 {
		return nil, errors.Wrapf(geometry.ErrShapeMismatch, "positions must be (N,3) or (3,N), got (%d,%d)", r, c)
	}
	xyz := make([]r3.Vec, r)
	for i := range xyz {
		xyz[i] = r3.Vec{X: m.At(i, 0), Y: m.At(i, 1), Z: m.At(i, 2)}
	}
	return New(xyz, data, opts...)
}

func allLen(rows [][]float64, n int) bool {
	for _, r := range rows {
		if len(r) != n {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Len returns the number of sources.
func (s *Set) Len() int { return len(s.xyz) }

// PositionOf returns the position of source i.
func (s *Set) PositionOf(i int) r3.Vec { return s.xyz[i] }

// ValueOf returns the scalar value of source i.
func (s *Set) ValueOf(i int) float64 { return s.data[i] }

// RadiusOf returns the radius of influence of source i.
func (s *Set) RadiusOf(int) float64 { return s.radius }

// Radius returns the shared radius of influence.
func (s *Set) Radius() float64 { return s.radius }

// IsHidden reports whether source i is masked out of view.
func (s *Set) IsHidden(i int) bool { return s.hidden[i] }

// IsStructurallyMasked reports whether source i is drawn but excluded
// from accumulation.
func (s *Set) IsStructurallyMasked(i int) bool { return s.smask[i] }

// Contributes reports whether source i takes part in accumulation.
func (s *Set) Contributes(i int) bool { return !s.hidden[i] && !s.smask[i] }

// ProjectOn returns the target mesh selector.
func (s *Set) ProjectOn() ProjectOn { return s.projectOn }

// NumContributing returns the number of contributing sources.
func (s *Set) NumContributing() int {
	n := 0
	for i := range s.xyz {
		if s.Contributes(i) {
			n++
		}
	}
	return n
}

// NumVisible returns the number of sources that are not hidden, structural
// ones included.
func (s *Set) NumVisible() int {
	n := 0
	for _, h := range s.hidden {
		if !h {
			n++
		}
	}
	return n
}

// ContributingValues returns the values of contributing sources, in order.
func (s *Set) ContributingValues() []float64 {
	var out []float64
	for i, v := range s.data {
		if s.Contributes(i) {
			out = append(out, v)
		}
	}
	return out
}

// Hidden returns a copy of the visibility mask.
func (s *Set) Hidden() []bool {
	out := make([]bool, len(s.hidden))
	copy(out, s.hidden)
	return out
}

// ---------------------------------------------------------------------------
// Mutators
// ---------------------------------------------------------------------------

// SetValue replaces the value of source i. Non-finite values hide it.
func (s *Set) SetValue(i int, v float64) {
	s.data[i] = v
	if math.IsNaN(v) || math.IsInf(v, 0) {
		s.hidden[i] = true
	}
}

// SetHidden shows or hides source i.
func (s *Set) SetHidden(i int, hidden bool) { s.hidden[i] = hidden }

// SetStructurallyMasked sets the structural mask of source i.
func (s *Set) SetStructurallyMasked(i int, masked bool) { s.smask[i] = masked }

// SetRadius changes the radius of influence.
func (s *Set) SetRadius(r float64) error {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return errors.Wrapf(ErrInvalidRadius, "radius %g", r)
	}
	s.radius = r
	return nil
}
