package source

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// line returns four sources on the x axis at -2, -1, 0 and 1.
func line(t *testing.T, opts ...Option) *Set {
	t.Helper()
	s, err := New(
		[]r3.Vec{{X: -2}, {X: -1}, {X: 0}, {X: 1}},
		[]float64{1, 2, 3, 4},
		opts...,
	)
	require.NoError(t, err)
	return s
}

func TestNewDefaults(t *testing.T) {
	s := line(t)
	require.Equal(t, 4, s.Len())
	require.Equal(t, DefaultRadius, s.RadiusOf(0))
	require.Equal(t, Surface, s.ProjectOn())
	require.Equal(t, 4, s.NumContributing())
	require.Equal(t, []float64{1, 2, 3, 4}, s.ContributingValues())
	require.Equal(t, r3.Vec{X: -1}, s.PositionOf(1))
	require.Equal(t, 3.0, s.ValueOf(2))
}

func TestNewCopiesInputs(t *testing.T) {
	xyz := []r3.Vec{{X: 1}}
	data := []float64{5}
	s, err := New(xyz, data)
	require.NoError(t, err)
	xyz[0].X = 9
	data[0] = 9
	require.Equal(t, 1.0, s.PositionOf(0).X)
	require.Equal(t, 5.0, s.ValueOf(0))
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []float64
		opts    []Option
		wantErr error
	}{
		{"data length", []float64{1}, nil, geometry.ErrShapeMismatch},
		{"smask length", []float64{1, 2}, []Option{WithSMask([]bool{true})}, geometry.ErrShapeMismatch},
		{"hidden length", []float64{1, 2}, []Option{WithHidden([]bool{true, false, true})}, geometry.ErrShapeMismatch},
		{"negative radius", []float64{1, 2}, []Option{WithRadius(-1)}, ErrInvalidRadius},
		{"nan radius", []float64{1, 2}, []Option{WithRadius(math.NaN())}, ErrInvalidRadius},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]r3.Vec{{X: 1}, {X: 2}}, tt.data, tt.opts...)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNilDataIsZero(t *testing.T) {
	s, err := New([]r3.Vec{{X: 1}, {Y: 1}}, nil)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0}, s.ContributingValues())
}

func TestContributionRule(t *testing.T) {
	s := line(t, WithSMask([]bool{false, true, false, false}))
	s.SetHidden(2, true)

	want := []bool{true, false, false, true}
	for i, w := range want {
		if got := s.Contributes(i); got != w {
			t.Errorf("Contributes(%d) = %v, want %v", i, got, w)
		}
	}
	require.True(t, s.IsStructurallyMasked(1))
	require.False(t, s.IsStructurallyMasked(0))
	require.Equal(t, []float64{1, 4}, s.ContributingValues())
	require.Equal(t, 2, s.NumContributing())
	require.Equal(t, 3, s.NumVisible())
}

func TestNonFiniteValuesAreHidden(t *testing.T) {
	s, err := New([]r3.Vec{{X: 1}, {X: 2}, {X: 3}}, []float64{1, math.NaN(), math.Inf(1)})
	require.NoError(t, err)
	require.Equal(t, []bool{false, true, true}, s.Hidden())

	require.NoError(t, s.Select(context.Background(), All, nil, nil))
	require.Equal(t, []bool{false, true, true}, s.Hidden())

	s.SetValue(0, math.Inf(-1))
	require.True(t, s.IsHidden(0))
}

func TestFromRows(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]float64
		wantN   int
		wantErr bool
	}{
		{"n by 3", [][]float64{{1, 2, 3}, {4, 5, 6}}, 2, false},
		{"3 by n", [][]float64{{1, 4}, {2, 5}, {3, 6}}, 2, false},
		{"ragged", [][]float64{{1, 2}, {3}}, 0, true},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromRows(tt.rows, make([]float64, tt.wantN))
			if tt.wantErr {
				require.True(t, errors.Is(err, geometry.ErrShapeMismatch), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantN, s.Len())
			if tt.wantN > 0 {
				require.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, s.PositionOf(1))
			}
		})
	}
}

func TestFromMatrix(t *testing.T) {
	rows := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	s, err := FromMatrix(rows, []float64{1, 2})
	require.NoError(t, err)
	require.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, s.PositionOf(1))

	cols := mat.NewDense(3, 2, []float64{1, 4, 2, 5, 3, 6})
	s, err = FromMatrix(cols, []float64{1, 2})
	require.NoError(t, err)
	require.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, s.PositionOf(1))

	_, err = FromMatrix(mat.NewDense(2, 2, nil), []float64{1, 2})
	require.True(t, errors.Is(err, geometry.ErrShapeMismatch))
}

func TestProjectOnString(t *testing.T) {
	s := line(t, WithProjectOn(Deep))
	require.Equal(t, Deep, s.ProjectOn())
	require.Equal(t, "deep", Deep.String())
	require.Equal(t, "surface", Surface.String())
}
