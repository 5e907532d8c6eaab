package accumulate

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/source"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func icosphere(t *testing.T) *geometry.Mesh {
	t.Helper()
	m, err := geometry.Load("icosphere")
	require.NoError(t, err)
	return m
}

// randomSet scatters n sources in a cube of side 3 around the origin.
func randomSet(t *testing.T, seed int64, n int, opts ...source.Option) *source.Set {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	xyz := make([]r3.Vec, n)
	data := make([]float64, n)
	for i := range xyz {
		xyz[i] = r3.Vec{X: 3*rng.Float64() - 1.5, Y: 3*rng.Float64() - 1.5, Z: 3*rng.Float64() - 1.5}
		data[i] = 10*rng.Float64() - 5
	}
	s, err := source.New(xyz, data, opts...)
	require.NoError(t, err)
	return s
}

// bruteCount counts contributing sources touching each slot with a plain
// per-slot loop.
func bruteCount(m *geometry.Mesh, s *source.Set, contribute bool) []int {
	x, y, z := m.FaceVertices()
	out := make([]int, len(x))
	for i := 0; i < s.Len(); i++ {
		if !s.Contributes(i) {
			continue
		}
		p := s.PositionOf(i)
		for k := range x {
			d := math.Sqrt((x[k]-p.X)*(x[k]-p.X) + (y[k]-p.Y)*(y[k]-p.Y) + (z[k]-p.Z)*(z[k]-p.Z))
			if d > s.RadiusOf(i) {
				continue
			}
			if !contribute && p.X != 0 && (p.X < 0) != (x[k] < 0) {
				continue
			}
			if !contribute && p.X != 0 && x[k] == 0 {
				continue
			}
			out[k]++
		}
	}
	return out
}

func TestDistancesMatchEuclidean(t *testing.T) {
	m := icosphere(t)
	x, y, z := m.FaceVertices()
	n := len(x)
	d, tmp, sq := make([]float64, n), make([]float64, n), make([]float64, n)

	for _, p := range []r3.Vec{{}, {X: 0.5, Y: -1, Z: 2}, {X: -3}} {
		distances(d, tmp, sq, x, y, z, p.X, p.Y, p.Z)
		for k := range x {
			want := r3.Norm(r3.Sub(r3.Vec{X: x[k], Y: y[k], Z: z[k]}, p))
			require.InDelta(t, want, d[k], 1e-12, "slot %d from %v", k, p)
		}
	}
}

func TestRunSingleSourceAtOrigin(t *testing.T) {
	// A source at (0,0,0) with radius 2 touches every slot of the unit
	// icosphere regardless of hemisphere.
	m := icosphere(t)
	s, err := source.New([]r3.Vec{{}}, []float64{1}, source.WithRadius(2))
	require.NoError(t, err)

	res, err := Run(context.Background(), m, s, Options{})
	require.NoError(t, err)
	require.Len(t, res.Count, 60)
	for k, c := range res.Count {
		require.Equal(t, 1, c, "slot %d", k)
	}
	require.Equal(t, 1, res.MaxCount())
	require.Equal(t, 0, res.NumStructural())
}

func TestRunHemisphereIsolation(t *testing.T) {
	m := icosphere(t)
	x, _, _ := m.FaceVertices()
	s, err := source.New(
		[]r3.Vec{{X: -1}, {X: 1}},
		[]float64{1, 5},
		source.WithRadius(3),
	)
	require.NoError(t, err)

	res, err := Run(context.Background(), m, s, Options{})
	require.NoError(t, err)
	field := res.Activity()
	for k := range x {
		switch {
		case x[k] < 0:
			require.Equal(t, 1.0, field[k], "slot %d", k)
		case x[k] > 0:
			require.Equal(t, 5.0, field[k], "slot %d", k)
		default:
			require.Zero(t, res.Count[k], "midline slot %d", k)
		}
	}

	res, err = Run(context.Background(), m, s, Options{Contribute: true})
	require.NoError(t, err)
	for k, v := range res.Activity() {
		require.Equal(t, 3.0, v, "slot %d", k)
	}
}

func TestRunHemisphereProperty(t *testing.T) {
	m, err := geometry.Load("sphere")
	require.NoError(t, err)
	x, _, _ := m.FaceVertices()

	for seed := int64(1); seed <= 5; seed++ {
		s := randomSet(t, seed, 30, source.WithRadius(0.8))
		for i := 0; i < s.Len(); i++ {
			one, err := source.New([]r3.Vec{s.PositionOf(i)}, []float64{s.ValueOf(i)}, source.WithRadius(0.8))
			require.NoError(t, err)
			res, err := Run(context.Background(), m, one, Options{})
			require.NoError(t, err)
			px := s.PositionOf(i).X
			for k, c := range res.Count {
				if c == 0 {
					continue
				}
				if px > 0 {
					require.Greater(t, x[k], 0.0)
				}
				if px < 0 {
					require.Less(t, x[k], 0.0)
				}
			}
		}
	}
}

func TestRunRadiusMonotonicity(t *testing.T) {
	m, err := geometry.Load("sphere")
	require.NoError(t, err)

	for _, r := range []float64{0.1, 0.3, 0.7, 1.5} {
		small := randomSet(t, 42, 25, source.WithRadius(r))
		large := randomSet(t, 42, 25, source.WithRadius(2*r))

		a, err := Run(context.Background(), m, small, Options{})
		require.NoError(t, err)
		b, err := Run(context.Background(), m, large, Options{})
		require.NoError(t, err)
		for k := range a.Count {
			require.GreaterOrEqual(t, b.Count[k], a.Count[k], "radius %g slot %d", r, k)
		}
	}
}

func TestRunDensityMatchesTouchCount(t *testing.T) {
	m, err := geometry.Load("sphere")
	require.NoError(t, err)

	smask := make([]bool, 40)
	for i := 0; i < 40; i += 7 {
		smask[i] = true
	}
	s := randomSet(t, 7, 40, source.WithRadius(0.6), source.WithSMask(smask))
	s.SetHidden(3, true)
	s.SetHidden(11, true)

	for _, contribute := range []bool{false, true} {
		res, err := Run(context.Background(), m, s, Options{Contribute: contribute, BatchSize: 5})
		require.NoError(t, err)
		want := bruteCount(m, s, contribute)
		if diff := cmp.Diff(want, res.Count); diff != "" {
			t.Errorf("contribute=%v count mismatch (-want +got):\n%s", contribute, diff)
		}
		got := res.Density()
		for k := range got {
			require.Equal(t, float64(want[k]), got[k])
		}
	}
}

func TestRunStructuralMask(t *testing.T) {
	m := icosphere(t)
	x, _, _ := m.FaceVertices()
	s, err := source.New(
		[]r3.Vec{{X: -1}, {X: 1}},
		[]float64{1, 5},
		source.WithRadius(3),
		source.WithSMask([]bool{false, true}),
	)
	require.NoError(t, err)

	res, err := Run(context.Background(), m, s, Options{})
	require.NoError(t, err)
	for k := range x {
		if x[k] > 0 {
			require.True(t, res.Structural[k], "slot %d", k)
			require.Zero(t, res.Count[k])
			require.Zero(t, res.Sum[k])
		} else {
			require.False(t, res.Structural[k], "slot %d", k)
		}
	}

	// Hidden structural sources paint nothing.
	s.SetHidden(1, true)
	res, err = Run(context.Background(), m, s, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.NumStructural())
}

func TestRunNothingTouched(t *testing.T) {
	m := icosphere(t)
	// Nearest vertex to (1,0,0) is about 0.547 away.
	s, err := source.New([]r3.Vec{{X: 1}}, []float64{3}, source.WithRadius(0.5))
	require.NoError(t, err)

	res, err := Run(context.Background(), m, s, Options{})
	require.NoError(t, err)
	require.Zero(t, res.MaxCount())
	for _, nz := range res.Nonzero() {
		require.False(t, nz)
	}
}

func TestRunProgress(t *testing.T) {
	m := icosphere(t)
	s := randomSet(t, 3, 10)

	var got [][2]int
	_, err := Run(context.Background(), m, s, Options{
		BatchSize: 4,
		Progress:  func(done, total int) { got = append(got, [2]int{done, total}) },
	})
	require.NoError(t, err)
	require.Equal(t, [][2]int{{4, 10}, {8, 10}, {10, 10}}, got)
}

func TestRunCancelled(t *testing.T) {
	m := icosphere(t)
	s := randomSet(t, 3, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, m, s, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestActivityAveragesOverlap(t *testing.T) {
	r := &Result{
		Count: []int{0, 1, 2, 4},
		Sum:   []float64{0, 3, 3, -2},
	}
	require.Equal(t, []float64{0, 3, 1.5, -0.5}, r.Activity())
	require.Equal(t, []bool{false, true, true, true}, r.Nonzero())
	require.Equal(t, []float64{0, 1, 2, 4}, r.Density())
	require.Equal(t, 4, r.MaxCount())
}
