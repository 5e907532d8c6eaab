package colormap

import (
	"testing"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLookupCatalog(t *testing.T) {
	names := Names()
	require.Contains(t, names, "viridis")
	require.Contains(t, names, "coolwarm")
	require.Contains(t, names, "RdBu")
	require.IsIncreasing(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(p), 2)
			for _, tt := range []float64{0, 0.25, 0.5, 0.75, 1} {
				c := p.At(tt)
				for _, v := range []float64{c.R, c.G, c.B} {
					require.GreaterOrEqual(t, v, 0.0)
					require.LessOrEqual(t, v, 1.0)
				}
				require.Equal(t, 1.0, c.A)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, name := range []string{"", "jet", "viridis_rr", "_r"} {
		_, err := Lookup(name)
		require.True(t, errors.Is(err, ErrUnknownPalette), "%q: %v", name, err)
	}
}

func TestLookupReversed(t *testing.T) {
	p, err := Lookup("magma")
	require.NoError(t, err)
	r, err := Lookup("magma_r")
	require.NoError(t, err)
	require.Equal(t, p.At(0), r.At(1))
	require.Equal(t, p.At(1), r.At(0))

	// Reversing must not disturb the cached palette.
	again, err := Lookup("magma")
	require.NoError(t, err)
	require.Equal(t, p.At(0), again.At(0))
}

func TestStopsInterpolate(t *testing.T) {
	p, err := Lookup("gray")
	require.NoError(t, err)

	tests := []struct {
		t    float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{3, 1},
	}
	for _, tt := range tests {
		c := p.At(tt.t)
		require.InDelta(t, tt.want, c.R, 1e-9, "t=%g", tt.t)
		require.InDelta(t, c.R, c.G, 1e-12)
		require.InDelta(t, c.R, c.B, 1e-12)
	}
	require.Equal(t, geometry.RGBA{A: 1}, Stops(nil).At(0.5))
}
