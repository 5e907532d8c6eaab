package source

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// shellOracle reports points closer to the origin than r as inside.
type shellOracle struct{ r float64 }

func (o shellOracle) IsInside(p r3.Vec, _ bool) bool { return r3.Norm(p) < o.r }

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{"all", All, false},
		{"none", None, false},
		{":left", Left, false},
		{"Right", Right, false},
		{" inside ", Inside, false},
		{"outside", Outside, false},
		{"both", All, true},
		{"", All, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				require.True(t, errors.Is(err, ErrUnknownSelector), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Selector {
	t.Helper()
	sel, err := ParseSelector(s)
	require.NoError(t, err)
	return sel
}

func TestSelectHemispheres(t *testing.T) {
	tests := []struct {
		sel  Selector
		want []bool
	}{
		{All, []bool{false, false, false, false}},
		{None, []bool{true, true, true, true}},
		{Left, []bool{false, false, true, true}},
		{Right, []bool{true, true, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.sel.String(), func(t *testing.T) {
			s := line(t)
			require.NoError(t, s.Select(context.Background(), tt.sel, nil, nil))
			require.Equal(t, tt.want, s.Hidden())
		})
	}
}

func TestSelectReplacesMask(t *testing.T) {
	s := line(t)
	require.NoError(t, s.Select(context.Background(), None, nil, nil))
	require.NoError(t, s.Select(context.Background(), All, nil, nil))
	require.Equal(t, 4, s.NumContributing())
}

func TestSelectInsideOutside(t *testing.T) {
	var calls []int
	progress := func(done, total int) {
		require.Equal(t, 4, total)
		calls = append(calls, done)
	}

	s := line(t)
	require.NoError(t, s.Select(context.Background(), Inside, shellOracle{r: 1.5}, progress))
	require.Equal(t, []bool{true, false, false, false}, s.Hidden())
	require.Equal(t, []int{1, 2, 3, 4}, calls)

	require.NoError(t, s.Select(context.Background(), Outside, shellOracle{r: 1.5}, nil))
	require.Equal(t, []bool{false, true, true, true}, s.Hidden())
}

func TestSelectNeedsOracle(t *testing.T) {
	s := line(t)
	require.Error(t, s.Select(context.Background(), Inside, nil, nil))
	require.Equal(t, 4, s.NumContributing())
}

func TestSelectCancelledLeavesMask(t *testing.T) {
	s := line(t)
	require.NoError(t, s.Select(context.Background(), Left, nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Select(ctx, Outside, shellOracle{r: 1}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []bool{false, false, true, true}, s.Hidden())
}

func TestSelectUnknown(t *testing.T) {
	s := line(t)
	err := s.Select(context.Background(), Selector(42), nil, nil)
	require.True(t, errors.Is(err, ErrUnknownSelector))
	require.Equal(t, "unknown", Selector(42).String())
}
