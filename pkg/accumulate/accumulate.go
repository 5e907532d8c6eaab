// Package accumulate computes the per-slot counts and value sums that a
// source set deposits on a mesh.
//
// Every face-vertex slot (k = 3*face + corner) within a source's radius
// receives the source. Unless Options.Contribute is set, a source off the
// x = 0 plane only reaches slots strictly on its own side.
package accumulate

import (
	"context"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/source"
	"github.com/viterin/vek"
)

// DefaultBatchSize is the number of sources processed between progress
// reports and cancellation checks.
const DefaultBatchSize = 64

// Options configures a Run.
type Options struct {
	// Contribute lets sources reach slots in the opposite hemisphere.
	Contribute bool
	// BatchSize defaults to DefaultBatchSize when zero or negative.
	BatchSize int
	// Progress is called after each batch and once at the end with the
	// number of sources processed.
	Progress source.ProgressFunc
}

// Result holds the raw accumulation buffers, one entry per face-vertex slot.
type Result struct {
	Count      []int
	Sum        []float64
	Structural []bool
}

// Run accumulates every visible source of set onto the slots of m.
// Contributing sources add to Count and Sum; structurally masked sources
// only mark Structural. A cancelled context aborts the run with ctx.Err().
func Run(ctx context.Context, m *geometry.Mesh, set *source.Set, opts Options) (*Result, error) {
	x, y, z := m.FaceVertices()
	n := len(x)
	res := &Result{
		Count:      make([]int, n),
		Sum:        make([]float64, n),
		Structural: make([]bool, n),
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	// Scratch buffers reused across sources.
	d := make([]float64, n)
	tmp := make([]float64, n)
	sq := make([]float64, n)
	hit := make([]bool, n)

	total := set.Len()
	for i := 0; i < total; i++ {
		if i%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if i > 0 && opts.Progress != nil {
				opts.Progress(i, total)
			}
		}
		if set.IsHidden(i) {
			continue
		}

		p := set.PositionOf(i)
		distances(d, tmp, sq, x, y, z, p.X, p.Y, p.Z)
		vek.LteNumber_Into(hit, d, set.RadiusOf(i))

		side := sign(p.X)
		structural := set.IsStructurallyMasked(i)
		v := set.ValueOf(i)
		for k, h := range hit {
			if !h || !sameSide(opts.Contribute, side, x[k]) {
				continue
			}
			if structural {
				res.Structural[k] = true
				continue
			}
			res.Count[k]++
			res.Sum[k] += v
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Progress != nil {
		opts.Progress(total, total)
	}
	return res, nil
}

// distances writes |(x,y,z) - p| into d, using tmp and sq as scratch.
// vek rejects a destination that overlaps an input, so squares always go
// through a second buffer.
func distances(d, tmp, sq, x, y, z []float64, px, py, pz float64) {
	vek.SubNumber_Into(tmp, x, px)
	vek.Mul_Into(d, tmp, tmp)
	vek.SubNumber_Into(tmp, y, py)
	vek.Mul_Into(sq, tmp, tmp)
	vek.Add_Inplace(d, sq)
	vek.SubNumber_Into(tmp, z, pz)
	vek.Mul_Into(sq, tmp, tmp)
	vek.Add_Inplace(d, sq)
	vek.Sqrt_Inplace(d)
}

func sign(v float64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// sameSide applies the hemisphere rule. Sources on the x = 0 plane are
// unrestricted.
func sameSide(contribute bool, side int, slotX float64) bool {
	return contribute || side == 0 || sign(slotX) == side
}

// ---------------------------------------------------------------------------
// Reductions
// ---------------------------------------------------------------------------

// Nonzero reports the slots touched by at least one contributing source.
func (r *Result) Nonzero() []bool {
	out := make([]bool, len(r.Count))
	for k, c := range r.Count {
		out[k] = c > 0
	}
	return out
}

// Activity returns Sum/Count per slot, zero where nothing contributed.
func (r *Result) Activity() []float64 {
	out := make([]float64, len(r.Count))
	for k, c := range r.Count {
		if c > 0 {
			out[k] = r.Sum[k] / float64(c)
		}
	}
	return out
}

// Density returns Count as a float field.
func (r *Result) Density() []float64 {
	out := make([]float64, len(r.Count))
	for k, c := range r.Count {
		out[k] = float64(c)
	}
	return out
}

// MaxCount returns the largest per-slot count.
func (r *Result) MaxCount() int {
	m := 0
	for _, c := range r.Count {
		if c > m {
			m = c
		}
	}
	return m
}

// NumStructural returns how many slots are structurally painted.
func (r *Result) NumStructural() int {
	n := 0
	for _, s := range r.Structural {
		if s {
			n++
		}
	}
	return n
}
