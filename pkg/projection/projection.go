// Package projection is the public face of the projection engine. It
// runs the accumulator over a source set, reduces the result to a field,
// colors the mesh, and keeps the last result so colormap-only edits can
// re-render without accumulating again.
package projection

import (
	"context"
	"sync"
	"time"

	"github.com/chazu/cortex/pkg/accumulate"
	"github.com/chazu/cortex/pkg/colormap"
	"github.com/chazu/cortex/pkg/containment"
	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/source"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode is the reduction applied to the accumulated buffers.
type Mode int

const (
	// Activity averages the values reaching each slot, then rescales the
	// field to the range of the contributing data.
	Activity Mode = iota
	// Density counts the sources reaching each slot.
	Density
)

func (m Mode) String() string {
	switch m {
	case Activity:
		return "activity"
	case Density:
		return "density"
	default:
		return "unknown"
	}
}

// ErrNoResult is returned when recoloring without a projection to reuse.
var ErrNoResult = errors.New("no projection result")

// Result is the output of one projection pass. Field, Nonzero and
// Structural have one entry per face-vertex slot, or are nil when no
// source contributed.
type Result struct {
	Mode       Mode
	Field      []float64
	Nonzero    []bool
	Structural []bool
	Colorbar   colormap.Colorbar
}

// Empty reports whether the projection had no visible sources at all.
func (r *Result) Empty() bool { return len(r.Field) == 0 }

// NonzeroCount returns the number of slots that received a contribution.
func (r *Result) NonzeroCount() int {
	n := 0
	for _, nz := range r.Nonzero {
		if nz {
			n++
		}
	}
	return n
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for warnings. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProgress sets the observer notified while sources are processed.
func WithProgress(p source.ProgressFunc) Option {
	return func(e *Engine) { e.progress = p }
}

// WithBatchSize sets how many sources are processed between progress
// reports and cancellation checks.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

// Engine runs projection passes. Passes are serialized; each one
// invalidates the cached result before it starts.
type Engine struct {
	logger    *zap.Logger
	progress  source.ProgressFunc
	batchSize int

	mu      sync.Mutex
	last    *Result
	oracles map[*geometry.Mesh]*containment.Oracle
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    zap.NewNop(),
		batchSize: accumulate.DefaultBatchSize,
		oracles:   make(map[*geometry.Mesh]*containment.Oracle),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Last returns the most recent projection result, or nil.
func (e *Engine) Last() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// ---------------------------------------------------------------------------
// Projection
// ---------------------------------------------------------------------------

// ProjectActivity paints the mean value of the sources reaching each
// slot. The non-zero part of the field is rescaled to span the range of
// the contributing source values.
func (e *Engine) ProjectActivity(ctx context.Context, m *geometry.Mesh, set *source.Set, spec colormap.Spec, contribute bool) (*Result, error) {
	return e.project(ctx, Activity, m, set, spec, contribute)
}

// ProjectDensity paints the number of sources reaching each slot, with
// the clip range forced to [0, max count].
func (e *Engine) ProjectDensity(ctx context.Context, m *geometry.Mesh, set *source.Set, spec colormap.Spec, contribute bool) (*Result, error) {
	return e.project(ctx, Density, m, set, spec, contribute)
}

func (e *Engine) project(ctx context.Context, mode Mode, m *geometry.Mesh, set *source.Set, spec colormap.Spec, contribute bool) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = nil

	spec = spec.Normalized()
	if _, err := colormap.Lookup(spec.Name); err != nil {
		return nil, err
	}

	// Structural-only sets still go through accumulation so that their
	// overlay is painted; the field stays empty.
	if set.NumVisible() == 0 {
		e.logger.Warn("no visible sources, mesh left unchanged",
			zap.Stringer("mode", mode),
			zap.String("mesh", m.Name),
			zap.Int("sources", set.Len()),
		)
		res := &Result{Mode: mode, Colorbar: colormap.EmptyColorbar(spec)}
		e.last = res
		return res, nil
	}

	start := time.Now()
	acc, err := accumulate.Run(ctx, m, set, accumulate.Options{
		Contribute: contribute,
		BatchSize:  e.batchSize,
		Progress:   e.progress,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s projection", mode)
	}

	res := &Result{
		Mode:       mode,
		Nonzero:    acc.Nonzero(),
		Structural: acc.Structural,
	}
	switch mode {
	case Activity:
		res.Field = acc.Activity()
		rescale(res.Field, res.Nonzero, set.ContributingValues())
	case Density:
		res.Field = acc.Density()
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s projection", mode)
	}
	if err := e.paint(m, res, spec, true); err != nil {
		return nil, err
	}
	e.last = res

	e.logger.Debug("projection done",
		zap.Stringer("mode", mode),
		zap.String("mesh", m.Name),
		zap.Int("sources", set.NumContributing()),
		zap.Int("nonzero", res.NonzeroCount()),
		zap.Int("structural", acc.NumStructural()),
		zap.Float64s("clim", res.Colorbar.Clim[:]),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// rescale maps field[nonzero] linearly onto [min(data), max(data)]. A
// field with a single distinct value is left as is.
func rescale(field []float64, nonzero []bool, data []float64) {
	if len(data) == 0 {
		return
	}
	fmin, fmax := 0.0, 0.0
	first := true
	for k, nz := range nonzero {
		if !nz {
			continue
		}
		if first || field[k] < fmin {
			fmin = field[k]
		}
		if first || field[k] > fmax {
			fmax = field[k]
		}
		first = false
	}
	if first || fmax <= fmin {
		return
	}
	dmin, dmax := floats.Min(data), floats.Max(data)
	scale := (dmax - dmin) / (fmax - fmin)
	for k, nz := range nonzero {
		if nz {
			field[k] = dmin + (field[k]-fmin)*scale
		}
	}
}

// paint colors the mesh from res and stores the colorbar on it. With
// fresh set, slots the projection does not reach go back to the mesh's
// default color; otherwise they keep their current color.
func (e *Engine) paint(m *geometry.Mesh, res *Result, spec colormap.Spec, fresh bool) error {
	if res.Mode == Density {
		maxCount := 0.0
		if len(res.Field) > 0 {
			maxCount = floats.Max(res.Field)
		}
		spec.Vmin = colormap.Float(0)
		spec.Vmax = colormap.Float(maxCount)
	}
	colors, bar, err := colormap.Colorize(res.Field, res.Nonzero, spec)
	if err != nil {
		return err
	}
	var base []geometry.RGBA
	if fresh {
		base = make([]geometry.RGBA, m.NumSlots())
		for k := range base {
			base[k] = m.DefaultColor()
		}
	}
	if err := colormap.ComposeOnto(m, base, colors, res.Nonzero, res.Structural, spec); err != nil {
		return err
	}
	res.Colorbar = bar
	return nil
}

// ---------------------------------------------------------------------------
// Recolor
// ---------------------------------------------------------------------------

// Recolor repaints m from an existing result with a new colormap. The
// result's Field and Nonzero are not modified; its Colorbar is replaced.
func (e *Engine) Recolor(m *geometry.Mesh, res *Result, spec colormap.Spec) error {
	if res == nil {
		return ErrNoResult
	}
	spec = spec.Normalized()
	if _, err := colormap.Lookup(spec.Name); err != nil {
		return err
	}
	if res.Empty() {
		res.Colorbar = colormap.EmptyColorbar(spec)
		return nil
	}
	if len(res.Field) != m.NumSlots() {
		return errors.Wrapf(geometry.ErrShapeMismatch, "result has %d slots, mesh %d", len(res.Field), m.NumSlots())
	}
	return e.paint(m, res, spec, false)
}

// RecolorLast repaints m from the most recent projection.
func (e *Engine) RecolorLast(m *geometry.Mesh, spec colormap.Spec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Recolor(m, e.last, spec)
}

// ---------------------------------------------------------------------------
// Containment
// ---------------------------------------------------------------------------

// ClassifySources updates the visibility mask of set with sel. Inside and
// Outside build (and cache) a containment oracle for m.
func (e *Engine) ClassifySources(ctx context.Context, m *geometry.Mesh, set *source.Set, sel source.Selector) error {
	var oracle source.Oracle
	if sel == source.Inside || sel == source.Outside {
		o, err := e.oracle(m)
		if err != nil {
			return err
		}
		oracle = o
	}
	if err := set.Select(ctx, sel, oracle, e.progress); err != nil {
		return errors.Wrapf(err, "classifying sources as %s", sel)
	}
	return nil
}

// IsInside reports whether p lies inside m by the radial heuristic.
func (e *Engine) IsInside(m *geometry.Mesh, p r3.Vec, contribute bool) bool {
	o, err := e.oracle(m)
	if err != nil {
		e.logger.Error("building containment oracle", zap.String("mesh", m.Name), zap.Error(err))
		return false
	}
	return o.IsInside(p, contribute)
}

func (e *Engine) oracle(m *geometry.Mesh) (*containment.Oracle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.oracles[m]; ok {
		return o, nil
	}
	o, err := containment.New(m)
	if err != nil {
		return nil, err
	}
	e.oracles[m] = o
	return o, nil
}

// SelectMesh returns the mesh a source set projects onto.
func SelectMesh(surface, deep *geometry.Mesh, on source.ProjectOn) (*geometry.Mesh, error) {
	switch on {
	case source.Surface:
		if surface == nil {
			return nil, errors.New("no surface mesh")
		}
		return surface, nil
	case source.Deep:
		if deep == nil {
			return nil, errors.New("no deep mesh")
		}
		return deep, nil
	default:
		return nil, errors.Errorf("unknown projection target %d", int(on))
	}
}
