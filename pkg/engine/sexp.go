package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/cortex/pkg/colormap"
	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/projection"
	"github.com/chazu/cortex/pkg/source"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpMesh struct {
	mesh *geometry.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q :vertices %d :faces %d)", m.mesh.Name, m.mesh.NumVertices(), m.mesh.NumFaces())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

type sexpSources struct {
	set *source.Set
}

func (s *sexpSources) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(sources :n %d :contributing %d :radius %g)", s.set.Len(), s.set.NumContributing(), s.set.Radius())
}
func (s *sexpSources) Type() *zygo.RegisteredType { return nil }

type sexpCmap struct {
	spec colormap.Spec
}

func (c *sexpCmap) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cmap %q)", c.spec.Normalized().Name)
}
func (c *sexpCmap) Type() *zygo.RegisteredType { return nil }

type sexpResult struct {
	res *projection.Result
}

func (r *sexpResult) SexpString(ps *zygo.PrintState) string {
	if r.res.Empty() {
		return fmt.Sprintf("(%s-projection :empty)", r.res.Mode)
	}
	return fmt.Sprintf("(%s-projection :nonzero %d :clim [%g %g])",
		r.res.Mode, r.res.NonzeroCount(), r.res.Colorbar.Clim[0], r.res.Colorbar.Clim[1])
}
func (r *sexpResult) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword always takes the next argument as its value; a trailing keyword
// is a flag and maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case !ok:
			result.positional = append(result.positional, args[i])
		case i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		default:
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func describe(s zygo.Sexp) string {
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, errors.Errorf("expected number, got %s", describe(s))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", errors.Errorf("expected string, got %s", describe(s))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_left) and plain strings ("left").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", errors.Errorf("expected keyword or string, got %s", describe(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false, numbers (non-zero is true) and bare flags.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, errors.Errorf("expected boolean, got %s", describe(s))
}

// toColor accepts a color name or "#rrggbb".
func toColor(s zygo.Sexp) (geometry.RGBA, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return geometry.RGBA{}, err
	}
	return colormap.ParseColor(name)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, errors.Errorf("expected list or array, got %T", s)
}

func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
	}
	return out, nil
}

func toBools(s zygo.Sexp) ([]bool, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(items))
	for i, item := range items {
		if out[i], err = toBool(item); err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
	}
	return out, nil
}

// toRows reads a nested list such as [[0 0 0] [1 0 0]]. A vec3 counts as
// a row of three.
func toRows(s zygo.Sexp) ([][]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(items))
	for i, item := range items {
		if v, ok := item.(*sexpVec3); ok {
			out[i] = []float64{v.vec.X, v.vec.Y, v.vec.Z}
			continue
		}
		if out[i], err = toFloats(item); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}
	return out, nil
}

func toIntRows(s zygo.Sexp) ([][]int, error) {
	rows, err := toRows(s)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = make([]int, len(r))
		for j, v := range r {
			if v != float64(int(v)) {
				return nil, errors.Errorf("row %d: index %g is not an integer", i, v)
			}
			out[i][j] = int(v)
		}
	}
	return out, nil
}

func toMesh(s zygo.Sexp) (*geometry.Mesh, error) {
	if m, ok := s.(*sexpMesh); ok {
		return m.mesh, nil
	}
	return nil, errors.Errorf("expected mesh, got %s", describe(s))
}

func toSources(s zygo.Sexp) (*source.Set, error) {
	if src, ok := s.(*sexpSources); ok {
		return src.set, nil
	}
	return nil, errors.Errorf("expected sources, got %s", describe(s))
}

func toCmap(s zygo.Sexp) (colormap.Spec, error) {
	if c, ok := s.(*sexpCmap); ok {
		return c.spec, nil
	}
	return colormap.Spec{}, errors.Errorf("expected cmap, got %s", describe(s))
}

func toResult(s zygo.Sexp) (*projection.Result, error) {
	if r, ok := s.(*sexpResult); ok {
		return r.res, nil
	}
	return nil, errors.Errorf("expected projection result, got %s", describe(s))
}

// toVec3 accepts a vec3 or a three-element list.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	xyz, err := toFloats(s)
	if err != nil || len(xyz) != 3 {
		return r3.Vec{}, errors.Errorf("expected vec3, got %s", describe(s))
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
