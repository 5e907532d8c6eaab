package engine

import (
	"context"

	"github.com/chazu/cortex/pkg/colormap"
	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/projection"
	"github.com/chazu/cortex/pkg/source"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
)

// registerBuiltins installs the scene builtins into a zygomys environment.
// Meshes and projection results they create are recorded on scene;
// projections run on proj and are cancelled with ctx.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, scene *Scene, proj *projection.Engine) {

	// -----------------------------------------------------------------------
	// (template :sphere) or (template "hemispheres" :name "brain" :color "ivory")
	// -----------------------------------------------------------------------
	env.AddFunction("template", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, errors.New("template requires a template name")
		}
		tname, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "template: name")
		}
		opts, err := meshOptions(parseArgs(args[1:]))
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "template")
		}
		m, err := geometry.Load(tname, opts...)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "template")
		}
		scene.addMesh(m)
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh :vertices [[0 0 0] [1 0 0] [0 1 0]] :faces [[0 1 2]] :name "tri")
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["vertices"]
		if !ok {
			return zygo.SexpNull, errors.New("mesh requires :vertices")
		}
		vertices, err := toRows(v)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "mesh: vertices")
		}
		f, ok := pa.kw["faces"]
		if !ok {
			return zygo.SexpNull, errors.New("mesh requires :faces")
		}
		faces, err := toIntRows(f)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "mesh: faces")
		}
		opts, err := meshOptions(pa)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "mesh")
		}
		m, err := geometry.LoadCustom(vertices, faces, opts...)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "mesh")
		}
		for _, w := range m.Validate() {
			scene.warn(m.Name, "%s", w)
		}
		scene.addMesh(m)
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (sources :xyz [[x y z] ...] :data [...] :radius 10 :smask [...] :project-on :deep)
	// -----------------------------------------------------------------------
	env.AddFunction("sources", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var rows [][]float64
		if v, ok := pa.kw["xyz"]; ok {
			r, err := toRows(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "sources: xyz")
			}
			rows = r
		}
		var data []float64
		if v, ok := pa.kw["data"]; ok {
			d, err := toFloats(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "sources: data")
			}
			data = d
		}
		var opts []source.Option
		if v, ok := pa.kw["radius"]; ok {
			r, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "sources: radius")
			}
			opts = append(opts, source.WithRadius(r))
		}
		if v, ok := pa.kw["smask"]; ok {
			smask, err := toBools(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "sources: smask")
			}
			opts = append(opts, source.WithSMask(smask))
		}
		if v, ok := pa.kw["project-on"]; ok {
			on, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "sources: project-on")
			}
			switch on {
			case source.Surface.String():
				opts = append(opts, source.WithProjectOn(source.Surface))
			case source.Deep.String():
				opts = append(opts, source.WithProjectOn(source.Deep))
			default:
				return zygo.SexpNull, errors.Errorf("sources: project-on: %q is not surface or deep", on)
			}
		}
		if data == nil {
			data = make([]float64, len(rows))
		}
		set, err := source.FromRows(rows, data, opts...)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "sources")
		}
		return &sexpSources{set: set}, nil
	})

	// -----------------------------------------------------------------------
	// (classify src :left) or (classify src :inside mesh)
	// -----------------------------------------------------------------------
	env.AddFunction("classify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, errors.New("classify requires sources and a selector")
		}
		set, err := toSources(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "classify")
		}
		selName, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "classify: selector")
		}
		sel, err := source.ParseSelector(selName)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "classify")
		}
		var m *geometry.Mesh
		if len(args) > 2 {
			if m, err = toMesh(args[2]); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "classify")
			}
		} else if sel == source.Inside || sel == source.Outside {
			return zygo.SexpNull, errors.Errorf("classify: %s needs a mesh", sel)
		}
		if err := proj.ClassifySources(ctx, m, set, sel); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "classify")
		}
		return args[0], nil
	})

	// -----------------------------------------------------------------------
	// (cmap "viridis" :vmin 0 :vmax 1 :under "navy" :over "red" :alpha 0.8
	//       :mask "gray" :label "uV" :font-size 12)
	// -----------------------------------------------------------------------
	env.AddFunction("cmap", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		spec, err := cmapSpec(parseArgs(args))
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cmap")
		}
		if _, err := colormap.Lookup(spec.Normalized().Name); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cmap")
		}
		return &sexpCmap{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (project-activity mesh src cmap :contribute false)
	// (project-density mesh src cmap)
	// -----------------------------------------------------------------------
	project := func(mode projection.Mode) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			label := "project-" + mode.String()
			pa := parseArgs(args)
			if len(pa.positional) < 2 {
				return zygo.SexpNull, errors.Errorf("%s requires a mesh and sources", label)
			}
			m, err := toMesh(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, label)
			}
			set, err := toSources(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, label)
			}
			var spec colormap.Spec
			if len(pa.positional) > 2 {
				if spec, err = toCmap(pa.positional[2]); err != nil {
					return zygo.SexpNull, errors.Wrap(err, label)
				}
			}
			contribute := false
			if v, ok := pa.kw["contribute"]; ok {
				if contribute, err = toBool(v); err != nil {
					return zygo.SexpNull, errors.Wrapf(err, "%s: contribute", label)
				}
			}

			var res *projection.Result
			switch mode {
			case projection.Density:
				res, err = proj.ProjectDensity(ctx, m, set, spec, contribute)
			default:
				res, err = proj.ProjectActivity(ctx, m, set, spec, contribute)
			}
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, label)
			}
			if res.Empty() {
				scene.warn(m.Name, "%s: no visible sources, mesh left unchanged", label)
			}
			scene.addMesh(m)
			scene.Projections = append(scene.Projections, Projection{Mesh: m, Result: res})
			return &sexpResult{res: res}, nil
		}
	}
	env.AddFunction("project_activity", project(projection.Activity))
	env.AddFunction("project_density", project(projection.Density))

	// -----------------------------------------------------------------------
	// (recolor mesh cmap) or (recolor mesh result cmap)
	// -----------------------------------------------------------------------
	env.AddFunction("recolor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, errors.New("recolor requires a mesh and a cmap")
		}
		m, err := toMesh(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "recolor")
		}
		spec, err := toCmap(args[len(args)-1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "recolor")
		}
		if len(args) > 2 {
			res, err := toResult(args[1])
			if err != nil {
				return zygo.SexpNull, errors.Wrap(err, "recolor")
			}
			if err := proj.Recolor(m, res, spec); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "recolor")
			}
			return args[1], nil
		}
		if err := proj.RecolorLast(m, spec); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "recolor")
		}
		return &sexpResult{res: proj.Last()}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, errors.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		v := &sexpVec3{}
		for i, dst := range []*float64{&v.vec.X, &v.vec.Y, &v.vec.Z} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, errors.Wrapf(err, "vec3: %c", "xyz"[i])
			}
			*dst = f
		}
		return v, nil
	})

	// -----------------------------------------------------------------------
	// (inside mesh (vec3 0 0 0) :contribute true)
	// -----------------------------------------------------------------------
	env.AddFunction("inside", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, errors.New("inside requires a mesh and a point")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "inside")
		}
		p, err := toVec3(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "inside")
		}
		contribute := false
		if v, ok := pa.kw["contribute"]; ok {
			if contribute, err = toBool(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "inside: contribute")
			}
		}
		return &zygo.SexpBool{Val: proj.IsInside(m, p, contribute)}, nil
	})

	// -----------------------------------------------------------------------
	// (nonzero result)
	// -----------------------------------------------------------------------
	env.AddFunction("nonzero", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, errors.New("nonzero requires a projection result")
		}
		res, err := toResult(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "nonzero")
		}
		return &zygo.SexpInt{Val: int64(res.NonzeroCount())}, nil
	})
}

func meshOptions(pa kwArgs) ([]geometry.Option, error) {
	var opts []geometry.Option
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return nil, errors.Wrap(err, "name")
		}
		opts = append(opts, geometry.WithName(s))
	}
	if v, ok := pa.kw["color"]; ok {
		c, err := toColor(v)
		if err != nil {
			return nil, errors.Wrap(err, "color")
		}
		opts = append(opts, geometry.WithDefaultColor(c))
	}
	return opts, nil
}

func cmapSpec(pa kwArgs) (colormap.Spec, error) {
	var spec colormap.Spec
	nameArg, ok := pa.kw["name"]
	if !ok && len(pa.positional) > 0 {
		nameArg, ok = pa.positional[0], true
	}
	if ok {
		n, err := toKeywordString(nameArg)
		if err != nil {
			return spec, errors.Wrap(err, "name")
		}
		spec.Name = n
	}

	floatsByKey := map[string]**float64{"vmin": &spec.Vmin, "vmax": &spec.Vmax, "alpha": &spec.Alpha}
	for key, dst := range floatsByKey {
		if v, ok := pa.kw[key]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return spec, errors.Wrap(err, key)
			}
			*dst = colormap.Float(f)
		}
	}
	colorsByKey := map[string]**geometry.RGBA{"under": &spec.Under, "over": &spec.Over, "mask": &spec.MaskColor}
	for key, dst := range colorsByKey {
		if v, ok := pa.kw[key]; ok {
			c, err := toColor(v)
			if err != nil {
				return spec, errors.Wrap(err, key)
			}
			*dst = colormap.Color(c)
		}
	}
	if v, ok := pa.kw["label"]; ok {
		s, err := toString(v)
		if err != nil {
			return spec, errors.Wrap(err, "label")
		}
		spec.Label = s
	}
	if v, ok := pa.kw["font-size"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return spec, errors.Wrap(err, "font-size")
		}
		spec.FontSize = f
	}
	return spec, nil
}
