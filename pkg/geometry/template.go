package geometry

import (
	"sort"

	"github.com/chazu/cortex/pkg/kernel/sdfx"
	"github.com/chazu/cortex/pkg/tessellate"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Template names accepted by Load.
const (
	TemplateIcosphere   = "icosphere"
	TemplateSphere      = "sphere"
	TemplateEllipsoid   = "ellipsoid"
	TemplateHemispheres = "hemispheres"
)

// hemisphereCells is the marching cubes resolution of the hemispheres
// template; weldTolerance merges coincident soup vertices.
const (
	hemisphereCells = 40
	weldTolerance   = 1e-5
)

var templates = map[string]func() (*shape, error){
	TemplateIcosphere: func() (*shape, error) {
		return newShape(tessellate.Icosphere(0)), nil
	},
	TemplateSphere: func() (*shape, error) {
		return newShape(tessellate.Icosphere(3)), nil
	},
	TemplateEllipsoid: func() (*shape, error) {
		v, f := tessellate.Icosphere(3)
		for i := range v {
			v[i] = r3.Vec{X: 0.7 * v[i].X, Y: v[i].Y, Z: 0.8 * v[i].Z}
		}
		return newShape(v, f), nil
	},
	TemplateHemispheres: buildHemispheres,
}

// buildHemispheres models the two cerebral hemispheres as ellipsoids
// separated by a gap at x = 0, so no vertex lies on the midline.
func buildHemispheres() (*shape, error) {
	radii := r3.Vec{X: 0.45, Y: 0.8, Z: 0.6}
	parts := []tessellate.Part{
		{Name: "left", Radii: radii, Center: r3.Vec{X: -0.5}},
		{Name: "right", Radii: radii, Center: r3.Vec{X: 0.5}},
	}
	soup, err := tessellate.Tessellate(parts, sdfx.New(), hemisphereCells)
	if err != nil {
		return nil, err
	}
	v, f, err := tessellate.Weld(soup, weldTolerance)
	if err != nil {
		return nil, err
	}
	return newShape(v, f), nil
}

// shapeCache keeps built template geometry so that repeated loads share
// it; each Load still gets its own color buffer.
var shapeCache = newShapeCache()

func newShapeCache() *ristretto.Cache[string, *shape] {
	c, err := ristretto.NewCache(&ristretto.Config[string, *shape]{
		NumCounters: 10 * int64(len(templates)),
		MaxCost:     int64(len(templates)),
		BufferItems: 64,
		// Costs count templates, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic(errors.Wrap(err, "geometry: template cache"))
	}
	return c
}

// Templates returns the catalog of template names, sorted.
func Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns a fresh mesh for the named template. The geometry is
// built once and cached; the color buffer starts at the default color.
func Load(name string, opts ...Option) (*Mesh, error) {
	build, ok := templates[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTemplate, "template %q", name)
	}
	opts = append([]Option{WithName(name)}, opts...)

	if s, ok := shapeCache.Get(name); ok {
		return newMeshFromShape(s, opts...), nil
	}
	s, err := build()
	if err != nil {
		return nil, errors.Wrapf(err, "building template %q", name)
	}
	shapeCache.Set(name, s, 1)
	shapeCache.Wait()
	return newMeshFromShape(s, opts...), nil
}
