package colormap

import (
	"math"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Colorbar describes the palette and clip range actually painted.
type Colorbar struct {
	Palette  string
	Clim     [2]float64
	Empty    bool
	Under    *geometry.RGBA
	Over     *geometry.RGBA
	Label    string
	FontSize float64
}

// EmptyColorbar is the colorbar of a projection that painted nothing.
func EmptyColorbar(spec Spec) Colorbar {
	spec = spec.Normalized()
	return Colorbar{
		Palette:  spec.Name,
		Empty:    true,
		Label:    spec.Label,
		FontSize: spec.FontSize,
	}
}

// Colorize samples the palette for every nonzero entry of field. Entries
// outside nonzero are left as the zero RGBA. The returned colors carry
// alpha 1; Compose applies the global alpha.
//
// Values are first divided by max(|field|) and the clip limits by the
// same factor, so data that is asymmetric around zero keeps negative
// values at the low end of the palette. A clip limit outside the data
// range is reset: vmin above the data maximum and vmax below the data
// minimum both fall back to the data minimum.
func Colorize(field []float64, nonzero []bool, spec Spec) ([]geometry.RGBA, Colorbar, error) {
	if len(field) != len(nonzero) {
		return nil, Colorbar{}, errors.Wrapf(geometry.ErrShapeMismatch, "field has %d entries, mask %d", len(field), len(nonzero))
	}
	spec = spec.Normalized()
	pal, err := Lookup(spec.Name)
	if err != nil {
		return nil, Colorbar{}, err
	}

	values := make([]float64, 0, len(field))
	for k, nz := range nonzero {
		if nz {
			values = append(values, field[k])
		}
	}
	out := make([]geometry.RGBA, len(field))
	if len(values) == 0 {
		return out, EmptyColorbar(spec), nil
	}

	dmin, dmax := floats.Min(values), floats.Max(values)
	vmin, vmax := dmin, dmax
	if spec.Vmin != nil {
		vmin = *spec.Vmin
		if vmin > dmax {
			vmin = dmin
		}
	}
	if spec.Vmax != nil {
		vmax = *spec.Vmax
		if vmax < dmin {
			vmax = dmin
		}
	}

	scale := math.Max(math.Abs(dmin), math.Abs(dmax))
	if scale == 0 {
		scale = 1
	}
	lo, hi := vmin/scale, vmax/scale

	for k, nz := range nonzero {
		if !nz {
			continue
		}
		x := field[k] / scale
		switch {
		case spec.Vmin != nil && spec.Under != nil && x < lo:
			out[k] = *spec.Under
		case spec.Vmax != nil && spec.Over != nil && x > hi:
			out[k] = *spec.Over
		default:
			out[k] = pal.At(position(x, lo, hi))
		}
	}

	return out, Colorbar{
		Palette:  spec.Name,
		Clim:     [2]float64{vmin, vmax},
		Under:    spec.Under,
		Over:     spec.Over,
		Label:    spec.Label,
		FontSize: spec.FontSize,
	}, nil
}

// position maps x into [0, 1] between lo and hi. A degenerate range maps
// everything to 0.
func position(x, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return math.Max(0, math.Min(1, (x-lo)/(hi-lo)))
}

// Compose writes colors into the mesh: nonzero slots take their palette
// color, structural slots take the mask color over it, and every written
// slot takes the global alpha. Other slots keep the mesh's current color.
func Compose(m *geometry.Mesh, colors []geometry.RGBA, nonzero, structural []bool, spec Spec) error {
	return ComposeOnto(m, nil, colors, nonzero, structural, spec)
}

// ComposeOnto is Compose starting from base instead of the mesh's current
// colors: slots that are neither nonzero nor structural are set to base.
// A nil base behaves like Compose.
func ComposeOnto(m *geometry.Mesh, base, colors []geometry.RGBA, nonzero, structural []bool, spec Spec) error {
	n := m.NumSlots()
	if len(colors) != n || len(nonzero) != n || len(structural) != n || (base != nil && len(base) != n) {
		return errors.Wrapf(geometry.ErrShapeMismatch, "compose buffers (%d, %d, %d, %d), mesh has %d slots",
			len(base), len(colors), len(nonzero), len(structural), n)
	}
	spec = spec.Normalized()

	var buf []geometry.RGBA
	var written []bool
	if base == nil {
		buf = m.Colors()
		written = make([]bool, n)
	} else {
		buf = append([]geometry.RGBA(nil), base...)
	}
	for k := range buf {
		switch {
		case structural[k]:
			buf[k] = *spec.MaskColor
		case nonzero[k]:
			buf[k] = colors[k]
		default:
			continue
		}
		buf[k].A = *spec.Alpha
		if written != nil {
			written[k] = true
		}
	}
	return m.SetColor(geometry.FaceColors(buf), written)
}
