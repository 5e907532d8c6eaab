// Package colormap turns scalar fields into mesh colors: palette lookup,
// clip limits, under/over colors, the structural-mask overlay and the
// colorbar describing what was painted.
package colormap

import (
	"image/color"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// ErrUnknownPalette is returned for names outside the palette catalog.
var ErrUnknownPalette = errors.New("unknown palette")

// reversedSuffix flips any catalog palette.
const reversedSuffix = "_r"

// sampledStops is the resolution used to tabulate continuous color maps.
const sampledStops = 256

// Palette maps t in [0, 1] to a color. Values outside are clamped.
type Palette interface {
	At(t float64) geometry.RGBA
}

// Stops is a palette linearly interpolated between evenly spaced colors.
type Stops []colorful.Color

// At implements Palette.
func (s Stops) At(t float64) geometry.RGBA {
	switch {
	case len(s) == 0:
		return geometry.RGBA{A: 1}
	case t <= 0 || math.IsNaN(t):
		return fromColorful(s[0])
	case t >= 1:
		return fromColorful(s[len(s)-1])
	}
	idx := t * float64(len(s)-1)
	lower := int(idx)
	if lower >= len(s)-1 {
		return fromColorful(s[len(s)-1])
	}
	return fromColorful(s[lower].BlendRgb(s[lower+1], idx-float64(lower)))
}

// Reversed returns the stops in opposite order.
func (s Stops) Reversed() Stops {
	out := make(Stops, len(s))
	for i, c := range s {
		out[len(s)-1-i] = c
	}
	return out
}

func fromColorful(c colorful.Color) geometry.RGBA {
	c = c.Clamped()
	return geometry.RGBA{R: c.R, G: c.G, B: c.B, A: 1}
}

func rgbStops(rgb ...[3]uint8) Stops {
	out := make(Stops, len(rgb))
	for i, c := range rgb {
		out[i] = colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
	}
	return out
}

func colorStops(colors []color.Color) Stops {
	out := make(Stops, 0, len(colors))
	for _, c := range colors {
		cc, ok := colorful.MakeColor(c)
		if !ok {
			continue
		}
		out = append(out, cc)
	}
	return out
}

// sampleColorMap tabulates a gonum color map over [0, 1]. Samples the map
// rejects (out of gamut) repeat the previous color.
func sampleColorMap(cm palette.ColorMap) (Stops, error) {
	cm.SetMin(0)
	cm.SetMax(1)
	var out Stops
	for i := 0; i < sampledStops; i++ {
		c, err := cm.At(float64(i) / (sampledStops - 1))
		if err != nil {
			if len(out) > 0 {
				out = append(out, out[len(out)-1])
			}
			continue
		}
		cc, ok := colorful.MakeColor(c)
		if !ok {
			continue
		}
		out = append(out, cc)
	}
	if len(out) < 2 {
		return nil, errors.New("color map produced no usable colors")
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type builder func() (Stops, error)

func fixed(s Stops) builder { return func() (Stops, error) { return s, nil } }

func fromMoreland(cm func() palette.ColorMap) builder {
	return func() (Stops, error) { return sampleColorMap(cm()) }
}

func fromDiverging(cm func() palette.DivergingColorMap) builder {
	return func() (Stops, error) { return sampleColorMap(cm()) }
}

func fromBrewer(name string) builder {
	return func() (Stops, error) {
		p, err := brewer.GetPalette(brewer.TypeAny, name, 9)
		if err != nil {
			return nil, err
		}
		return colorStops(p.Colors()), nil
	}
}

var catalog = map[string]builder{
	"viridis": fixed(rgbStops(
		[3]uint8{68, 1, 84}, [3]uint8{72, 35, 116}, [3]uint8{64, 67, 135}, [3]uint8{52, 94, 141},
		[3]uint8{41, 120, 142}, [3]uint8{32, 144, 140}, [3]uint8{34, 167, 132}, [3]uint8{68, 190, 112},
		[3]uint8{121, 209, 81}, [3]uint8{189, 222, 38}, [3]uint8{253, 231, 37},
	)),
	"plasma": fixed(rgbStops(
		[3]uint8{13, 8, 135}, [3]uint8{75, 3, 161}, [3]uint8{125, 3, 168}, [3]uint8{168, 34, 150},
		[3]uint8{203, 70, 121}, [3]uint8{229, 107, 93}, [3]uint8{248, 148, 65}, [3]uint8{253, 195, 40},
		[3]uint8{240, 249, 33},
	)),
	"inferno": fixed(rgbStops(
		[3]uint8{0, 0, 4}, [3]uint8{40, 11, 84}, [3]uint8{101, 21, 110}, [3]uint8{159, 42, 99},
		[3]uint8{212, 72, 66}, [3]uint8{245, 125, 21}, [3]uint8{250, 193, 39}, [3]uint8{252, 255, 164},
	)),
	"magma": fixed(rgbStops(
		[3]uint8{0, 0, 4}, [3]uint8{28, 16, 68}, [3]uint8{79, 18, 123}, [3]uint8{129, 37, 129},
		[3]uint8{181, 54, 122}, [3]uint8{229, 80, 100}, [3]uint8{251, 135, 97}, [3]uint8{254, 194, 135},
		[3]uint8{252, 253, 191},
	)),
	"gray": fixed(rgbStops([3]uint8{0, 0, 0}, [3]uint8{255, 255, 255})),
	"hot": func() (Stops, error) {
		return colorStops(palette.Heat(sampledStops, 1).Colors()), nil
	},

	"coolwarm":           fromDiverging(moreland.SmoothBlueRed),
	"green_purple":       fromDiverging(moreland.SmoothGreenPurple),
	"purple_orange":      fromDiverging(moreland.SmoothPurpleOrange),
	"blue_tan":           fromDiverging(moreland.SmoothBlueTan),
	"green_red":          fromDiverging(moreland.SmoothGreenRed),
	"blackbody":          fromMoreland(moreland.BlackBody),
	"extended_blackbody": fromMoreland(moreland.ExtendedBlackBody),
	"kindlmann":          fromMoreland(moreland.Kindlmann),
	"extended_kindlmann": fromMoreland(moreland.ExtendedKindlmann),

	"Reds":     fromBrewer("Reds"),
	"Blues":    fromBrewer("Blues"),
	"Greens":   fromBrewer("Greens"),
	"Greys":    fromBrewer("Greys"),
	"YlOrRd":   fromBrewer("YlOrRd"),
	"RdBu":     fromBrewer("RdBu"),
	"Spectral": fromBrewer("Spectral"),
	"PuOr":     fromBrewer("PuOr"),
}

var (
	builtMu sync.Mutex
	built   = map[string]Stops{}
)

// Names returns the catalog palette names, sorted. Each also exists with
// a "_r" suffix for the reversed palette.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named palette.
func Lookup(name string) (Stops, error) {
	base, reversed := strings.CutSuffix(name, reversedSuffix)
	b, ok := catalog[base]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPalette, "%q", name)
	}

	builtMu.Lock()
	defer builtMu.Unlock()
	s, ok := built[base]
	if !ok {
		var err error
		if s, err = b(); err != nil {
			return nil, errors.Wrapf(err, "building palette %q", base)
		}
		built[base] = s
	}
	if reversed {
		return s.Reversed(), nil
	}
	return s, nil
}
