package colormap

import (
	"math"
	"strings"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

// DefaultPalette is used when a Spec names none.
const DefaultPalette = "viridis"

// ErrInvalidColorName is returned by ParseColor for unparseable input.
var ErrInvalidColorName = errors.New("invalid color")

// DefaultMaskColor paints slots reached only by structurally masked sources.
var DefaultMaskColor = geometry.FromColor(colornames.Orange)

// Spec describes how a field is turned into colors. Nil pointers mean
// "not set".
type Spec struct {
	Name       string
	Vmin, Vmax *float64
	Under      *geometry.RGBA
	Over       *geometry.RGBA
	Alpha      *float64
	MaskColor  *geometry.RGBA
	Label      string
	FontSize   float64
}

// Float returns a pointer to v, for the optional Spec fields.
func Float(v float64) *float64 { return &v }

// Color returns a pointer to c, for the optional Spec fields.
func Color(c geometry.RGBA) *geometry.RGBA { return &c }

// Normalized returns a copy with defaults filled in, reversed clip limits
// swapped and alpha limited to [0, 1]. The copy shares nothing with s.
func (s Spec) Normalized() Spec {
	out := Spec{
		Name:     s.Name,
		Label:    s.Label,
		FontSize: s.FontSize,
	}
	if out.Name == "" {
		out.Name = DefaultPalette
	}
	if s.Vmin != nil {
		out.Vmin = Float(*s.Vmin)
	}
	if s.Vmax != nil {
		out.Vmax = Float(*s.Vmax)
	}
	if out.Vmin != nil && out.Vmax != nil && *out.Vmax < *out.Vmin {
		out.Vmin, out.Vmax = out.Vmax, out.Vmin
	}
	if s.Under != nil {
		out.Under = Color(s.Under.Clamped())
	}
	if s.Over != nil {
		out.Over = Color(s.Over.Clamped())
	}
	alpha := 1.0
	if s.Alpha != nil && !math.IsNaN(*s.Alpha) {
		alpha = math.Max(0, math.Min(1, *s.Alpha))
	}
	out.Alpha = Float(alpha)
	mask := DefaultMaskColor
	if s.MaskColor != nil {
		mask = s.MaskColor.Clamped()
	}
	out.MaskColor = Color(mask)
	return out
}

// ParseColor accepts "#rrggbb", "#rgb" or a CSS color name.
func ParseColor(s string) (geometry.RGBA, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(key, "#") {
		c, err := colorful.Hex(key)
		if err != nil {
			return geometry.RGBA{}, errors.Wrapf(ErrInvalidColorName, "%q", s)
		}
		return geometry.RGBA{R: c.R, G: c.G, B: c.B, A: 1}, nil
	}
	c, ok := colornames.Map[key]
	if !ok {
		return geometry.RGBA{}, errors.Wrapf(ErrInvalidColorName, "%q", s)
	}
	return geometry.FromColor(c), nil
}
