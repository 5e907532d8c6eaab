package geometry

import (
	"image/color"
	"math"
)

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// DefaultColor is the brain color every mesh starts with.
var DefaultColor = RGBA{R: 0.9, G: 0.9, B: 0.9, A: 1}

// FromColor converts a standard color.Color to RGBA.
func FromColor(c color.Color) RGBA {
	r, g, b, a := c.RGBA()
	return RGBA{
		R: float64(r) / 65535,
		G: float64(g) / 65535,
		B: float64(b) / 65535,
		A: float64(a) / 65535,
	}
}

// Color converts RGBA to the standard color.Color interface.
func (c RGBA) Color() color.Color {
	c = c.Clamped()
	return color.NRGBA{
		R: uint8(math.Round(c.R * 255)),
		G: uint8(math.Round(c.G * 255)),
		B: uint8(math.Round(c.B * 255)),
		A: uint8(math.Round(c.A * 255)),
	}
}

// WithAlpha returns c with its alpha replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c.A = a
	return c
}

// Clamped returns c with every component limited to [0, 1].
func (c RGBA) Clamped() RGBA {
	return RGBA{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

func (c RGBA) hasNaN() bool {
	return math.IsNaN(c.R) || math.IsNaN(c.G) || math.IsNaN(c.B) || math.IsNaN(c.A)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ColorBuffer is a color override accepted by Mesh.SetColor. It is either
// vertex-indexed (VertexColors, one entry per vertex) or face-vertex
// indexed (FaceColors, one entry per face corner, slot 3*f+c).
type ColorBuffer interface {
	colorBuffer()
	Len() int
}

// VertexColors holds one color per mesh vertex.
type VertexColors []RGBA

// FaceColors holds one color per face-vertex slot.
type FaceColors []RGBA

func (VertexColors) colorBuffer() {}
func (FaceColors) colorBuffer()   {}

// Len returns the number of entries.
func (v VertexColors) Len() int { return len(v) }

// Len returns the number of entries.
func (f FaceColors) Len() int { return len(f) }
