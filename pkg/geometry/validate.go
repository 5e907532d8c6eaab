package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Advisory geometry checks
// ---------------------------------------------------------------------------

// degenerateArea is the triangle area below which a face is reported.
const degenerateArea = 1e-12

// ValidationWarning is an advisory finding about mesh geometry. Warnings
// never block projection.
type ValidationWarning struct {
	Face    int // -1 when the warning concerns a vertex
	Vertex  int // -1 when the warning concerns a face
	Message string
}

func (w ValidationWarning) String() string {
	switch {
	case w.Face >= 0:
		return fmt.Sprintf("face %d: %s", w.Face, w.Message)
	case w.Vertex >= 0:
		return fmt.Sprintf("vertex %d: %s", w.Vertex, w.Message)
	default:
		return w.Message
	}
}

// Validate runs the advisory checks. Hard errors (bad shapes, indices out
// of range) are rejected at construction, so only warnings remain here.
func (m *Mesh) Validate() []ValidationWarning {
	var warnings []ValidationWarning
	warnings = append(warnings, m.validateDegenerateFaces()...)
	warnings = append(warnings, m.validateUnreferencedVertices()...)
	return warnings
}

// validateDegenerateFaces reports faces with repeated corners or no area.
func (m *Mesh) validateDegenerateFaces() []ValidationWarning {
	var warnings []ValidationWarning
	for i, f := range m.geo.faces {
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			warnings = append(warnings, ValidationWarning{
				Face: i, Vertex: -1,
				Message: fmt.Sprintf("repeated vertex in %v", f),
			})
			continue
		}
		a, b, c := m.geo.vertices[f[0]], m.geo.vertices[f[1]], m.geo.vertices[f[2]]
		area := 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
		if area < degenerateArea {
			warnings = append(warnings, ValidationWarning{
				Face: i, Vertex: -1,
				Message: fmt.Sprintf("zero-area triangle (area %.3g)", area),
			})
		}
	}
	return warnings
}

// validateUnreferencedVertices reports vertices no face uses. They never
// receive color and are invisible to projection.
func (m *Mesh) validateUnreferencedVertices() []ValidationWarning {
	used := make([]bool, len(m.geo.vertices))
	for _, f := range m.geo.faces {
		for _, vi := range f {
			used[vi] = true
		}
	}
	var warnings []ValidationWarning
	for i, u := range used {
		if !u {
			warnings = append(warnings, ValidationWarning{
				Face: -1, Vertex: i,
				Message: "not referenced by any face",
			})
		}
	}
	return warnings
}
