package main

import (
	"context"

	"github.com/chazu/cortex/pkg/engine"
	"github.com/chazu/cortex/pkg/geometry"
	"go.uber.org/zap"
)

// App evaluates scene scripts and converts the resulting scene into the
// JSON-serializable form printed by the CLI.
type App struct {
	engine *engine.Engine
	logger *zap.Logger
}

// MeshData is the JSON-serializable mesh format. Colors holds one RGBA
// quadruple per face corner (slot k = 3*face + corner); VertexColors
// holds the last color written to each vertex.
type MeshData struct {
	Name         string    `json:"name"`
	Vertices     []float32 `json:"vertices"`
	Normals      []float32 `json:"normals"`
	Indices      []uint32  `json:"indices"`
	Colors       []float32 `json:"colors"`
	VertexColors []float32 `json:"vertexColors"`
}

// ColorbarData describes the colorbar of one projection.
type ColorbarData struct {
	Mesh     string     `json:"mesh"`
	Mode     string     `json:"mode"`
	Palette  string     `json:"palette"`
	Clim     [2]float64 `json:"clim"`
	Empty    bool       `json:"empty"`
	Label    string     `json:"label,omitempty"`
	FontSize float64    `json:"fontSize,omitempty"`
	Nonzero  int        `json:"nonzero"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one script evaluation.
type EvalResult struct {
	Meshes    []MeshData      `json:"meshes"`
	Colorbars []ColorbarData  `json:"colorbars"`
	Errors    []EvalErrorData `json:"errors"`
	Warnings  []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App whose engine logs through logger.
func NewApp(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		engine: engine.NewEngine(engine.WithLogger(logger)),
		logger: logger,
	}
}

// Evaluate runs source and returns mesh data, colorbars and errors.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:    []MeshData{},
		Colorbars: []ColorbarData{},
		Errors:    []EvalErrorData{},
		Warnings:  []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a scene.
	scene, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the output format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	for _, w := range scene.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.String()})
	}

	// Step 3: Convert meshes and projections.
	for _, m := range scene.Meshes {
		result.Meshes = append(result.Meshes, meshData(m))
	}
	for _, p := range scene.Projections {
		bar := p.Result.Colorbar
		result.Colorbars = append(result.Colorbars, ColorbarData{
			Mesh:     p.Mesh.Name,
			Mode:     p.Result.Mode.String(),
			Palette:  bar.Palette,
			Clim:     bar.Clim,
			Empty:    bar.Empty,
			Label:    bar.Label,
			FontSize: bar.FontSize,
			Nonzero:  p.Result.NonzeroCount(),
		})
	}

	return result
}

func meshData(m *geometry.Mesh) MeshData {
	d := MeshData{
		Name:     m.Name,
		Vertices: make([]float32, 0, 3*m.NumVertices()),
		Normals:  make([]float32, 0, 3*m.NumVertices()),
		Indices:  make([]uint32, 0, m.NumSlots()),
	}
	for _, v := range m.Vertices() {
		d.Vertices = append(d.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, n := range m.Normals() {
		d.Normals = append(d.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	for _, f := range m.Faces() {
		d.Indices = append(d.Indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	d.Colors = rgbaFloats(m.Colors())
	d.VertexColors = rgbaFloats(m.VertexColors())
	return d
}

func rgbaFloats(cs []geometry.RGBA) []float32 {
	out := make([]float32, 0, 4*len(cs))
	for _, c := range cs {
		out = append(out, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	}
	return out
}
