package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// TestE2EHemispheresExample exercises the full pipeline: script → engine →
// scene → JSON-ready result, the same path the run command takes.
func TestE2EHemispheresExample(t *testing.T) {
	app := NewApp(nil)

	source, err := os.ReadFile("../../examples/hemispheres.cortex")
	if err != nil {
		t.Fatalf("failed to read hemispheres.cortex: %v", err)
	}

	result := app.Evaluate(context.Background(), string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}

	m := result.Meshes[0]
	if m.Name != "brain" {
		t.Errorf("mesh name = %q, want brain", m.Name)
	}
	if len(m.Vertices) != 36 || len(m.Normals) != 36 {
		t.Errorf("expected 12 vertices and normals, got %d / %d floats", len(m.Vertices), len(m.Normals))
	}
	if len(m.Indices) != 60 {
		t.Errorf("expected 60 indices, got %d", len(m.Indices))
	}
	if len(m.Colors) != 60*4 {
		t.Errorf("expected 240 color floats, got %d", len(m.Colors))
	}
	if len(m.VertexColors) != 12*4 {
		t.Errorf("expected 48 vertex color floats, got %d", len(m.VertexColors))
	}

	if len(result.Colorbars) != 1 {
		t.Fatalf("expected 1 colorbar, got %d", len(result.Colorbars))
	}
	bar := result.Colorbars[0]
	if bar.Mode != "activity" || bar.Palette != "coolwarm" || bar.Label != "uV" {
		t.Errorf("unexpected colorbar %+v", bar)
	}
	if bar.Clim != [2]float64{1, 2} {
		t.Errorf("clim = %v, want [1 2]", bar.Clim)
	}
	// The 20 corners on the midline belong to neither hemisphere.
	if bar.Nonzero != 40 {
		t.Errorf("expected 40 painted slots, got %d", bar.Nonzero)
	}

	painted := 0
	for k := 0; k < len(m.Colors); k += 4 {
		if m.Colors[k+3] == float32(0.9) {
			painted++
		}
	}
	if painted != 40 {
		t.Errorf("expected 40 slots with alpha 0.9, got %d", painted)
	}
}

func TestE2EDensityExample(t *testing.T) {
	app := NewApp(nil)

	source, err := os.ReadFile("../../examples/density.cortex")
	if err != nil {
		t.Fatalf("failed to read density.cortex: %v", err)
	}

	result := app.Evaluate(context.Background(), string(source))
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].Name != "cortex" {
		t.Fatalf("expected the cortex mesh, got %d meshes", len(result.Meshes))
	}
	if len(result.Colorbars) != 1 {
		t.Fatalf("expected 1 colorbar, got %d", len(result.Colorbars))
	}
	bar := result.Colorbars[0]
	if bar.Mode != "density" || bar.Empty {
		t.Errorf("unexpected colorbar %+v", bar)
	}
	if bar.Clim[0] != 0 || bar.Clim[1] < 1 {
		t.Errorf("density clim = %v, want [0, max count]", bar.Clim)
	}
}

func TestE2EEmptySource(t *testing.T) {
	app := NewApp(nil)
	result := app.Evaluate(context.Background(), "")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Meshes == nil || result.Colorbars == nil || result.Errors == nil || result.Warnings == nil {
		t.Error("result slices should be non-nil")
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := NewApp(nil)

	result := app.Evaluate(context.Background(), "(+ 1 2)\n(template :icosphere")
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
}

func TestE2ENoSourcesWarning(t *testing.T) {
	app := NewApp(nil)

	result := app.Evaluate(context.Background(), `(project-density (template :icosphere) (sources))`)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", result.Warnings)
	}
	if !result.Colorbars[0].Empty {
		t.Error("expected an empty colorbar")
	}
}

func TestE2ECancelledContext(t *testing.T) {
	app := NewApp(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := app.Evaluate(ctx, `(template :icosphere)`)
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 fatal error, got %v", result.Errors)
	}
}

// ---------------------------------------------------------------------------
// Command tests
// ---------------------------------------------------------------------------

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "", "run", "--json", "../../examples/hemispheres.cortex")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	var result EvalResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(result.Meshes) != 1 || len(result.Colorbars) != 1 {
		t.Fatalf("unexpected result: %d meshes, %d colorbars", len(result.Meshes), len(result.Colorbars))
	}
}

func TestRunCommandStdinSummary(t *testing.T) {
	script := `(project-activity (template :icosphere :name "brain") (sources :xyz [[0 0 0]] :data [2]))`
	out, err := execute(t, script, "run", "-")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"mesh brain: 12 vertices, 20 faces",
		"activity on brain: viridis",
		"60 slots painted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandStrict(t *testing.T) {
	script := `(project-activity (template :icosphere) (sources))`
	if _, err := execute(t, script, "run", "-"); err != nil {
		t.Fatalf("warnings must not fail without --strict: %v", err)
	}
	out, err := execute(t, script, "run", "--strict", "-")
	if err == nil {
		t.Fatalf("expected --strict to fail on warnings:\n%s", out)
	}
	if !strings.Contains(out, "warning:") {
		t.Errorf("summary should list the warning:\n%s", out)
	}
}

func TestRunCommandEvalError(t *testing.T) {
	out, err := execute(t, `(template :cube)`, "run", "-")
	if err == nil {
		t.Fatal("expected an error exit for a failing script")
	}
	if !strings.Contains(out, "unknown template") {
		t.Errorf("summary should report the error:\n%s", out)
	}
}

func TestRunCommandMissingFile(t *testing.T) {
	if _, err := execute(t, "", "run", "does-not-exist.cortex"); err == nil {
		t.Fatal("expected an error for a missing script")
	}
}

func TestTemplatesCommand(t *testing.T) {
	out, err := execute(t, "", "templates")
	if err != nil {
		t.Fatalf("templates failed: %v", err)
	}
	for _, want := range []string{"icosphere", "sphere", "ellipsoid", "hemispheres"} {
		if !strings.Contains(out, want) {
			t.Errorf("templates output missing %q:\n%s", want, out)
		}
	}
}

func TestPalettesCommand(t *testing.T) {
	out, err := execute(t, "", "palettes")
	if err != nil {
		t.Fatalf("palettes failed: %v", err)
	}
	for _, want := range []string{"viridis", "coolwarm", "RdBu"} {
		if !strings.Contains(out, want) {
			t.Errorf("palettes output missing %q:\n%s", want, out)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"debug", "console", false},
		{"warn", "json", false},
		{"loud", "console", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		conf := viper.New()
		conf.Set("log-level", tt.level)
		conf.Set("log-format", tt.format)
		_, err := newLogger(conf)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%s, %s) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
	}
}
