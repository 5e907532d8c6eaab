// Package engine evaluates scene scripts: small Lisp programs that load
// meshes, build source sets and run projections. It wraps zygomys in a
// sandboxed environment and collects what the script produced into a
// Scene.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/cortex/pkg/geometry"
	"github.com/chazu/cortex/pkg/projection"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Mesh    string
	Message string
}

func (w EvalWarning) String() string {
	if w.Mesh != "" {
		return fmt.Sprintf("%s: %s", w.Mesh, w.Message)
	}
	return w.Message
}

// Projection records one projection pass run by a script.
type Projection struct {
	Mesh   *geometry.Mesh
	Result *projection.Result
}

// Scene is everything a script produced, in creation order.
type Scene struct {
	Meshes      []*geometry.Mesh
	Projections []Projection
	Warnings    []EvalWarning
}

func (s *Scene) addMesh(m *geometry.Mesh) {
	for _, have := range s.Meshes {
		if have == m {
			return
		}
	}
	s.Meshes = append(s.Meshes, m)
}

func (s *Scene) warn(mesh, format string, args ...any) {
	s.Warnings = append(s.Warnings, EvalWarning{Mesh: mesh, Message: fmt.Sprintf(format, args...)})
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger handed to the projection engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine wraps the zygomys interpreter for scene evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh projection engine for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	logger     *zap.Logger
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs a scene script and returns the scene it built.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate with a caller context. Cancelling ctx or
// hitting EvalTimeout aborts any projection in progress.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*Scene, []EvalError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "evaluation cancelled")
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, EvalTimeout)
	defer cancel()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: errors.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(ctx, source)
		ch <- evalResult{scene: s, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ctx, ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*Scene, []EvalError, error) {
	scene := &Scene{}
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return scene, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	proj := projection.New(projection.WithLogger(e.logger))
	registerBuiltins(ctx, env, scene, proj)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, errors.Wrap(ctxErr, "evaluation aborted")
		}
		return nil, parseZygomysError(err), nil
	}
	return scene, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
