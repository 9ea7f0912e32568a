// Package recipe evaluates relief recipes: small Lisp programs, run in a
// sandboxed zygomys interpreter, that choose how a depth map is turned into
// a mesh.
//
//	; gentle relief for portraits
//	(relief :relief 0.3 :clip 0.02 :winding :ccw)
//	(depth-range 0.5 8)
//
// A recipe evaluates to tessellate.Options. Calls apply in order on top of
// the engine defaults, so later settings win.
package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/magicphoto/relief/pkg/tessellate"
)

// EvalError is a non-fatal problem with a recipe, such as a parse error, an
// unknown option or an out-of-range value.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates recipes. It is safe for concurrent use; every call to
// Evaluate runs in a fresh sandbox, and a newer call supersedes older ones
// still in flight.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	defaults   tessellate.Options
}

// NewEngine returns an Engine whose recipes start from
// tessellate.DefaultOptions.
func NewEngine() *Engine {
	return &Engine{defaults: tessellate.DefaultOptions()}
}

// SetDefaults replaces the options recipes start from.
func (e *Engine) SetDefaults(opts tessellate.Options) {
	e.mu.Lock()
	e.defaults = opts
	e.mu.Unlock()
}

// Defaults returns the options recipes start from.
func (e *Engine) Defaults() tessellate.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaults
}

// Evaluate runs source and returns the resulting options.
//
// Return semantics:
//   - On success: returns options + nil errors + nil error
//   - On parse/eval failure or invalid options: returns defaults + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns defaults + nil + error
func (e *Engine) Evaluate(source string) (tessellate.Options, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	base := e.defaults
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{opts: base, err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		opts, evalErrs := evaluate(base, source)
		ch <- evalResult{opts: opts, errors: evalErrs}
	}()

	res, err := waitWithTimeout(ch, gen, &e.mu, &e.generation)
	if err != nil {
		return base, nil, err
	}
	if res.err != nil {
		return base, nil, res.err
	}
	if len(res.errors) > 0 {
		return base, res.errors, nil
	}
	return res.opts, nil, nil
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func evaluate(base tessellate.Options, source string) (tessellate.Options, []EvalError) {
	if strings.TrimSpace(source) == "" {
		return base, nil
	}

	// Sandbox mode keeps recipes away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	opts := base
	registerBuiltins(env, &opts)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return base, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return base, parseZygomysError(err)
	}

	if err := opts.Validate(); err != nil {
		return base, []EvalError{{Message: strings.TrimPrefix(err.Error(), "tessellate: ")}}
	}
	return opts, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
