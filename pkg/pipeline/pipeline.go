// Package pipeline runs the photo -> depth -> mesh handoff. Depth estimation
// is slow and may run on an inference backend, so it happens on its own
// goroutine with a deadline; meshing is synchronous once a depth map
// arrives. The processor keeps the most recent successful relief and leaves
// it in place when a later request fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/magicphoto/relief/pkg/depth"
	"github.com/magicphoto/relief/pkg/mesh"
	"github.com/magicphoto/relief/pkg/tessellate"
)

// DefaultTimeout bounds a single depth estimation.
const DefaultTimeout = 30 * time.Second

// ErrSuperseded is returned for requests overtaken by a newer one. Their
// results are discarded.
var ErrSuperseded = errors.New("pipeline: superseded by newer request")

// Relief is a finished reconstruction ready for display.
type Relief struct {
	ID          string
	Mesh        *mesh.Mesh
	Diagnostics tessellate.Diagnostics
	Disparity   bool // depth map held inverse depth
	CreatedAt   time.Time
}

// Request describes one photo to reconstruct. Nil collaborators fall back to
// the processor's defaults.
type Request struct {
	Image     image.Image
	Estimator depth.Estimator
	Builder   *tessellate.Builder
}

// Processor turns photos into reliefs. It is safe for concurrent use.
type Processor struct {
	estimator depth.Estimator
	builder   *tessellate.Builder
	timeout   time.Duration

	mu         sync.Mutex
	generation uint64
	current    *Relief
}

// New returns a Processor. A non-positive timeout selects DefaultTimeout.
func New(est depth.Estimator, b *tessellate.Builder, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Processor{estimator: est, builder: b, timeout: timeout}
}

// Current returns the most recent successful relief, or nil.
func (p *Processor) Current() *Relief {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

type estimateResult struct {
	depth *depth.Map
	err   error
}

// Process estimates depth for req.Image and meshes it. On success the relief
// becomes Current; on any failure Current is left untouched.
func (p *Processor) Process(ctx context.Context, req Request) (*Relief, error) {
	est, b := req.Estimator, req.Builder
	if est == nil {
		est = p.estimator
	}
	if b == nil {
		b = p.builder
	}
	if est == nil || b == nil {
		return nil, errors.New("pipeline: processor needs an estimator and a builder")
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	dm, err := p.estimate(ctx, est, req.Image)
	if err != nil {
		return nil, err
	}
	if p.superseded(gen) {
		return nil, ErrSuperseded
	}

	m, diag, err := b.Build(dm)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build: %w", err)
	}
	if fs := mesh.Validate(m); mesh.HasErrors(fs) {
		return nil, fmt.Errorf("pipeline: built mesh is invalid: %v", fs)
	}
	if diag.Anomalous() {
		log.Printf("pipeline: clamped %d depth samples (%d non-finite) to [%g, %g]",
			diag.Clamped, diag.NonFinite, diag.MinDepth, diag.MaxDepth)
	}

	r := &Relief{
		ID:          uuid.NewString(),
		Mesh:        m,
		Diagnostics: diag,
		Disparity:   dm.Disparity,
		CreatedAt:   time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return nil, ErrSuperseded
	}
	p.current = r
	return r, nil
}

func (p *Processor) superseded(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen != p.generation
}

// estimate runs est on its own goroutine and waits for it, the deadline or
// ctx, whichever comes first. An abandoned estimator finishes into the
// buffered channel and is collected.
func (p *Processor) estimate(ctx context.Context, est depth.Estimator, img image.Image) (*depth.Map, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ch := make(chan estimateResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- estimateResult{err: fmt.Errorf("panic during depth estimation: %v", r)}
			}
		}()
		dm, err := est.Estimate(ctx, img)
		ch <- estimateResult{depth: dm, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("pipeline: estimate: %w", res.err)
		}
		if res.depth == nil {
			return nil, errors.New("pipeline: estimate: estimator returned no depth map")
		}
		return res.depth, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("pipeline: estimate: %w", ctx.Err())
	}
}
