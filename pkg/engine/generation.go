package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/gouge/pkg/pipeline"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past the engine's
	// limit. The interpreter goroutine is abandoned and its result dropped.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one had started on the same engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer request")
)

// outcome is what an interpreter goroutine hands back.
type outcome struct {
	job  *pipeline.Job
	errs []EvalError
	err  error
}

// begin opens a new evaluation generation and returns its number.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

// latest reports whether gen is still the newest generation.
func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// spawn evaluates source on its own goroutine. The channel is buffered so
// an abandoned evaluation never blocks.
func (e *Engine) spawn(source string) <-chan outcome {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		job, errs, err := e.evaluate(source)
		done <- outcome{job: job, errs: errs, err: err}
	}()
	return done
}

// await waits for generation gen to deliver on done. It gives up when ctx
// ends or the engine timeout passes, and discards results that arrive
// after a newer generation has begun.
func (e *Engine) await(ctx context.Context, gen uint64, done <-chan outcome) (*pipeline.Job, []EvalError, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	select {
	case out := <-done:
		if !e.latest(gen) {
			return nil, nil, ErrSuperseded
		}
		return out.job, out.errs, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}
