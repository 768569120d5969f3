package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/gouge/pkg/engine"
	"github.com/chazu/gouge/pkg/pipeline"
)

// App wires the job DSL to the pipeline runner.
type App struct {
	engine *engine.Engine
	runner *pipeline.Runner
	logger *zap.Logger
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating and running one job file.
type EvalResult struct {
	Job      *pipeline.Job           `json:"job,omitempty"`
	Results  []pipeline.RegionResult `json:"results"`
	Errors   []EvalErrorData         `json:"errors"`
	Warnings []EvalErrorData         `json:"warnings"`
}

// Failed returns the number of regions that produced no tool path.
func (r EvalResult) Failed() int {
	n := 0
	for i := range r.Results {
		if !r.Results[i].OK() {
			n++
		}
	}
	return n
}

// NewApp creates an App. A nil logger discards everything.
func NewApp(logger *zap.Logger, opts ...pipeline.Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		engine: engine.NewEngine(),
		runner: pipeline.NewRunner(append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)...),
		logger: logger,
	}
}

// Evaluate takes Lisp job source, builds the job and runs every region.
// Region failures are reported as errors naming the region; the other
// regions still produce results.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Results:  []pipeline.RegionResult{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a job.
	job, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors.
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
	result.Job = job

	// Step 3: Run the regions.
	results, err := a.runner.RunBatch(ctx, job)
	if results != nil {
		result.Results = results
	}
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}

	// Step 4: Surface region failures and warnings.
	for i := range result.Results {
		r := &result.Results[i]
		if !r.OK() {
			result.Errors = append(result.Errors, EvalErrorData{
				Message: fmt.Sprintf("pocket %q: %s", r.Name, r.Error),
			})
		}
		for _, d := range r.Diagnostics.Warnings() {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Message: fmt.Sprintf("pocket %q: %s", r.Name, d),
			})
		}
	}

	return result
}
