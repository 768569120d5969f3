// Package pipeline turns pocket regions into tool moves. It runs the
// geometry stages in order for each region:
//
//	reconstruct -> classify -> offset -> stitch -> fillet -> overload -> emit
//
// and processes the regions of a job in parallel. A structural failure in
// one region is recorded in that region's result and never affects its
// siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/gouge/pkg/adaptive"
	"github.com/chazu/gouge/pkg/contour"
	"github.com/chazu/gouge/pkg/diag"
	"github.com/chazu/gouge/pkg/fillet"
	"github.com/chazu/gouge/pkg/kernel"
	"github.com/chazu/gouge/pkg/kernel/sdfx"
	"github.com/chazu/gouge/pkg/offset"
	"github.com/chazu/gouge/pkg/overload"
	"github.com/chazu/gouge/pkg/spiral"
	"github.com/chazu/gouge/pkg/toolpath"
)

// Region is one pocket: pre-extracted loops, raw primitives to chain, or
// both.
type Region struct {
	Name       string              `json:"name"`
	Loops      []contour.Loop      `json:"loops,omitempty"`
	Primitives []contour.Primitive `json:"-"`
}

// Job is a set of regions machined with one parameter set.
type Job struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Params  Params    `json:"params"`
	Regions []Region  `json:"regions"`
}

// NewJob returns an empty job with a fresh ID and default parameters.
func NewJob(name string) *Job {
	return &Job{ID: uuid.New(), Name: name, Params: DefaultParams()}
}

// RegionResult is the outcome of one region. Err is set when no tool path
// could be produced, and always carries the reason.
type RegionResult struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Moves       []toolpath.Move     `json:"moves"`
	Fillets     []fillet.Annotation `json:"fillets"`
	Overloads   []overload.Zone     `json:"overloads"`
	Rings       []offset.Ring       `json:"rings"`
	Path        spiral.Path         `json:"path"`
	Stats       toolpath.Stats      `json:"stats"`
	Diagnostics diag.List           `json:"diagnostics"`
	Spacing     []adaptive.Adjusted `json:"spacing,omitempty"`
	Coverage    Coverage            `json:"coverage"`
	Duration    time.Duration       `json:"duration"`
	Err         error               `json:"-"`
	Error       string              `json:"error,omitempty"`
}

// Status is a short label for the outcome.
func (r *RegionResult) Status() string { return statusFor(r.Err) }

// OK reports whether the region produced a tool path.
func (r *RegionResult) OK() bool { return r.Err == nil }

func (r *RegionResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// skipped is the result of a region that never ran.
func skipped(region Region, err error) RegionResult {
	res := RegionResult{ID: uuid.New(), Name: region.Name}
	res.fail(err)
	return res
}

// Runner executes jobs. The zero value is not usable; use NewRunner.
type Runner struct {
	logger  *zap.Logger
	metrics *Metrics
	kernel  kernel.Kernel
	workers int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithKernel sets the distance kernel used by the offset engine.
func WithKernel(k kernel.Kernel) Option { return func(r *Runner) { r.kernel = k } }

// WithWorkers bounds the number of regions processed at once. The default
// is GOMAXPROCS.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:  zap.NewNop(),
		kernel:  sdfx.New(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// RunBatch processes every region of job, in parallel. Results are in
// region order. An invalid parameter set fails the whole call; region
// failures are reported per region. Cancelling ctx stops regions that
// have not started yet; their results carry ctx's error.
func (r *Runner) RunBatch(ctx context.Context, job *Job) ([]RegionResult, error) {
	if err := job.Params.Validate(); err != nil {
		return nil, err
	}
	log := r.logger.With(zap.String("job", job.Name), zap.Stringer("job_id", job.ID))
	log.Info("batch started", zap.Int("regions", len(job.Regions)), zap.Int("workers", r.workers))

	results := make([]RegionResult, len(job.Regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range job.Regions {
		region := job.Regions[i]
		if err := ctx.Err(); err != nil {
			results[i] = skipped(region, err)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = skipped(region, err)
				return nil
			}
			results[i] = r.RunRegion(region, job.Params)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i := range results {
		if !results[i].OK() {
			failed++
		}
	}
	log.Info("batch finished", zap.Int("regions", len(results)), zap.Int("failed", failed))
	return results, ctx.Err()
}

// RunRegion runs the full pipeline on one region. It never panics on bad
// geometry; every failure ends up in the result's Err.
func (r *Runner) RunRegion(region Region, p Params) RegionResult {
	start := time.Now()
	res := &RegionResult{ID: uuid.New(), Name: region.Name}
	log := r.logger.With(zap.String("region", region.Name), zap.Stringer("region_id", res.ID))

	if err := r.runRegion(region, p, res); err != nil {
		res.fail(err)
		log.Warn("region failed", zap.Error(err), zap.String("status", res.Status()))
	}
	res.Duration = time.Since(start)
	for _, d := range res.Diagnostics.Warnings() {
		log.Debug("finding", zap.String("code", string(d.Code)), zap.String("message", d.Message))
	}
	if res.OK() {
		log.Info("region done",
			zap.Int("rings", len(res.Rings)),
			zap.Int("runs", len(res.Path.Runs)),
			zap.Int("fillets", len(res.Fillets)),
			zap.Int("overloads", len(res.Overloads)),
			zap.Int("moves", len(res.Moves)),
			zap.Int("warnings", len(res.Diagnostics.Warnings())),
			zap.Duration("took", res.Duration),
		)
	}
	r.metrics.RecordRegion(res, res.Duration)
	return *res
}

func (r *Runner) runRegion(region Region, p Params, res *RegionResult) error {
	if err := p.Validate(); err != nil {
		return err
	}

	loops, err := r.loops(region, p, res)
	if err != nil {
		return err
	}

	opts := []offset.Option{
		offset.WithTolerance(p.Tolerance),
		offset.WithMaxPasses(p.maxPasses()),
		offset.WithKernel(r.kernel),
	}
	var mod *adaptive.Modulator
	if p.TargetStepover > 0 {
		mod, err = adaptive.NewModulator(p.TargetStepover * p.ToolDiameter)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		opts = append(opts, offset.WithSpacer(mod))
	}
	off, err := offset.Inward(loops, p.ToolDiameter, p.StepoverFraction, p.Margin, opts...)
	if off != nil {
		res.Diagnostics = append(res.Diagnostics, off.Diagnostics...)
		res.Rings = off.Rings
	}
	if mod != nil {
		res.Diagnostics = append(res.Diagnostics, mod.Diagnostics()...)
		res.Spacing = mod.Plan()
	}
	if err != nil {
		return err
	}
	if len(off.Rings) == 0 {
		f := diag.Fail(diag.ToolTooLargeForPocket, "no ring fits the pocket for a %.2f mm tool", p.ToolDiameter)
		res.Diagnostics = append(res.Diagnostics, f)
		return diag.NewError(f)
	}

	path, sd := spiral.Stitch(off.Rings, spiral.Options{
		Mode:      p.mode(),
		Climb:     p.Climb,
		Domain:    off.Domain,
		Tolerance: p.Tolerance,
	})
	res.Diagnostics = append(res.Diagnostics, sd...)

	path, res.Fillets, err = fillet.Inject(path, p.MinFilletRadius, p.MaxFilletRadius)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	res.Path = path

	cov, err := r.coverage(loops, off.Rings, path, p)
	switch {
	case err != nil:
		res.Diagnostics = append(res.Diagnostics, diag.Warn(diag.CoverageGap, "coverage not estimated: %v", err))
	case cov.Fraction < 1-CoverageGapFraction:
		res.Diagnostics = append(res.Diagnostics, diag.Warn(diag.CoverageGap,
			"tool sweeps only %s of the pocket floor; lower the stepover", cov))
	}
	res.Coverage = cov

	res.Overloads, err = overload.Analyze(path, p.ToolDiameter, p.FeedXY)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	depths, err := toolpath.Layers(p.Depth, p.Stepdown)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	moves, err := toolpath.Emit(path, res.Fillets, p.FeedXY,
		toolpath.WithDepths(depths...),
		toolpath.WithSafeZ(p.SafeZ),
		toolpath.WithPlungeFeed(p.plungeFeed()),
	)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if p.ApplyOverloads {
		moves = toolpath.ApplyOverloads(moves, res.Overloads)
	}
	res.Moves = moves
	res.Stats = toolpath.Summarize(moves)
	return nil
}

// loops reconstructs primitives, merges them with the region's loops and
// re-validates the lot.
func (r *Runner) loops(region Region, p Params, res *RegionResult) ([]contour.Loop, error) {
	var all []contour.Loop
	for _, l := range region.Loops {
		l.Role = contour.RoleUnassigned
		all = append(all, l)
	}
	var open int
	if len(region.Primitives) > 0 {
		rec, err := contour.Reconstruct(region.Primitives, p.Tolerance)
		if rec != nil {
			// Classification findings are reported once, below.
			res.Diagnostics = append(res.Diagnostics, rec.Diagnostics.Warnings()...)
			open = len(rec.Open)
			for _, l := range rec.Loops {
				l.Role = contour.RoleUnassigned
				all = append(all, l)
			}
		}
		// Reconstruction errors are re-raised by the classification below
		// unless they are contract violations.
		if errors.Is(err, diag.ErrContract) {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	if len(all) == 0 {
		f := diag.Fail(diag.DegenerateLoop, "region has no closed contour (%d open paths); close the drawing or raise the tolerance", open)
		res.Diagnostics = append(res.Diagnostics, f)
		return nil, diag.NewError(f)
	}

	cls, err := contour.Classify(all, p.Tolerance)
	if cls != nil {
		res.Diagnostics = append(res.Diagnostics, cls.Diagnostics...)
	}
	if err != nil {
		return nil, err
	}
	return cls.Loops, nil
}
