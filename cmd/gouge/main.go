// Command gouge evaluates a pocketing job file and writes the resulting
// tool moves and diagnostics as JSON, plus an optional DXF overlay.
//
// Usage:
//
//	gouge [flags] job.gouge
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chazu/gouge/pkg/engine"
	"github.com/chazu/gouge/pkg/overlay"
	"github.com/chazu/gouge/pkg/pipeline"
)

// Exit codes.
const (
	exitOK         = 0
	exitEvalFailed = 1
	exitRegionFail = 2
	exitUsage      = 64
)

type options struct {
	jobFile     string
	out         string
	dxf         string
	metricsFile string
	workers     int
	evalTimeout time.Duration
	log         pipeline.LogConfig
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("gouge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.out, "o", "-", "JSON report path, - for stdout")
	fs.StringVar(&o.dxf, "dxf", "", "write a DXF overlay to this path")
	fs.StringVar(&o.metricsFile, "metrics", "", "write Prometheus metrics in text format to this path")
	fs.IntVar(&o.workers, "workers", 0, "regions processed at once (default GOMAXPROCS)")
	fs.DurationVar(&o.evalTimeout, "eval-timeout", engine.EvalTimeout, "limit for evaluating the job file")
	fs.StringVar(&o.log.Level, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.log.Format, "log-format", "console", "log format: console or json")
	fs.BoolVar(&o.log.Development, "dev", false, "development logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: gouge [flags] job.gouge\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, fmt.Errorf("expected one job file, got %d arguments", fs.NArg())
	}
	o.jobFile = fs.Arg(0)
	o.log.OutputPath = "stderr"
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}

	logger, err := pipeline.NewLogger(o.log)
	if err != nil {
		fmt.Fprintf(stderr, "gouge: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	source, err := os.ReadFile(o.jobFile)
	if err != nil {
		logger.Error("read job file", zap.Error(err))
		return exitEvalFailed
	}

	reg := prometheus.NewRegistry()
	opts := []pipeline.Option{pipeline.WithMetrics(pipeline.NewMetrics(reg))}
	if o.workers > 0 {
		opts = append(opts, pipeline.WithWorkers(o.workers))
	}
	app := NewApp(logger.With(zap.String("file", o.jobFile)), opts...)
	app.engine = engine.NewEngine(engine.WithTimeout(o.evalTimeout))
	res := app.Evaluate(ctx, string(source))

	for _, w := range res.Warnings {
		logger.Warn(w.Message)
	}
	if res.Job == nil {
		for _, e := range res.Errors {
			logger.Error(e.Message, zap.Int("line", e.Line))
		}
		return exitEvalFailed
	}

	if err := writeReport(o.out, stdout, res); err != nil {
		logger.Error("write report", zap.Error(err))
		return exitEvalFailed
	}
	if o.dxf != "" {
		st, err := overlay.WriteDXF(o.dxf, res.Results)
		if err != nil {
			logger.Error("write overlay", zap.Error(err))
			return exitEvalFailed
		}
		logger.Info("overlay written", zap.String("path", o.dxf), zap.Stringer("stats", st))
	}
	if o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, reg); err != nil {
			logger.Error("write metrics", zap.Error(err))
			return exitEvalFailed
		}
	}

	if n := res.Failed(); n > 0 {
		for _, e := range res.Errors {
			logger.Error(e.Message)
		}
		return exitRegionFail
	}
	return exitOK
}

func writeReport(path string, stdout io.Writer, res EvalResult) error {
	if path == "-" {
		return overlay.WriteJSON(stdout, res.Job, res.Results)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := overlay.WriteJSON(f, res.Job, res.Results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
