package render

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bespoke/internal/logging"
	"bespoke/internal/services"
)

// Outcome is the result of rendering one descriptor.
type Outcome struct {
	Descriptor Descriptor
	Err        error
	Elapsed    time.Duration
}

// Renderer dispatches descriptors to the external renderer through a bounded
// worker pool.
type Renderer struct {
	exec    services.Executor
	tools   Tools
	workers int
	logger  *slog.Logger
}

// NewRenderer constructs a renderer. workers below 1 is treated as 1.
func NewRenderer(exec services.Executor, tools Tools, workers int, logger *slog.Logger) *Renderer {
	if exec == nil {
		exec = services.CommandExecutor{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Renderer{
		exec:    exec,
		tools:   tools,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "render"),
	}
}

// Render runs every descriptor and blocks until all have finished. Failures
// are recorded per descriptor and never stop the other calls. Outcomes are
// returned in descriptor order.
func (r *Renderer) Render(ctx context.Context, descriptors []Descriptor) []Outcome {
	outcomes := make([]Outcome, len(descriptors))
	if len(descriptors) == 0 {
		return outcomes
	}

	ctx = services.WithStage(ctx, "render")
	sampler := logging.NewProgressSampler(25)
	done := make(chan struct{}, len(descriptors))
	r.logger.Info("rendering artifacts",
		logging.Int("count", len(descriptors)),
		logging.Int("workers", r.workers),
	)

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, d := range descriptors {
		g.Go(func() error {
			started := time.Now()
			err := r.renderOne(ctx, d)
			outcomes[i] = Outcome{Descriptor: d, Err: err, Elapsed: time.Since(started)}
			done <- struct{}{}
			return nil
		})
	}

	finished := 0
	go func() {
		_ = g.Wait()
		close(done)
	}()
	for range done {
		finished++
		if sampler.ShouldLog(finished, len(descriptors)) {
			r.logger.Info("render progress",
				logging.Int("done", finished),
				logging.Int("total", len(descriptors)),
			)
		}
	}
	return outcomes
}

func (r *Renderer) renderOne(ctx context.Context, d Descriptor) error {
	ctx = services.WithSource(ctx, d.Source)
	logger := logging.WithContext(ctx, r.logger).With(logging.Int(logging.FieldIndex, d.Index))
	for _, cmd := range r.tools.Commands(d) {
		logger.Debug("running command", logging.String("command", cmd.String()))
		err := r.exec.Run(ctx, cmd, func(line string) {
			logger.Debug("tool output", logging.String("tool", cmd.Binary), logging.String("line", line))
		})
		if err != nil {
			logger.Warn("render step failed; continuing",
				logging.String("tool", cmd.Binary),
				logging.String("filename", d.Filename),
				logging.Error(err),
			)
			return err
		}
	}
	return nil
}
