package pipeline

import (
	"context"
	"fmt"

	"bespoke/internal/assemble"
	"bespoke/internal/blocks"
	"bespoke/internal/config"
	"bespoke/internal/logging"
	"bespoke/internal/render"
	"bespoke/internal/report"
	"bespoke/internal/services"
	"bespoke/internal/textutil"
)

// AnimateTool is the tool name recorded in reports.
const AnimateTool = "bespoke-animate"

// AnimateOptions are the per-run inputs of the animation tool.
type AnimateOptions struct {
	// Output is the animation filename; ".gif" is appended when missing.
	Output     string
	ReportPath string
	Strict     bool
}

// SliceBounds resolves a [start:end] slice over n items the way Python does:
// negative bounds count from the end and out-of-range bounds clamp. A nil end
// runs through the last item.
func SliceBounds(n, start int, end *int) (int, int) {
	clamp := func(v int) int {
		if v < 0 {
			v += n
			if v < 0 {
				return 0
			}
		}
		if v > n {
			return n
		}
		return v
	}
	lo := clamp(start)
	hi := n
	if end != nil {
		hi = clamp(*end)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// FrameName returns the still filename for frame n.
func FrameName(prefix string, n int) string {
	return fmt.Sprintf("%s_%d.jpg", prefix, n)
}

// Animate renders a slice of the source list into frames and assembles them
// into one animated GIF.
func Animate(ctx context.Context, cfg *config.Config, env Env, opts AnimateOptions) (*report.Report, error) {
	env, err := env.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, rep := newRun(ctx, AnimateTool)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "animate"))

	output := assemble.OutputPath(opts.Output, env.WorkDir)
	rep.Output = output

	store, closeStore, err := openStore(ctx, cfg, env)
	if err != nil {
		return rep, err
	}
	defer closeStore()

	keys, err := store.List(services.WithStage(ctx, "sources"))
	if err != nil {
		return rep, err
	}
	lo, hi := SliceBounds(len(keys), cfg.Animate.FrameStart, cfg.Animate.FrameEnd)
	frames := keys[lo:hi]
	logger.Info("sources listed",
		logging.Int("total", len(keys)),
		logging.Int("frames", len(frames)),
		logging.Int("start", lo),
		logging.Int("end", hi),
	)
	if len(frames) == 0 {
		return rep, services.Wrap(services.ErrNotFound, "animate", "select frames", "no sources in the requested frame range", nil)
	}

	if err := cfg.EnsureFramesDir(); err != nil {
		return rep, services.Wrap(services.ErrConfiguration, "animate", "frames directory", "", err)
	}
	prefix := textutil.SanitizePrefix(cfg.Animate.FramesPrefix)

	descriptors := make([]render.Descriptor, len(frames))
	gifs := make([]string, len(frames))
	consumed := make([]blocks.Consumed, len(frames))
	for i, key := range frames {
		d := render.Descriptor{
			Index:    i,
			Source:   key,
			Field:    cfg.Store.SourceField,
			Filename: FrameName(prefix, i),
			Dir:      cfg.Animate.FramesDir,
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
			Convert:  true,
		}
		descriptors[i] = d
		gifs[i] = d.GIFName()
		consumed[i] = blocks.Consumed{Index: i, Source: key, Filename: d.Filename}
	}
	rep.Sources = reportSources(consumed)

	outcomes, err := renderLocked(ctx, cfg, env, cfg.Animate.FramesDir, descriptors)
	rep.Renders, rep.Failures = reportRenders(outcomes)
	if err != nil {
		return rep, err
	}

	animator := assemble.NewAnimator(env.Executor, cfg.Tools.Gifsicle, env.Logger)
	if err := animator.Animate(ctx, assemble.Animation{
		Dir:    cfg.Animate.FramesDir,
		Frames: gifs,
		Delay:  cfg.Animate.Delay,
		Output: output,
		Resize: cfg.Animate.Resize,
	}); err != nil {
		if reportErr := finish(rep, opts.ReportPath, false, logger); reportErr != nil {
			logger.Warn("report not written", logging.Error(reportErr))
		}
		return rep, err
	}

	return rep, finish(rep, opts.ReportPath, opts.Strict, logger)
}
