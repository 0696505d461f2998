package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bespoke/internal/config"
	"bespoke/internal/deps"
	"bespoke/internal/logging"
	"bespoke/internal/pipeline"
)

// NewAnimateCommand returns the bespoke-animate root command.
func NewAnimateCommand() *cobra.Command {
	ctx := newCommandContext()
	root := newRoot(ctx, "bespoke-animate <filename>", "Render a slice of sources into an animated GIF", deps.ToolAnimate)
	root.Args = cobra.ExactArgs(1)

	defaults := config.Default()
	var (
		run          runFlags
		frameStart   int
		frameEnd     int
		delay        int
		resize       string
		framesPrefix string
	)
	flags := root.Flags()
	flags.IntVar(&frameStart, "animate-frame-start", defaults.Animate.FrameStart, "First source in the frame slice")
	flags.IntVar(&frameEnd, "animate-frame-end", 0, "End of the frame slice (exclusive, negative counts from the end). Unset runs through the last source; -1 drops it")
	flags.IntVar(&delay, "animate-delay", defaults.Animate.Delay, "Animation delay (100 = 1 second)")
	flags.StringVar(&resize, "animate-resize", "", "gifsicle resize spec")
	flags.StringVar(&framesPrefix, "animate-frames-prefix", defaults.Animate.FramesPrefix, "Prefix for temporary frames")
	run.register(root)

	ctx.bind("animate-frame-start", func(cfg *config.Config) { cfg.Animate.FrameStart = frameStart })
	ctx.bind("animate-frame-end", func(cfg *config.Config) {
		end := frameEnd
		cfg.Animate.FrameEnd = &end
	})
	ctx.bind("animate-delay", func(cfg *config.Config) { cfg.Animate.Delay = delay })
	ctx.bind("animate-resize", func(cfg *config.Config) { cfg.Animate.Resize = resize })
	ctx.bind("animate-frames-prefix", func(cfg *config.Config) { cfg.Animate.FramesPrefix = framesPrefix })

	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return err
		}
		logger, err := ctx.logger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		rep, err := pipeline.Animate(cmd.Context(), cfg, pipeline.Env{
			Logger: logger,
			Stdout: cmd.OutOrStdout(),
		}, pipeline.AnimateOptions{
			Output:     args[0],
			ReportPath: run.report,
			Strict:     run.strict,
		})
		if rep != nil && err == nil {
			logger.Info("animation complete",
				logging.String("output", rep.Output),
				logging.Int("frames", len(rep.Sources)),
				logging.Int("render_failures", rep.Failures),
			)
		}
		return err
	}
	return root
}
