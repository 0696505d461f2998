package assemble

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"bespoke/internal/logging"
	"bespoke/internal/services"
)

// OutputPath appends ".gif" when missing and resolves name against cwd.
func OutputPath(name, cwd string) string {
	if !strings.HasSuffix(name, ".gif") {
		name += ".gif"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cwd, name)
}

// Animator combines converted frames into one animated GIF with gifsicle.
type Animator struct {
	exec     services.Executor
	gifsicle string
	logger   *slog.Logger
}

// NewAnimator constructs an animator invoking binary through exec.
func NewAnimator(exec services.Executor, binary string, logger *slog.Logger) *Animator {
	if exec == nil {
		exec = services.CommandExecutor{}
	}
	return &Animator{
		exec:     exec,
		gifsicle: binary,
		logger:   logging.NewComponentLogger(logger, "assemble"),
	}
}

// Animation describes one assembly.
type Animation struct {
	// Dir holds the frames and is the working directory for assembly.
	Dir string
	// Frames are frame filenames relative to Dir, in playback order.
	Frames []string
	// Delay is the inter-frame delay in hundredths of a second.
	Delay  int
	Output string
	// Resize is an optional gifsicle resize spec such as "640x_".
	Resize string
}

// Commands returns the gifsicle invocations for a.
func (an *Animator) Commands(a Animation) []services.Command {
	args := make([]string, 0, len(a.Frames)+3)
	args = append(args, "-d"+strconv.Itoa(a.Delay))
	args = append(args, a.Frames...)
	args = append(args, "-o", a.Output)
	cmds := []services.Command{{Binary: an.gifsicle, Args: args, Dir: a.Dir}}
	if strings.TrimSpace(a.Resize) != "" {
		cmds = append(cmds, services.Command{
			Binary: an.gifsicle,
			Args:   []string{"--batch", "--resize", a.Resize, a.Output},
		})
	}
	return cmds
}

// Animate runs the assembly. Failures are returned; this is the last step of
// an animation run and nothing downstream can recover from it.
func (an *Animator) Animate(ctx context.Context, a Animation) error {
	ctx = services.WithStage(ctx, "assemble")
	logger := logging.WithContext(ctx, an.logger)
	if len(a.Frames) == 0 {
		return services.Wrap(services.ErrValidation, "assemble", "animate", "no frames to assemble", nil)
	}
	for _, cmd := range an.Commands(a) {
		logger.Debug("running command", logging.String("command", cmd.String()))
		if err := an.exec.Run(ctx, cmd, func(line string) {
			logger.Debug("tool output", logging.String("tool", cmd.Binary), logging.String("line", line))
		}); err != nil {
			return err
		}
	}
	logger.Info("animation written",
		logging.String("output", a.Output),
		logging.Int("frames", len(a.Frames)),
	)
	return nil
}
