package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"bespoke/internal/config"
	"bespoke/internal/logging"
	"bespoke/internal/render"
	"bespoke/internal/report"
	"bespoke/internal/services"
	"bespoke/internal/sources"
)

// Env carries the collaborators a run needs. Zero fields fall back to the
// real implementations: the store named by config, os/exec, os.Stdout and
// the process working directory.
type Env struct {
	Store    sources.Store
	Executor services.Executor
	Logger   *slog.Logger
	Stdout   io.Writer
	WorkDir  string
}

func (e Env) withDefaults() (Env, error) {
	if e.Executor == nil {
		e.Executor = services.CommandExecutor{}
	}
	if e.Logger == nil {
		e.Logger = logging.NewNop()
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return e, services.Wrap(services.ErrConfiguration, "pipeline", "resolve working directory", "", err)
		}
		e.WorkDir = wd
	}
	return e, nil
}

// openStore returns env's store, or opens the configured one. The returned
// closer is a no-op for injected stores.
func openStore(ctx context.Context, cfg *config.Config, env Env) (sources.Store, func(), error) {
	if env.Store != nil {
		return env.Store, func() {}, nil
	}
	store, err := sources.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if snap, ok := store.(*sources.SnapshotStore); ok {
		listKey, err := snap.ListKey(ctx)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		env.Logger.Info("reading sources from snapshot",
			logging.String("path", snap.Path()),
			logging.String("list_key", listKey),
		)
	}
	return store, func() { _ = store.Close() }, nil
}

// offline reports whether sources come from a snapshot, in which case the
// renderer has no live store to read artifacts from.
func offline(cfg *config.Config) bool {
	return cfg.Store.Backend == config.BackendSnapshot
}

// newRun stamps ctx with a fresh run id and returns a report seeded with it.
func newRun(ctx context.Context, tool string) (context.Context, *report.Report) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	return ctx, &report.Report{RunID: runID, Tool: tool, StartedAt: time.Now().UTC()}
}

func renderTools(cfg *config.Config) render.Tools {
	return render.Tools{Keli: cfg.Tools.Keli, Convert: cfg.Tools.Convert}
}

// renderLocked renders descriptors while holding the directory lock on dir.
// Tool failures stay in the outcomes; the first error that must abort the
// run, such as cancellation, is also returned.
func renderLocked(ctx context.Context, cfg *config.Config, env Env, dir string, descriptors []render.Descriptor) ([]render.Outcome, error) {
	lock, err := render.LockDir(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			env.Logger.Warn("failed to release directory lock", logging.String("lock", lock.Path()), logging.Error(err))
		}
	}()
	renderer := render.NewRenderer(env.Executor, renderTools(cfg), cfg.Render.MaxWorkers, env.Logger)
	outcomes := renderer.Render(ctx, descriptors)
	for _, o := range outcomes {
		if services.Fatal(o.Err) {
			return outcomes, o.Err
		}
	}
	return outcomes, nil
}

// finish completes rep, writes it when reportPath is set, and applies the
// strict policy.
func finish(rep *report.Report, reportPath string, strict bool, logger *slog.Logger) error {
	rep.FinishedAt = time.Now().UTC()
	if reportPath != "" {
		if err := report.Write(reportPath, rep); err != nil {
			return services.Wrap(services.ErrValidation, "report", "write", reportPath, err)
		}
		logger.Info("run report written", logging.String("path", reportPath))
	}
	if strict && rep.Failures > 0 {
		return services.Wrap(
			services.ErrExternalTool,
			"render",
			"strict",
			fmt.Sprintf("%d of %d renders failed", rep.Failures, len(rep.Renders)),
			nil,
		)
	}
	return nil
}
