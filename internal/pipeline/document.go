package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"bespoke/internal/assemble"
	"bespoke/internal/blocks"
	"bespoke/internal/config"
	"bespoke/internal/logging"
	"bespoke/internal/query"
	"bespoke/internal/render"
	"bespoke/internal/report"
	"bespoke/internal/services"
	"bespoke/internal/textutil"
)

// DocumentTool is the tool name recorded in reports.
const DocumentTool = "bespoke-doc"

// DocumentOptions are the per-run inputs of the document tool.
type DocumentOptions struct {
	// Input is the annotated document; empty produces a contact sheet.
	Input string
	// Output is the destination file; empty writes to Env.Stdout.
	Output          string
	DryRun          bool
	RemoveUnmatched bool
	// NoRender updates the text only. Snapshot runs never render.
	NoRender   bool
	AllowReuse bool
	ReportPath string
	Strict     bool
}

// Document rewrites the input document, replacing matched blocks with image
// stanzas, writes it out, and then renders one image per consumed source.
func Document(ctx context.Context, cfg *config.Config, env Env, opts DocumentOptions) (*report.Report, error) {
	env, err := env.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, rep := newRun(ctx, DocumentTool)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(env.Logger, "document"))
	rep.Output = opts.Output

	imagesDir, created, err := cfg.EnsureImagesDir()
	if err != nil {
		return rep, services.Wrap(services.ErrConfiguration, "document", "images directory", "", err)
	}
	if created {
		logger.Debug("images directory created", logging.String("path", imagesDir))
	}
	stanzaDir, err := filepath.Rel(env.WorkDir, imagesDir)
	if err != nil {
		stanzaDir = imagesDir
	}

	var input string
	if opts.Input != "" {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return rep, services.Wrap(services.ErrValidation, "document", "read input", opts.Input, err)
		}
		input = string(data)
	}

	store, closeStore, err := openStore(ctx, cfg, env)
	if err != nil {
		return rep, err
	}
	defer closeStore()

	keys, err := store.List(services.WithStage(ctx, "sources"))
	if err != nil {
		return rep, err
	}
	logger.Info("sources listed", logging.Int("total", len(keys)))

	evaluator, err := query.New(cfg.Doc.QueryLanguage)
	if err != nil {
		return rep, err
	}
	prefix := textutil.SanitizePrefix(cfg.Doc.ImagePrefix)
	matcher := blocks.NewMatcher(store, evaluator, blocks.Options{
		Fence:           cfg.Doc.Fence,
		ImagePrefix:     prefix,
		ImagesDir:       filepath.ToSlash(stanzaDir),
		AllowReuse:      opts.AllowReuse,
		RemoveUnmatched: opts.RemoveUnmatched,
		DryRun:          opts.DryRun,
	}, env.Logger)

	var result blocks.Result
	if opts.Input != "" {
		result, err = matcher.Match(services.WithStage(ctx, "match"), input, keys)
		if err != nil {
			return rep, err
		}
	} else {
		result = matcher.ContactSheet(keys)
	}
	rep.Sources = reportSources(result.Consumed)
	rep.Blocks = reportBlocks(result.Blocks)

	if err := assemble.WriteDocument(opts.Output, result.Text, env.Stdout); err != nil {
		return rep, err
	}

	if opts.NoRender || offline(cfg) {
		logger.Info("rendering skipped; text updated only",
			logging.Int("consumed", len(result.Consumed)),
			logging.Bool("snapshot", offline(cfg)),
		)
		return rep, finish(rep, opts.ReportPath, opts.Strict, logger)
	}

	descriptors := make([]render.Descriptor, len(result.Consumed))
	for i, c := range result.Consumed {
		descriptors[i] = render.Descriptor{
			Index:    c.Index,
			Source:   c.Source,
			Field:    cfg.Store.SourceField,
			Filename: c.Filename,
			Dir:      imagesDir,
			Host:     cfg.Store.Host,
			Port:     cfg.Store.Port,
		}
	}
	outcomes, err := renderLocked(ctx, cfg, env, imagesDir, descriptors)
	rep.Renders, rep.Failures = reportRenders(outcomes)
	if err != nil {
		return rep, err
	}
	logger.Info("document run complete",
		logging.Int("consumed", len(result.Consumed)),
		logging.Int("render_failures", rep.Failures),
	)

	return rep, finish(rep, opts.ReportPath, opts.Strict, logger)
}
