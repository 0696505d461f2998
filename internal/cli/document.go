package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bespoke/internal/config"
	"bespoke/internal/deps"
	"bespoke/internal/pipeline"
)

// NewDocCommand returns the bespoke-doc root command.
func NewDocCommand() *cobra.Command {
	ctx := newCommandContext()
	root := newRoot(ctx, "bespoke-doc", "Replace annotated blocks in a document with rendered source images", deps.ToolDoc)
	root.Args = cobra.NoArgs

	defaults := config.Default()
	var (
		run             runFlags
		opts            pipeline.DocumentOptions
		noPop           bool
		sourcePrefix    string
		queryLanguage   string
		fence           string
		imagesDirectory string
	)
	flags := root.Flags()
	flags.StringVar(&opts.Input, "input", "", "Input document (omit for a contact sheet of every source)")
	flags.StringVar(&opts.Output, "output", "", "Output file (omit to write to stdout)")
	flags.BoolVar(&opts.DryRun, "nop", false, "Output without any replacements")
	flags.BoolVar(&opts.RemoveUnmatched, "remove-unmatched", false, "Remove blocks whose query matched no source")
	flags.BoolVar(&opts.NoRender, "no-render", false, "Update the document without rendering images (implied by --snapshot)")
	flags.BoolVar(&noPop, "no-pop", false, "Keep matched sources available to later blocks")
	flags.StringVar(&sourcePrefix, "source-prefix", defaults.Doc.ImagePrefix, "Prefix used for images")
	flags.StringVar(&queryLanguage, "query-lang", defaults.Doc.QueryLanguage, "Block query language: expr, cue or starlark")
	flags.StringVar(&fence, "fence", defaults.Doc.Fence, "Info string that marks annotated blocks")
	flags.StringVar(&imagesDirectory, "images-dir", defaults.Doc.ImagesDir, "Directory rendered images are written to")
	run.register(root)

	ctx.bind("source-prefix", func(cfg *config.Config) { cfg.Doc.ImagePrefix = sourcePrefix })
	ctx.bind("query-lang", func(cfg *config.Config) { cfg.Doc.QueryLanguage = queryLanguage })
	ctx.bind("fence", func(cfg *config.Config) { cfg.Doc.Fence = fence })
	ctx.bind("images-dir", func(cfg *config.Config) { cfg.Doc.ImagesDir = imagesDirectory })

	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return err
		}
		logger, err := ctx.logger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		runOpts := opts
		runOpts.AllowReuse = noPop
		runOpts.ReportPath = run.report
		runOpts.Strict = run.strict
		_, err = pipeline.Document(cmd.Context(), cfg, pipeline.Env{
			Logger: logger,
			Stdout: cmd.OutOrStdout(),
		}, runOpts)
		return err
	}

	root.AddCommand(newSnapshotCommand(ctx))
	return root
}
