package cli

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bespoke/internal/config"
	"bespoke/internal/logging"
)

// override applies one command-line flag onto the loaded configuration.
type override struct {
	flag  string
	apply func(*config.Config)
}

type commandContext struct {
	root       *cobra.Command
	configFlag string
	verbose    bool
	overrides  []override

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// bind registers fn to run against the config when flag was set explicitly.
func (c *commandContext) bind(flag string, fn func(*config.Config)) {
	c.overrides = append(c.overrides, override{flag: flag, apply: fn})
}

func (c *commandContext) flagChanged(name string) bool {
	if c.root == nil {
		return false
	}
	return c.root.Flags().Changed(name) || c.root.PersistentFlags().Changed(name)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		applied := false
		for _, o := range c.overrides {
			if c.flagChanged(o.flag) {
				o.apply(cfg)
				applied = true
			}
		}
		if applied {
			if err := cfg.Finalize(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, os.Stderr, c.verbose)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// newRoot builds the shared skeleton of both tools: persistent store,
// config and logging flags plus the config and deps subcommands.
func newRoot(ctx *commandContext, use, short, tool string) *cobra.Command {
	root := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}
	ctx.root = root

	defaults := config.Default()
	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.BoolVar(&ctx.verbose, "verbose", false, "Log intermediate values at debug level")

	var (
		dbHost       string
		dbPort       int
		dbTemplate   string
		sourceField  string
		maxWorkers   int
		snapshotPath string
	)
	flags.StringVar(&dbHost, "db-host", defaults.Store.Host, "Store host")
	flags.IntVar(&dbPort, "db-port", defaults.Store.Port, "Store port")
	flags.StringVar(&dbTemplate, "db-sources-template", defaults.Store.SourcesTemplate, "Key of the source list; {host} and {port} are expanded")
	flags.StringVar(&sourceField, "source-field", defaults.Store.SourceField, "Field containing the image key")
	flags.IntVar(&maxWorkers, "max-workers", defaults.Render.MaxWorkers, "Number of parallel render calls")
	flags.StringVar(&snapshotPath, "snapshot", "", "Read sources from an SQLite snapshot instead of the live store")

	ctx.bind("db-host", func(cfg *config.Config) { cfg.Store.Host = dbHost })
	ctx.bind("db-port", func(cfg *config.Config) { cfg.Store.Port = dbPort })
	ctx.bind("db-sources-template", func(cfg *config.Config) { cfg.Store.SourcesTemplate = dbTemplate })
	ctx.bind("source-field", func(cfg *config.Config) { cfg.Store.SourceField = sourceField })
	ctx.bind("max-workers", func(cfg *config.Config) { cfg.Render.MaxWorkers = maxWorkers })
	ctx.bind("snapshot", func(cfg *config.Config) {
		cfg.Store.Backend = config.BackendSnapshot
		cfg.Store.SnapshotPath = snapshotPath
	})

	root.AddCommand(newConfigCommand(ctx))
	root.AddCommand(newDepsCommand(ctx, tool))
	return root
}

// runFlags are the per-run flags shared by both tools.
type runFlags struct {
	report string
	strict bool
}

func (r *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.report, "report", "", "Write a YAML run report to this file")
	cmd.Flags().BoolVar(&r.strict, "strict", false, "Exit non-zero when any render call failed")
}
