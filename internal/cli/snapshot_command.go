package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bespoke/internal/config"
	"bespoke/internal/logging"
	"bespoke/internal/services"
	"bespoke/internal/sources"
)

// newSnapshotCommand copies the live source list into an SQLite snapshot
// that later runs can read with --snapshot.
func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <path>",
		Short: "Copy the live source list and fields into an SQLite snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "snapshot", "resolve path", args[0], err)
			}

			listKey := sources.ListKey(cfg.Store.SourcesTemplate, cfg.Store.Host, cfg.Store.Port)
			live := sources.NewRedisStore(sources.RedisOptions{
				Addr:     cfg.StoreAddr(),
				Password: cfg.Store.Password,
				DB:       cfg.Store.DB,
				ListKey:  listKey,
			})
			defer live.Close()

			count, err := sources.WriteSnapshot(cmd.Context(), target, live.ListKey(), live)
			if err != nil {
				return err
			}
			logger.Info("snapshot written",
				logging.String("path", target),
				logging.String("list_key", listKey),
				logging.Int("sources", count),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sources to %s\n", count, target)
			return nil
		},
	}
}
