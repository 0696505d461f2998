package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bespoke/internal/preflight"
	"bespoke/internal/sources"
)

func newDepsCommand(ctx *commandContext, tool string) *cobra.Command {
	var skipStore bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external programs, directories and store connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var pinger sources.Pinger
			var openResult *preflight.Result
			if !skipStore {
				store, err := sources.Open(cfg)
				if err != nil {
					openResult = &preflight.Result{Name: "Source store", Detail: err.Error()}
				} else {
					defer store.Close()
					if p, ok := store.(sources.Pinger); ok {
						pinger = p
					}
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, tool, pinger)
			if openResult != nil {
				results = append(results, *openResult)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, statusLabel(r.Passed, colorize), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipStore, "skip-store", false, "Do not contact the source store")
	return cmd
}
