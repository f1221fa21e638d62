package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yigit/unisync/internal/bootstrap"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Empty every store",
		Long: `Drop the derived views and recreate the relational schema empty. The run
report archive is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := rootOpts.load()
			if err != nil {
				return err
			}

			err = bootstrap.WithStores(cmd.Context(), cfg, lgr, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				return deps.Stores.Reset(ctx)
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "reset failed", err)
			}
			lgr.Info().Msg("Every store reset")
			return nil
		},
	}
}
