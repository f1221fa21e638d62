package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/bootstrap"
)

// ProjectOptions holds flags for the project command.
type ProjectOptions struct {
	*RootOptions
	Stores []string
}

// NewProjectCommand creates the project command.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Re-project the store of record into derived stores",
		Long: `Read the committed dataset back from the store of record and project it again
into the named derived stores, or into every enabled store. Projection is
idempotent, so this repairs stores a previous run left inconsistent.

Example:
  unisync project
  unisync project --store graph,search`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := opts.load()
			if err != nil {
				return err
			}

			var run *services.Run
			err = bootstrap.WithStores(cmd.Context(), cfg, lgr, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				var err error
				run, err = deps.SyncService.Project(ctx, opts.Stores...)
				return err
			})
			return finish(cmd.OutOrStdout(), run, err)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Stores, "store", nil, "derived stores to project (graph, document, cache, search)")

	return cmd
}
