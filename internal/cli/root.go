package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yigit/unisync/internal/bootstrap"
	"github.com/yigit/unisync/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command of the unisync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "unisync",
		Short: "Keep the university dataset consistent across its stores",
		Long: `unisync generates a synthetic university dataset, commits it to the relational
store of record and projects it into the graph, document, cache and search stores.

Every run is archived as a report naming the stores it left inconsistent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "configs/config.yaml", "path to the YAML configuration")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(o.ConfigPath)
	if err != nil {
		return nil, lgr, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, lgr, nil
}
