package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/yigit/unisync/internal/bootstrap"
	"github.com/yigit/unisync/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve archived run reports and metrics over HTTP",
		Long: `Start the read-only status API: GET /health, GET /runs, GET /runs/latest,
GET /runs/:id and GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := rootOpts.load()
			if err != nil {
				return err
			}

			archive, err := bootstrap.SetupArchive(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open report archive", err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			return server.NewServer(cfg, archive, reg, lgr).Run(cmd.Context())
		},
	}
}
