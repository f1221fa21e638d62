package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/bootstrap"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/seed"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Reset bool
	Seed  int64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a dataset, commit it and project it into every store",
		Long: `Generate a synthetic dataset from the generation section of the configuration,
write it to the store of record in dependency order and project the committed
records into the enabled derived stores.

Example:
  unisync run --reset
  unisync run --seed 42 --config ./configs/local.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "empty every store before generating")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "generation seed, overriding the configuration (0 picks a random seed)")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cfg, lgr, err := opts.load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generation.Seed = opts.Seed
	}

	params, err := seed.ParamsFromConfig(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid generation parameters", err)
	}
	gen, err := seed.NewGenerator(params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid generation parameters", err)
	}

	var run *services.Run
	err = bootstrap.WithStores(cmd.Context(), cfg, lgr, func(ctx context.Context, deps *bootstrap.Dependencies) error {
		if opts.Reset {
			lgr.Info().Msg("Resetting every store before the run")
			if err := deps.Stores.Reset(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to reset stores", err)
			}
		}
		var err error
		run, err = deps.SyncService.Run(ctx, gen)
		return err
	})
	return finish(cmd.OutOrStdout(), run, err)
}

// finish prints the run report and turns its state into an exit code.
func finish(w io.Writer, run *services.Run, err error) error {
	if run != nil {
		if perr := printRun(w, run); perr != nil {
			return WrapExitError(ExitCommandError, "failed to print run report", perr)
		}
	}

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return err
	case errors.Is(err, apperrors.ErrValidationFailed):
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	case err != nil && run == nil:
		return WrapExitError(ExitCommandError, "run could not start", err)
	case err != nil:
		return WrapExitError(ExitFailure, "run failed", err)
	}

	switch run.State {
	case services.StateCompleted:
		return nil
	case services.StatePartiallyFailed:
		msg := fmt.Sprintf("stores left inconsistent: %s", strings.Join(run.Inconsistent, ", "))
		if n := droppedDrafts(run); n > 0 {
			msg += fmt.Sprintf("; %d drafts rejected by the store of record, see the relational report", n)
		}
		return NewExitError(ExitPartial, msg)
	default:
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: %s", run.State, run.Error))
	}
}

// droppedDrafts counts drafts the store of record rejected. They were never committed, so
// they do not make the relational store inconsistent on their own.
func droppedDrafts(run *services.Run) int {
	if run.Relational == nil {
		return 0
	}
	return run.Relational.Failures[apperrors.KindWriteRejected]
}

func printRun(w io.Writer, run *services.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
