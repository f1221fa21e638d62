package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/unisync/internal/cli"
	"github.com/yigit/unisync/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
