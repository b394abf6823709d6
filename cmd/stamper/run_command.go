package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stamper/internal/daemon"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl the submission tree continuously",
		Long: "Run the unattended pipeline: walk the configured root folder in " +
			"repeated passes, render the overlay for every folder that has a " +
			"video and prompt but no published result, and upload the output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := ctx.newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pipe, err := ctx.buildPipeline(signalCtx, logger)
	if err != nil {
		return err
	}
	defer pipe.Close(logger)

	d, err := daemon.New(cfg, pipe.crawler, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	return d.Run(signalCtx)
}
