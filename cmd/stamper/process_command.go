package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stamper/internal/drive"
	"stamper/internal/processor"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "process <folder-id-or-url>",
		Short: "Process a single folder immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			folderID := drive.ExtractID(args[0])
			if folderID == "" {
				return fmt.Errorf("unrecognized folder reference %q", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			folderName, err := pipe.store.FolderName(signalCtx, folderID)
			if err != nil || folderName == "" {
				folderName = folderID
			}

			out := cmd.OutOrStdout()
			if !force {
				exists, err := pipe.store.HasChild(signalCtx, folderID, cfg.Drive.MarkerName)
				if err != nil {
					return fmt.Errorf("check for %s: %w", cfg.Drive.MarkerName, err)
				}
				if exists {
					fmt.Fprintf(out, "Folder %q already contains %s; use --force to reprocess\n",
						folderName, cfg.Drive.MarkerName)
					return nil
				}
			}

			if err := pipe.proc.Process(signalCtx, folderID, folderName); err != nil {
				if errors.Is(err, processor.ErrMissingInput) {
					return fmt.Errorf("folder %q is not ready: %w", folderName, err)
				}
				return fmt.Errorf("process folder %q: %w", folderName, err)
			}
			fmt.Fprintf(out, "Processed %q: uploaded %s and archived a local copy\n",
				folderName, cfg.Drive.MarkerName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Process even if the folder already contains the result file")
	return cmd
}
