package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ogmp3/internal/storage"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List stored audio files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := storage.NewStore(cfg.Storage.DownloadsDir, slog.Default())
			artifacts, err := store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, "No files stored")
				return nil
			}

			fmt.Fprintln(out, artifactTable(artifacts, time.Now(), cfg.Retention.MaxAge.Std()))
			return nil
		},
	}
}

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored audio file",
		Long:  "Delete every stored audio file. Refuses to run while a server holds the downloads directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := storage.NewStore(cfg.Storage.DownloadsDir, slog.Default())
			if err := store.Lock(); err != nil {
				return err
			}
			defer func() { _ = store.Unlock() }()

			removed := store.Purge()
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file(s)\n", len(removed))
			return nil
		},
	}
}
