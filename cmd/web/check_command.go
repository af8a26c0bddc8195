package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ogmp3/internal/deps"
	"ogmp3/internal/extractor"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that yt-dlp and ffmpeg are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg.Tool.Binary))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, dependencyTable(statuses))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing dependencies: %s", strings.Join(names, ", "))
			}

			svc := extractor.NewService(slog.Default(), extractor.Options{Binary: cfg.Tool.Binary})
			version, err := svc.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "yt-dlp version %s\n", version)
			return nil
		},
	}
}
