package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"vidshelf/internal/report"
	"vidshelf/internal/services/youtube"
	"vidshelf/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Organize new downloads and apply retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			cache, err := ctx.openCache(logger)
			if err != nil {
				return fmt.Errorf("open metadata cache: %w", err)
			}
			defer cache.Close()

			client, err := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.BaseURL,
				youtube.WithTimeout(cfg.YouTubeRequestTimeout()))
			if err != nil {
				return err
			}

			coordinator := workflow.New(cfg, cache, client, logger)
			summary, err := coordinator.Run(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func printSummary(out io.Writer, summary report.Summary) {
	fmt.Fprintf(out, "Run %s\n", summary.RunID)
	destinations := summary.Destinations()
	if len(destinations) == 0 {
		fmt.Fprintln(out, "Nothing organized or deleted")
	} else {
		rows := make([][]string, 0, len(destinations))
		for _, dest := range destinations {
			rows = append(rows, []string{
				dest,
				strconv.Itoa(len(summary.Organized[dest])),
				strconv.Itoa(len(summary.Deleted[dest])),
			})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Destination", "Organized", "Deleted"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight}))
	}
	if n := len(summary.Failed); n > 0 {
		fmt.Fprintf(out, "Failed: %d file(s) left in place\n", n)
	}
	if n := len(summary.Unresolved); n > 0 {
		fmt.Fprintf(out, "Unresolved: %d video id(s) without metadata\n", n)
	}
}
