package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidshelf/internal/logging"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the metadata cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached video metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(logging.NewNop())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			now := time.Now()
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.VideoID,
					entry.Metadata.Channel,
					entry.Metadata.Title,
					entry.FetchedAt.Local().Format(stampLayout),
					yesNo(entry.Age(now) <= store.TTL()),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Video ID", "Channel", "Title", "Fetched", "Fresh"}, rows, nil))
			fmt.Fprintf(out, "%d entries\n", len(entries))
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(logging.NewNop())
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired entries\n", removed)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(logging.NewNop())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Metadata cache cleared")
			return nil
		},
	}
}
