package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/pkgprobe/internal/cache"
	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/ui"
)

// NewCacheCmd creates the cache command group
func NewCacheCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis report cache",
	}

	cmd.AddCommand(newCacheListCmd(cfg, log))
	cmd.AddCommand(newCachePurgeCmd(cfg, log))

	return cmd
}

func newCacheListCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached analysis reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			store, err := cache.Open(ctx, cfg.Paths.CacheFile)
			if err != nil {
				return fmt.Errorf("open report cache: %w", err)
			}
			defer store.Close()

			entries, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("list reports: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				ui.PrintInfo("report cache is empty")
				return nil
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"File", "Package", "Records", "Analyzed"}),
				tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
				tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
			)
			for _, entry := range entries {
				table.Append(
					entry.FileName,
					orDash(entry.PackageName),
					fmt.Sprintf("%d", len(entry.Records)),
					entry.AnalyzedAt.Format("2006-01-02 15:04"),
				)
			}
			table.Render()

			log.Debug().Int("entries", len(entries)).Msg("listed report cache")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func newCachePurgeCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop every cached analysis report",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if !yes {
				confirmed, err := ui.ConfirmDangerousAction("purge the report cache", cfg.Paths.CacheFile)
				if err != nil {
					return err
				}
				if !confirmed {
					ui.PrintInfo("purge cancelled")
					return nil
				}
			}

			store, err := cache.Open(ctx, cfg.Paths.CacheFile)
			if err != nil {
				return fmt.Errorf("open report cache: %w", err)
			}
			defer store.Close()

			dropped, err := store.Purge(ctx)
			if err != nil {
				return fmt.Errorf("purge reports: %w", err)
			}

			ui.PrintSuccess("dropped %d cached reports", dropped)
			log.Info().Int64("dropped", dropped).Msg("report cache purged")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
