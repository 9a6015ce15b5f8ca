package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/pkgprobe/internal/appinstaller"
	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/ui"
)

// NewResolveCmd creates the resolve command
func NewResolveCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve an .appinstaller URL to the installer it references",
		Long:  `Downloads an App Installer indirection document and prints the URL of the MainBundle or MainPackage it points at. Other URLs pass through unchanged.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second}

			resolved, err := appinstaller.Resolve(context.Background(), client, args[0], *log)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			if resolved == nil {
				ui.PrintInfo("not an App Installer document, URL passes through unchanged")
				fmt.Fprintln(cmd.OutOrStdout(), args[0])
				return nil
			}

			ui.PrintSuccess("resolved installer reference")
			fmt.Fprintln(cmd.OutOrStdout(), resolved.String())
			return nil
		},
	}

	return cmd
}
