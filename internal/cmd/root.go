// Package cmd wires the analysis pipeline into the pkgprobe CLI.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/ui"
)

// NewRootCmd creates the root command
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pkgprobe",
		Short:        "Windows installer analysis toolkit",
		Long:         `Classifies Windows installer packages (MSI, MSIX, Burn, Inno, NSIS, InstallShield and friends) and extracts the metadata a packaging pipeline needs: product codes, silent switches, return codes, and icons.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ui.InitColors()
		},
	}

	// Add subcommands
	cmd.AddCommand(NewAnalyzeCmd(cfg, log))
	cmd.AddCommand(NewIconsCmd(cfg, log))
	cmd.AddCommand(NewCacheCmd(cfg, log))
	cmd.AddCommand(NewResolveCmd(cfg, log))
	cmd.AddCommand(NewCompletionCmd(cfg, log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}
