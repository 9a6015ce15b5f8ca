package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/pkgprobe/internal/analysis"
	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/fsops"
	"github.com/quantmind-br/pkgprobe/internal/ui"
)

// NewIconsCmd creates the icons command
func NewIconsCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		outDir string
		pick   bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "icons <installer>",
		Short: "Extract installer icons as .ico files",
		Long:  `Rebuilds the icon groups of an installer executable into standalone .ico files, including icons carried by nested installers.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			path := args[0]

			data, err := fsops.ReadFile(fs, path)
			if err != nil {
				return err
			}

			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			report, err := analysis.Analyze(data, filepath.Base(path), analysis.Options{Log: *log})
			if err != nil {
				return err
			}

			assets := report.Icons.Assets()
			if len(assets) == 0 {
				ui.PrintInfo("no icons found in %s", path)
				return nil
			}

			names := make([]string, len(assets))
			labels := make([]string, len(assets))
			for i, asset := range assets {
				names[i] = fmt.Sprintf("%s-%d.%s", stem, i+1, asset.FileType)
				labels[i] = fmt.Sprintf("%s (%d bytes)", names[i], len(asset.Data))
			}

			if pick {
				chosen, err := ui.MultiSelectPrompt("Icons to export", labels)
				if err != nil {
					return err
				}
				idx := pickIndexes(labels, chosen)
				if len(idx) == 0 {
					ui.PrintInfo("no icons selected")
					return nil
				}
				keep := 0
				for _, i := range idx {
					assets[keep] = assets[i]
					names[keep] = names[i]
					keep++
				}
				assets = assets[:keep]
				names = names[:keep]
			}

			dir := outDir
			if dir == "" {
				dir = filepath.Join(cfg.Paths.IconsDir, stem)
			}

			if !yes {
				if n := countExisting(fs, dir, names); n > 0 {
					overwrite, err := ui.ConfirmPrompt(fmt.Sprintf("Overwrite %d existing files in %s", n, dir))
					if err != nil {
						return err
					}
					if !overwrite {
						ui.PrintInfo("export cancelled")
						return nil
					}
				}
			}

			if err := fsops.EnsureDir(fs, dir, 0755); err != nil {
				return err
			}

			bar := ui.NewProgressBar(int64(len(assets)), "exporting icons")
			for i, asset := range assets {
				if err := fsops.WriteFile(fs, filepath.Join(dir, names[i]), asset.Data, 0644); err != nil {
					return err
				}
				bar.Add(1)
			}
			bar.Finish()

			ui.PrintSuccess("exported %d icons to %s", len(assets), dir)
			log.Info().Int("icons", len(assets)).Str("dir", dir).Msg("icons exported")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: icons dir from config)")
	cmd.Flags().BoolVar(&pick, "pick", false, "interactively select which icons to export")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite existing files without asking")

	return cmd
}

// pickIndexes maps the chosen labels back to asset positions, in asset order
func pickIndexes(labels, chosen []string) []int {
	byLabel := make(map[string]int, len(labels))
	for i, label := range labels {
		byLabel[label] = i
	}

	picked := make([]int, 0, len(chosen))
	for _, label := range chosen {
		if i, ok := byLabel[label]; ok {
			picked = append(picked, i)
		}
	}
	sort.Ints(picked)
	return picked
}

// countExisting reports how many of the planned output files already exist
func countExisting(fs afero.Fs, dir string, names []string) int {
	existing := 0
	for _, name := range names {
		if fsops.Exists(fs, filepath.Join(dir, name)) {
			existing++
		}
	}
	return existing
}
