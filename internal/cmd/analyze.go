package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/pkgprobe/internal/analysis"
	"github.com/quantmind-br/pkgprobe/internal/cache"
	"github.com/quantmind-br/pkgprobe/internal/config"
	"github.com/quantmind-br/pkgprobe/internal/fsops"
	"github.com/quantmind-br/pkgprobe/internal/manifest"
	"github.com/quantmind-br/pkgprobe/internal/probe"
	"github.com/quantmind-br/pkgprobe/internal/ui"
)

// fileReport is one analyzed file in command output
type fileReport struct {
	Path   string `json:"path"`
	Sha256 string `json:"sha256"`
	Cached bool   `json:"cached"`
	cache.Entry
}

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		noCache    bool
		msiArch    string
		scriptFile string
	)

	cmd := &cobra.Command{
		Use:   "analyze <installer>...",
		Short: "Classify installers and extract their metadata",
		Long:  `Classify one or more installer files and print the extracted metadata: installer technology, architecture, product codes, silent switches, and expected return codes.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			fs := afero.NewOsFs()

			var store *cache.Store
			if cfg.Analysis.CacheReports && !noCache {
				opened, err := cache.Open(ctx, cfg.Paths.CacheFile)
				if err != nil {
					ui.PrintWarning("report cache unavailable: %v", err)
					log.Warn().Err(err).Str("path", cfg.Paths.CacheFile).Msg("report cache unavailable")
				} else {
					store = opened
					defer store.Close()
				}
			}

			var script probe.ScriptSource
			if scriptFile != "" {
				data, err := fsops.ReadFile(fs, scriptFile)
				if err != nil {
					return err
				}
				trace, err := parseScriptTrace(data)
				if err != nil {
					return fmt.Errorf("parse script trace: %w", err)
				}
				script = trace
			}

			arch := cfg.Analysis.MsiArchitecture
			if msiArch != "" {
				arch = msiArch
			}
			opts := analysis.Options{
				MsiArchitecture: manifest.Architecture(arch),
				Script:          script,
				Log:             *log,
			}

			var bar *ui.ProgressBar
			if len(args) > 1 && !jsonOutput {
				bar = ui.NewProgressBar(int64(len(args)), "analyzing")
			}

			var reports []fileReport
			failed := 0
			for _, path := range args {
				report, err := analyzeFile(ctx, fs, store, path, opts)
				if bar != nil {
					bar.Add(1)
				}
				if err != nil {
					failed++
					ui.PrintError("%s: %v", path, err)
					log.Error().Err(err).Str("file", path).Msg("analysis failed")
					continue
				}
				reports = append(reports, report)
			}
			if bar != nil {
				bar.Finish()
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				for _, report := range reports {
					printReport(cmd, report)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed analysis", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the report cache")
	cmd.Flags().StringVar(&msiArch, "msi-arch", "", "architecture reported for bare MSI databases (x86, x64, arm64)")
	cmd.Flags().StringVar(&scriptFile, "script-trace", "", "installer-script trace replayed through the plugin-call evaluator")

	return cmd
}

// analyzeFile runs one file through the cache-or-analyze path
func analyzeFile(ctx context.Context, fs afero.Fs, store *cache.Store, path string, opts analysis.Options) (fileReport, error) {
	data, err := fsops.ReadFile(fs, path)
	if err != nil {
		return fileReport{}, err
	}
	digest := cache.Digest(data)

	if store != nil {
		entry, ok, err := store.Get(ctx, digest)
		if err != nil {
			opts.Log.Warn().Err(err).Str("file", path).Msg("cache lookup failed")
		} else if ok {
			return fileReport{Path: path, Sha256: digest, Cached: true, Entry: entry}, nil
		}
	}

	report, err := analysis.Analyze(data, filepath.Base(path), opts)
	if err != nil {
		return fileReport{}, err
	}

	entry := cache.Entry{
		FileName:    filepath.Base(path),
		Records:     report.Records,
		PackageName: report.PackageName,
		Publisher:   report.Publisher,
		Copyright:   report.Copyright,
		AnalyzedAt:  time.Now().UTC(),
	}
	if store != nil {
		if err := store.Put(ctx, digest, entry); err != nil {
			opts.Log.Warn().Err(err).Str("file", path).Msg("cache store failed")
		}
	}

	return fileReport{Path: path, Sha256: digest, Entry: entry}, nil
}

// printReport prints one file report as key-values plus a record table
func printReport(cmd *cobra.Command, report fileReport) {
	ui.PrintHeader(report.Path)
	if report.PackageName != "" {
		ui.PrintKeyValue("Package", report.PackageName)
	}
	if report.Publisher != "" {
		ui.PrintKeyValue("Publisher", report.Publisher)
	}
	if report.Copyright != "" {
		ui.PrintKeyValue("Copyright", report.Copyright)
	}
	ui.PrintKeyValue("SHA-256", report.Sha256)
	if report.Cached {
		ui.PrintInfo("served from cache (analyzed %s)", report.AnalyzedAt.Format("2006-01-02 15:04"))
	}

	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"Kind", "Nested", "Arch", "Scope", "Locale", "Product Code", "Silent"}),
		tablewriter.WithAlignment(tw.MakeAlign(7, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, record := range report.Records {
		table.Append(
			ui.ColorizeInstallerKind(string(record.Kind)),
			orDash(string(record.NestedKind)),
			orDash(string(record.Architecture)),
			orDash(string(record.Scope)),
			orDash(record.Locale),
			orDash(truncate(record.ProductCode, 44)),
			orDash(record.Switches.Silent),
		)
	}

	table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// scriptTrace is a parsed plugin-call trace file: one instruction per line,
// either "Push <value>" or "Call <Module>::<Function>". Blank lines and
// lines starting with ';' or '#' are skipped.
type scriptTrace struct {
	ops []probe.ScriptOp
}

func (s scriptTrace) Ops() []probe.ScriptOp {
	return s.ops
}

func parseScriptTrace(data []byte) (scriptTrace, error) {
	var trace scriptTrace
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Push "):
			trace.ops = append(trace.ops, probe.ScriptOp{Push: strings.TrimSpace(line[len("Push "):])})
		case strings.HasPrefix(line, "Call "):
			target := strings.TrimSpace(line[len("Call "):])
			module, function, ok := strings.Cut(target, "::")
			if !ok {
				return scriptTrace{}, fmt.Errorf("line %d: call target %q is not Module::Function", i+1, target)
			}
			trace.ops = append(trace.ops, probe.ScriptOp{Module: module, Function: function})
		default:
			return scriptTrace{}, fmt.Errorf("line %d: unrecognized instruction %q", i+1, line)
		}
	}
	return trace, nil
}
