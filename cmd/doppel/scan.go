package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/doppelcode/doppel/internal/output"
	"github.com/doppelcode/doppel/internal/progress"
	"github.com/doppelcode/doppel/internal/remote"
	"github.com/doppelcode/doppel/internal/report"
	"github.com/doppelcode/doppel/internal/service/analysis"
	scannerSvc "github.com/doppelcode/doppel/internal/service/scanner"
	"github.com/doppelcode/doppel/pkg/config"
	"github.com/doppelcode/doppel/pkg/source"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"s"},
		Usage:     "Scan paths for near-duplicate code fragments",
		ArgsUsage: "[paths or repository...]",
		Description: `Scans the given paths (default: current directory) for duplicated
code fragments, clusters the matches, and writes JSON and text report
artifacts alongside the console summary.

A single argument may also name a remote repository, which is cloned
into a temporary directory first:

  doppel scan                              # Current directory
  doppel scan ./src ./lib                  # Multiple paths
  doppel scan owner/repo                   # GitHub shorthand
  doppel scan https://github.com/o/r@v1.2  # Pinned ref
  doppel scan --ref HEAD~5 .               # Committed tree, not worktree`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Fragment extraction mode: blocks, windows, both",
			},
			&cli.IntFlag{
				Name:    "kgram",
				Aliases: []string{"k"},
				Usage:   "K-gram size in normalized tokens",
			},
			&cli.IntFlag{
				Name:    "winnow",
				Aliases: []string{"w"},
				Usage:   "Winnowing window size in k-grams",
			},
			&cli.IntFlag{
				Name:  "min-tokens",
				Usage: "Minimum normalized tokens for a fragment to be indexed",
			},
			&cli.IntFlag{
				Name:  "min-block-lines",
				Usage: "Minimum line count for extracted blocks",
			},
			&cli.IntFlag{
				Name:  "win-lines",
				Usage: "Sliding window height in lines (windows mode)",
			},
			&cli.IntFlag{
				Name:  "win-step",
				Usage: "Sliding window step in lines (windows mode)",
			},
			&cli.Float64Flag{
				Name:  "min-jaccard",
				Usage: "Fingerprint similarity threshold (0.0-1.0)",
			},
			&cli.IntFlag{
				Name:  "min-shared",
				Usage: "Minimum shared fingerprints before a pair is verified",
			},
			&cli.IntFlag{
				Name:  "topk",
				Usage: "Candidate fragments verified per fragment",
			},
			&cli.StringSliceFlag{
				Name:  "langs",
				Usage: "Restrict the scan to languages (go, py, ts, ...)",
			},
			&cli.IntFlag{
				Name:  "max-file-kb",
				Usage: "Skip files larger than this many KB",
			},
			&cli.IntFlag{
				Name:  "max-clusters",
				Usage: "Cluster count shown in reports",
			},
			&cli.StringFlag{
				Name:  "json-out",
				Usage: "Path for the JSON artifact",
			},
			&cli.StringFlag{
				Name:  "report-out",
				Usage: "Path for the text report artifact",
			},
			&cli.BoolFlag{
				Name:  "no-artifacts",
				Usage: "Skip writing the JSON and text report artifacts",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Scan the committed tree at this revision instead of the worktree",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Extraction worker count (0 = one per CPU)",
			},
		},
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyScanFlags(c, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := getPaths(c)

	// A single non-local argument may name a remote repository.
	cloned := false
	if len(paths) == 1 {
		src, err := remote.Parse(paths[0])
		if err != nil {
			return err
		}
		if src != nil {
			if ref := c.String("ref"); ref != "" && src.Ref == "" {
				src.Ref = ref
			}
			var cloneOut io.Writer = io.Discard
			if cfg.Output.Verbose {
				cloneOut = os.Stderr
			}
			spinner := progress.NewSpinner("Cloning " + src.URL + "...")
			if err := src.Clone(ctx, cloneOut, true); err != nil {
				spinner.Fail(err)
				return err
			}
			spinner.Done()
			defer src.Cleanup()
			paths = []string{src.CloneDir}
			cloned = true
		}
	}

	scanSvc := scannerSvc.New(scannerSvc.WithConfig(cfg))

	var (
		files      []string
		contentSrc source.ContentSource
		root       string
		skipped    int
	)
	if ref := c.String("ref"); ref != "" && !cloned {
		if len(paths) > 1 {
			return fmt.Errorf("--ref scans a single repository, got %d paths", len(paths))
		}
		result, tree, err := scanSvc.ScanTree(paths[0], ref)
		if err != nil {
			return err
		}
		files = result.Files
		skipped = result.Skipped
		contentSrc = source.NewTree(tree)
		root = result.RepoRoot
	} else {
		result, err := scanSvc.ScanPaths(paths)
		if err != nil {
			return err
		}
		files = result.Files
		skipped = result.Skipped
		contentSrc = source.NewFilesystem()
		root = scannerSvc.AnalysisRoot(paths)
	}

	if cfg.Output.Verbose && skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d files over the %d KB size cap\n", skipped, cfg.Scan.MaxFileKB)
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	extract := progress.NewCounter("Extracting fragments...", len(files))
	index := progress.NewSpinner("Fingerprinting fragments...")
	a, perrs, err := svc.AnalyzeClones(ctx, root, files, contentSrc, analysis.CloneOptions{
		OnExtract: extract.Tick,
		OnIndex:   index.Tick,
	})
	extract.Done()
	index.Done()
	if err != nil {
		return err
	}

	if perrs.HasErrors() && cfg.Output.Verbose {
		color.Yellow("%d files could not be processed:", len(perrs.Errors))
		for _, pe := range perrs.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", pe.Error())
		}
	}

	var artifacts []string
	if !c.Bool("no-artifacts") {
		if cfg.Output.Out != "" {
			if err := report.WriteJSON(a, cfg.Output.Out); err != nil {
				return fmt.Errorf("writing %s: %w", cfg.Output.Out, err)
			}
			artifacts = append(artifacts, cfg.Output.Out)
		}
		if cfg.Output.Report != "" {
			if err := report.WriteText(a, cfg.Output.Report, cfg.Output.MaxClusters); err != nil {
				return fmt.Errorf("writing %s: %w", cfg.Output.Report, err)
			}
			artifacts = append(artifacts, cfg.Output.Report)
		}
	}

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), getTrailingFlag(c, "output", "o", ""), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(&report.Summary{Analysis: a, MaxClusters: cfg.Output.MaxClusters}); err != nil {
		return err
	}
	if len(artifacts) > 0 && formatter.Format() == output.FormatText {
		formatter.Success("Wrote %s", strings.Join(artifacts, " and "))
	}
	return nil
}

// applyScanFlags overlays explicitly-set command line flags onto the
// loaded configuration. Unset flags leave the config values alone.
func applyScanFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("mode") {
		cfg.Extract.Mode = c.String("mode")
	}
	if c.IsSet("kgram") {
		cfg.Detect.K = c.Int("kgram")
	}
	if c.IsSet("winnow") {
		cfg.Detect.W = c.Int("winnow")
	}
	if c.IsSet("min-tokens") {
		cfg.Detect.MinTokens = c.Int("min-tokens")
	}
	if c.IsSet("min-jaccard") {
		cfg.Detect.MinJaccard = c.Float64("min-jaccard")
	}
	if c.IsSet("min-shared") {
		cfg.Detect.MinSharedFPs = c.Int("min-shared")
	}
	if c.IsSet("topk") {
		cfg.Detect.TopK = c.Int("topk")
	}
	if c.IsSet("jobs") {
		cfg.Detect.Workers = c.Int("jobs")
	}
	if c.IsSet("min-block-lines") {
		cfg.Extract.MinBlockLines = c.Int("min-block-lines")
	}
	if c.IsSet("win-lines") {
		cfg.Extract.WinLines = c.Int("win-lines")
	}
	if c.IsSet("win-step") {
		cfg.Extract.WinStep = c.Int("win-step")
	}
	if c.IsSet("langs") {
		cfg.Scan.Langs = c.StringSlice("langs")
	}
	if c.IsSet("max-file-kb") {
		cfg.Scan.MaxFileKB = c.Int("max-file-kb")
	}
	if c.IsSet("max-clusters") {
		cfg.Output.MaxClusters = c.Int("max-clusters")
	}
	if c.IsSet("json-out") {
		cfg.Output.Out = c.String("json-out")
	}
	if c.IsSet("report-out") {
		cfg.Output.Report = c.String("report-out")
	}
}
