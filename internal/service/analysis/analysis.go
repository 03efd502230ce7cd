// Package analysis orchestrates clone detection runs over scanned
// files: extraction, fingerprinting, clustering, and report settings.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/doppelcode/doppel/internal/extract"
	"github.com/doppelcode/doppel/internal/fileproc"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/config"
	"github.com/doppelcode/doppel/pkg/source"
)

// Service runs the clone detection pipeline.
type Service struct {
	config *config.Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{config: config.LoadOrDefault()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CloneOptions configures progress reporting for a run.
type CloneOptions struct {
	// OnExtract is called once per file during fragment extraction.
	OnExtract fileproc.ProgressFunc
	// OnIndex is called once per fragment during fingerprinting.
	OnIndex fileproc.ProgressFunc
}

// AnalyzeClones extracts fragments from files through src and runs the
// detection pipeline. Fragment paths in the result are rewritten
// relative to root when possible, and the result's root and settings
// reflect the full run configuration. Unreadable files are collected in
// the returned ProcessingErrors without failing the run; the error
// return is reserved for cancellation and bad configuration.
func (s *Service) AnalyzeClones(ctx context.Context, root string, files []string, src source.ContentSource, opts CloneOptions) (*clones.Analysis, *fileproc.ProcessingErrors, error) {
	cfg := s.config

	mode := extract.Mode(cfg.Extract.Mode)
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("invalid extract mode %q", cfg.Extract.Mode)
	}
	extractOpts := extract.Options{
		Mode:          mode,
		MinBlockLines: cfg.Extract.MinBlockLines,
		WinLines:      cfg.Extract.WinLines,
		WinStep:       cfg.Extract.WinStep,
	}

	frags, perrs := extract.FromSource(ctx, root, files, src, cfg.Scan.MaxFileBytes(), extractOpts, opts.OnExtract)
	if err := ctx.Err(); err != nil {
		return nil, perrs, err
	}

	analyzer := clones.New(
		clones.WithKGramSize(cfg.Detect.K),
		clones.WithWindow(cfg.Detect.W),
		clones.WithMinTokens(cfg.Detect.MinTokens),
		clones.WithMinJaccard(cfg.Detect.MinJaccard),
		clones.WithMinSharedFingerprints(cfg.Detect.MinSharedFPs),
		clones.WithTopK(cfg.Detect.TopK),
		clones.WithWorkers(cfg.Detect.Workers),
	)

	analysis, err := analyzer.AnalyzeWithProgress(ctx, frags, opts.OnIndex)
	if err != nil {
		return nil, perrs, err
	}

	analysis.Root = root
	analysis.Settings.Mode = mode.String()
	analysis.Settings.Langs = langList(cfg.Scan.Langs)
	analysis.Settings.MinBlockLines = extractOpts.MinBlockLines
	analysis.Settings.WinLines = extractOpts.WinLines
	analysis.Settings.WinStep = extractOpts.WinStep
	analysis.Settings.MaxFileKB = cfg.Scan.MaxFileKB

	return analysis, perrs, nil
}

// CompareFiles runs the pipeline over exactly two files and reports
// every qualifying fragment pair. Unlike AnalyzeClones, read failures
// are fatal here: comparing a file that cannot be read is meaningless.
func (s *Service) CompareFiles(ctx context.Context, pathA, pathB string) (*clones.Analysis, error) {
	analysis, perrs, err := s.AnalyzeClones(ctx, "", []string{pathA, pathB}, source.NewFilesystem(), CloneOptions{})
	if err != nil {
		return nil, err
	}
	if perrs.HasErrors() {
		return nil, perrs
	}
	return analysis, nil
}

// langList converts configured language names into the report filter
// form, sorted for stable output.
func langList(names []string) clones.LangList {
	if len(names) == 0 {
		return nil
	}
	langs := make(clones.LangList, 0, len(names))
	for _, n := range names {
		langs = append(langs, clones.Language(n))
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
