package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/doppelcode/doppel/internal/output"
	"github.com/doppelcode/doppel/internal/service/analysis"
	scannerSvc "github.com/doppelcode/doppel/internal/service/scanner"
	"github.com/doppelcode/doppel/pkg/config"
	"github.com/doppelcode/doppel/pkg/source"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"
)

// Tool input structures

// ScanClonesInput configures a repository-wide clone scan. Zero-valued
// fields fall back to the loaded configuration.
type ScanClonesInput struct {
	Paths         []string `json:"paths,omitempty" jsonschema:"Directories or files to scan. Defaults to current directory if empty."`
	Format        string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	Mode          string   `json:"mode,omitempty" jsonschema:"Fragment extraction mode: blocks (default), windows, or both."`
	Langs         []string `json:"langs,omitempty" jsonschema:"Restrict scanning to these languages (go, py, ts, ...). Empty means all."`
	K             int      `json:"k,omitempty" jsonschema:"K-gram size in normalized tokens. Default 8."`
	W             int      `json:"w,omitempty" jsonschema:"Winnowing window size in k-grams. Default 10."`
	MinTokens     int      `json:"min_tokens,omitempty" jsonschema:"Minimum normalized tokens for a fragment to be indexed. Default 80."`
	MinJaccard    float64  `json:"min_jaccard,omitempty" jsonschema:"Fingerprint similarity threshold (0.0-1.0). Default 0.55."`
	MinShared     int      `json:"min_shared,omitempty" jsonschema:"Minimum shared fingerprints before a pair is scored. Default 12."`
	TopK          int      `json:"topk,omitempty" jsonschema:"Candidate pairs examined per fragment. Default 50."`
	MinBlockLines int      `json:"min_block_lines,omitempty" jsonschema:"Minimum lines for a block fragment. Default 12."`
	WinLines      int      `json:"win_lines,omitempty" jsonschema:"Window height in lines for windows mode. Default 20."`
	WinStep       int      `json:"win_step,omitempty" jsonschema:"Window step in lines for windows mode. Default 10."`
	MaxFileKB     int      `json:"max_file_kb,omitempty" jsonschema:"Skip files larger than this many KB. Default 512."`
	MaxClusters   int      `json:"max_clusters,omitempty" jsonschema:"Maximum clusters included in the result. Default 50."`
	MaxTokens     int      `json:"max_tokens,omitempty" jsonschema:"Approximate token budget for the response. 0 means unlimited."`
}

// apply overlays non-zero input fields onto cfg.
func (in ScanClonesInput) apply(cfg *config.Config) {
	if in.Mode != "" {
		cfg.Extract.Mode = in.Mode
	}
	if len(in.Langs) > 0 {
		cfg.Scan.Langs = in.Langs
	}
	if in.K > 0 {
		cfg.Detect.K = in.K
	}
	if in.W > 0 {
		cfg.Detect.W = in.W
	}
	if in.MinTokens > 0 {
		cfg.Detect.MinTokens = in.MinTokens
	}
	if in.MinJaccard > 0 {
		cfg.Detect.MinJaccard = in.MinJaccard
	}
	if in.MinShared > 0 {
		cfg.Detect.MinSharedFPs = in.MinShared
	}
	if in.TopK > 0 {
		cfg.Detect.TopK = in.TopK
	}
	if in.MinBlockLines > 0 {
		cfg.Extract.MinBlockLines = in.MinBlockLines
	}
	if in.WinLines > 0 {
		cfg.Extract.WinLines = in.WinLines
	}
	if in.WinStep > 0 {
		cfg.Extract.WinStep = in.WinStep
	}
	if in.MaxFileKB > 0 {
		cfg.Scan.MaxFileKB = in.MaxFileKB
	}
}

// CompareFilesInput configures a pairwise file comparison.
type CompareFilesInput struct {
	FileA      string  `json:"file_a" jsonschema:"First file to compare."`
	FileB      string  `json:"file_b" jsonschema:"Second file to compare."`
	Format     string  `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	K          int     `json:"k,omitempty" jsonschema:"K-gram size in normalized tokens. Default 8."`
	W          int     `json:"w,omitempty" jsonschema:"Winnowing window size in k-grams. Default 10."`
	MinTokens  int     `json:"min_tokens,omitempty" jsonschema:"Minimum normalized tokens for a fragment to be indexed. Default 24 for direct comparison."`
	MinJaccard float64 `json:"min_jaccard,omitempty" jsonschema:"Fingerprint similarity threshold (0.0-1.0). Default 0.55."`
	MinShared  int     `json:"min_shared,omitempty" jsonschema:"Minimum shared fingerprints before a pair is scored. Default 2 for direct comparison."`
	MaxTokens  int     `json:"max_tokens,omitempty" jsonschema:"Approximate token budget for the response. 0 means unlimited."`
}

// apply overlays non-zero input fields onto cfg.
func (in CompareFilesInput) apply(cfg *config.Config) {
	if in.K > 0 {
		cfg.Detect.K = in.K
	}
	if in.W > 0 {
		cfg.Detect.W = in.W
	}
	if in.MinTokens > 0 {
		cfg.Detect.MinTokens = in.MinTokens
	}
	if in.MinJaccard > 0 {
		cfg.Detect.MinJaccard = in.MinJaccard
	}
	if in.MinShared > 0 {
		cfg.Detect.MinSharedFPs = in.MinShared
	}
}

// Helper functions

func getPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

func getFormat(s string) output.Format {
	switch s {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "\n```", nil
	default:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(data any, format output.Format, maxTokens int) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	if maxTokens > 0 {
		text = output.TruncateToTokens(text, maxTokens)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func handleScanClones(ctx context.Context, req *mcp.CallToolRequest, input ScanClonesInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.Paths)
	format := getFormat(input.Format)

	cfg := config.LoadOrDefault()
	input.apply(cfg)

	scanner := scannerSvc.New(scannerSvc.WithConfig(cfg))
	scanResult, err := scanner.ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}

	if len(scanResult.Files) == 0 {
		return toolError("no source files found")
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	result, _, err := svc.AnalyzeClones(ctx, scannerSvc.AnalysisRoot(paths), scanResult.Files, source.NewFilesystem(), analysis.CloneOptions{})
	if err != nil {
		return toolError(err.Error())
	}

	maxClusters := input.MaxClusters
	if maxClusters <= 0 {
		maxClusters = cfg.Output.MaxClusters
	}
	if maxClusters > 0 && len(result.Clusters) > maxClusters {
		result.Clusters = result.Clusters[:maxClusters]
	}

	return toolResult(result, format, input.MaxTokens)
}

func handleCompareFiles(ctx context.Context, req *mcp.CallToolRequest, input CompareFilesInput) (*mcp.CallToolResult, any, error) {
	if input.FileA == "" || input.FileB == "" {
		return toolError("file_a and file_b are required")
	}
	format := getFormat(input.Format)

	cfg := config.LoadOrDefault()
	// Direct comparison relaxes the scan-strength gates so small files
	// still produce a verdict.
	cfg.Extract.Mode = "both"
	cfg.Detect.MinTokens = 24
	cfg.Detect.MinSharedFPs = 2
	input.apply(cfg)

	svc := analysis.New(analysis.WithConfig(cfg))
	result, err := svc.CompareFiles(ctx, input.FileA, input.FileB)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(result, format, input.MaxTokens)
}
