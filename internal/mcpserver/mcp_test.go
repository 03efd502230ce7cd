package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/doppelcode/doppel/internal/output"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/config"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test")
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
}

// TestServerCreationEmptyVersion verifies empty version defaults to "dev".
func TestServerCreationEmptyVersion(t *testing.T) {
	server := NewServer("")
	if server == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
}

// TestToolDescriptions verifies all description functions return non-empty strings.
func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"scanClones":   describeScanClones,
		"compareFiles": describeCompareFiles,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			if desc == "" {
				t.Errorf("%s description is empty", name)
			}
			// Verify descriptions contain key sections
			if !contains(desc, "USE WHEN:") {
				t.Errorf("%s description missing USE WHEN section", name)
			}
			if !contains(desc, "INTERPRETING RESULTS:") {
				t.Errorf("%s description missing INTERPRETING RESULTS section", name)
			}
			if !contains(desc, "METRICS RETURNED:") {
				t.Errorf("%s description missing METRICS RETURNED section", name)
			}
		})
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// TestGetPaths verifies path defaulting logic.
func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{"nil defaults to current dir", nil, []string{"."}},
		{"empty slice defaults to current dir", []string{}, []string{"."}},
		{"single path returned as-is", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths returned as-is", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getPaths(tt.paths)
			if len(result) != len(tt.expected) {
				t.Errorf("getPaths() = %v, want %v", result, tt.expected)
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("getPaths()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

// TestGetFormat verifies format parsing logic.
func TestGetFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected output.Format
	}{
		{"empty defaults to toon", "", output.FormatTOON},
		{"json format", "json", output.FormatJSON},
		{"markdown format", "markdown", output.FormatMarkdown},
		{"md alias", "md", output.FormatMarkdown},
		{"toon explicit", "toon", output.FormatTOON},
		{"unknown defaults to toon", "xml", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getFormat(tt.format)
			if result != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, result, tt.expected)
			}
		})
	}
}

// TestFormatOutput verifies each format produces parseable output.
func TestFormatOutput(t *testing.T) {
	data := struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{"example", 3}

	t.Run("json", func(t *testing.T) {
		text, err := formatOutput(data, output.FormatJSON)
		if err != nil {
			t.Fatalf("formatOutput returned error: %v", err)
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			t.Fatalf("json output is not valid JSON: %v", err)
		}
		if parsed["name"] != "example" {
			t.Errorf("parsed name = %v, want example", parsed["name"])
		}
	})

	t.Run("markdown wraps in code fence", func(t *testing.T) {
		text, err := formatOutput(data, output.FormatMarkdown)
		if err != nil {
			t.Fatalf("formatOutput returned error: %v", err)
		}
		if !contains(text, "```") {
			t.Error("markdown output missing code fence")
		}
	})

	t.Run("toon", func(t *testing.T) {
		text, err := formatOutput(data, output.FormatTOON)
		if err != nil {
			t.Fatalf("formatOutput returned error: %v", err)
		}
		if !contains(text, "example") {
			t.Errorf("toon output missing data: %q", text)
		}
	})
}

// TestToolError verifies error result formatting.
func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("toolError returned nil result")
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	if len(result.Content) == 0 {
		t.Fatal("toolError result has no content")
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("toolError content is not TextContent: %T", result.Content[0])
	}
	if textContent.Text != "Error: test error message" {
		t.Errorf("toolError text = %q, want %q", textContent.Text, "Error: test error message")
	}
}

// TestToolResult verifies successful result formatting.
func TestToolResult(t *testing.T) {
	data := map[string]any{
		"key": "value",
		"num": 42,
	}
	result, _, err := toolResult(data, output.FormatTOON, 0)
	if err != nil {
		t.Fatalf("toolResult returned error: %v", err)
	}
	if result == nil {
		t.Fatal("toolResult returned nil")
	}
	if result.IsError {
		t.Error("toolResult.IsError should be false")
	}
	if len(result.Content) == 0 {
		t.Fatal("toolResult has no content")
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("toolResult content is not TextContent: %T", result.Content[0])
	}
	if textContent.Text == "" {
		t.Error("toolResult text is empty")
	}
}

// TestToolResultTokenBudget verifies oversized results are truncated.
func TestToolResultTokenBudget(t *testing.T) {
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = "this line pads the payload well past the budget"
	}
	result, _, err := toolResult(lines, output.FormatTOON, 20)
	if err != nil {
		t.Fatalf("toolResult returned error: %v", err)
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !contains(text, "[truncated]") {
		t.Error("expected truncation marker in oversized result")
	}
	if output.EstimateTokens(text) > 40 {
		t.Errorf("truncated result still too large: ~%d tokens", output.EstimateTokens(text))
	}
}

// TestScanClonesInputApply verifies non-zero fields override the config.
func TestScanClonesInputApply(t *testing.T) {
	cfg := config.DefaultConfig()
	input := ScanClonesInput{
		Mode:          "windows",
		Langs:         []string{"go"},
		K:             5,
		W:             6,
		MinTokens:     30,
		MinJaccard:    0.7,
		MinShared:     3,
		TopK:          9,
		MinBlockLines: 4,
		WinLines:      15,
		WinStep:       5,
		MaxFileKB:     128,
	}
	input.apply(cfg)

	if cfg.Extract.Mode != "windows" || cfg.Extract.MinBlockLines != 4 {
		t.Errorf("extract overrides not applied: %+v", cfg.Extract)
	}
	if cfg.Detect.K != 5 || cfg.Detect.W != 6 || cfg.Detect.MinJaccard != 0.7 {
		t.Errorf("detect overrides not applied: %+v", cfg.Detect)
	}
	if cfg.Scan.MaxFileKB != 128 || len(cfg.Scan.Langs) != 1 {
		t.Errorf("scan overrides not applied: %+v", cfg.Scan)
	}

	// Zero values leave the config untouched
	cfg2 := config.DefaultConfig()
	ScanClonesInput{}.apply(cfg2)
	if cfg2.Detect.K != config.DefaultConfig().Detect.K {
		t.Error("zero input modified the config")
	}
}

// TestHandleScanClones runs the scan tool against a real fixture tree.
func TestHandleScanClones(t *testing.T) {
	tmpDir := t.TempDir()

	cloneCode := `def transform_rows(rows):
    total = 0
    for row in rows:
        if row.active:
            total += row.value * 2
        else:
            total -= row.cost
    return total
`
	for _, name := range []string{"a.py", "b.py"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(cloneCode), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	input := ScanClonesInput{
		Paths:         []string{tmpDir},
		Format:        "json",
		K:             4,
		W:             4,
		MinTokens:     10,
		MinShared:     2,
		MinBlockLines: 3,
	}

	result, _, err := handleScanClones(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleScanClones returned error: %v", err)
	}
	if result == nil {
		t.Fatal("handleScanClones returned nil result")
	}
	if result.IsError {
		textContent := result.Content[0].(*mcp.TextContent)
		t.Fatalf("handleScanClones returned error: %s", textContent.Text)
	}

	text := result.Content[0].(*mcp.TextContent).Text
	var analysis clones.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if analysis.Stats.Clusters != 1 {
		t.Errorf("clusters = %d, want 1", analysis.Stats.Clusters)
	}
	if len(analysis.Clusters) != 1 || analysis.Clusters[0].Members[0].Ref.File != "a.py" {
		t.Errorf("expected cluster with root-relative member a.py, got %+v", analysis.Clusters)
	}
}

// TestHandleScanClonesNoFiles verifies the empty-scan error path.
func TestHandleScanClonesNoFiles(t *testing.T) {
	tmpDir := t.TempDir()

	result, _, err := handleScanClones(context.Background(), nil, ScanClonesInput{
		Paths: []string{tmpDir},
	})
	if err != nil {
		t.Fatalf("handleScanClones returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError for empty directory")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !contains(text, "no source files found") {
		t.Errorf("error text = %q", text)
	}
}

// TestHandleScanClonesMaxClusters verifies cluster trimming in results.
func TestHandleScanClonesMaxClusters(t *testing.T) {
	tmpDir := t.TempDir()

	sumCode := `def sum_active(rows):
    total = 0
    for row in rows:
        if row.active:
            total += row.value
    return total
`
	parseCode := `def load_config(path):
    with open(path) as fh:
        data = fh.read()
    parts = data.split(",")
    while "" in parts:
        parts.remove("")
    return parts
`
	fixtures := map[string]string{
		"a.py": sumCode,
		"b.py": sumCode,
		"c.py": parseCode,
		"d.py": parseCode,
	}
	for name, content := range fixtures {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	input := ScanClonesInput{
		Paths:         []string{tmpDir},
		Format:        "json",
		K:             4,
		W:             4,
		MinTokens:     10,
		MinShared:     2,
		MinBlockLines: 3,
		MaxClusters:   1,
	}

	result, _, err := handleScanClones(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleScanClones returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("handleScanClones returned error: %s", result.Content[0].(*mcp.TextContent).Text)
	}

	var analysis clones.Analysis
	if err := json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &analysis); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if analysis.Stats.Clusters != 2 {
		t.Errorf("stats.clusters = %d, want 2 (stats count the full run)", analysis.Stats.Clusters)
	}
	if len(analysis.Clusters) != 1 {
		t.Errorf("rendered clusters = %d, want 1 after trimming", len(analysis.Clusters))
	}
}

// TestHandleCompareFiles compares two identical files.
func TestHandleCompareFiles(t *testing.T) {
	tmpDir := t.TempDir()

	code := `def transform_rows(rows):
    total = 0
    for row in rows:
        if row.active:
            total += row.value * 2
        else:
            total -= row.cost
    return total
`
	fileA := filepath.Join(tmpDir, "left.py")
	fileB := filepath.Join(tmpDir, "right.py")
	for _, path := range []string{fileA, fileB} {
		if err := os.WriteFile(path, []byte(code), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	result, _, err := handleCompareFiles(context.Background(), nil, CompareFilesInput{
		FileA:  fileA,
		FileB:  fileB,
		Format: "json",
	})
	if err != nil {
		t.Fatalf("handleCompareFiles returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("handleCompareFiles returned error: %s", result.Content[0].(*mcp.TextContent).Text)
	}

	var analysis clones.Analysis
	if err := json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &analysis); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(analysis.Pairs) == 0 {
		t.Fatal("expected at least one pair for identical files")
	}
	if !analysis.Pairs[0].Exact {
		t.Error("identical files should produce an exact pair")
	}
	// Relaxed comparison defaults are recorded in the settings
	if analysis.Settings.Mode != "both" || analysis.Settings.MinTokens != 24 || analysis.Settings.MinSharedFPs != 2 {
		t.Errorf("comparison defaults not applied: %+v", analysis.Settings)
	}
}

// TestHandleCompareFilesMissingArgs verifies argument validation.
func TestHandleCompareFilesMissingArgs(t *testing.T) {
	result, _, err := handleCompareFiles(context.Background(), nil, CompareFilesInput{FileA: "only.py"})
	if err != nil {
		t.Fatalf("handleCompareFiles returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError when file_b is missing")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !contains(text, "file_a and file_b are required") {
		t.Errorf("error text = %q", text)
	}
}

// TestHandleCompareFilesUnreadable verifies read failures surface as tool errors.
func TestHandleCompareFilesUnreadable(t *testing.T) {
	tmpDir := t.TempDir()
	fileA := filepath.Join(tmpDir, "left.py")
	if err := os.WriteFile(fileA, []byte("def f():\n    pass\n"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, _, err := handleCompareFiles(context.Background(), nil, CompareFilesInput{
		FileA: fileA,
		FileB: filepath.Join(tmpDir, "missing.py"),
	})
	if err != nil {
		t.Fatalf("handleCompareFiles returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError for unreadable file")
	}
}

// TestGenerateManifest verifies the server.json manifest shape.
func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest returned error: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.Name != "io.github.doppelcode/doppel" {
		t.Errorf("manifest name = %q", manifest.Name)
	}
	if manifest.Version != "1.2.3" {
		t.Errorf("manifest version = %q, want 1.2.3", manifest.Version)
	}
	if !contains(manifest.Schema, "2025-10-17") {
		t.Errorf("manifest schema = %q", manifest.Schema)
	}
	if len(manifest.Packages) != 1 || manifest.Packages[0].Identifier != "ghcr.io/doppelcode/doppel:1.2.3" {
		t.Errorf("manifest packages = %+v", manifest.Packages)
	}
	if manifest.Packages[0].Transport.Type != "stdio" {
		t.Errorf("transport = %q, want stdio", manifest.Packages[0].Transport.Type)
	}
}

// TestGenerateManifestDefaultVersion verifies the version fallback.
func TestGenerateManifestDefaultVersion(t *testing.T) {
	data, err := GenerateManifest("")
	if err != nil {
		t.Fatalf("GenerateManifest returned error: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.Version != "0.0.0" {
		t.Errorf("manifest version = %q, want 0.0.0", manifest.Version)
	}
}

// TestParseFrontmatter verifies frontmatter extraction edge cases.
func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantDesc string
		wantBody string
	}{
		{
			name:     "with frontmatter",
			content:  "---\ndescription: does things\n---\n\nBody text here.\n",
			wantDesc: "does things",
			wantBody: "Body text here.\n",
		},
		{
			name:     "no frontmatter",
			content:  "Just a body.\n",
			wantDesc: "",
			wantBody: "Just a body.\n",
		},
		{
			name:     "unterminated frontmatter",
			content:  "---\ndescription: dangling\n",
			wantDesc: "",
			wantBody: "---\ndescription: dangling\n",
		},
		{
			name:     "invalid yaml",
			content:  "---\n: [broken\n---\nBody.\n",
			wantDesc: "",
			wantBody: "---\n: [broken\n---\nBody.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, body := parseFrontmatter([]byte(tt.content))
			if desc != tt.wantDesc {
				t.Errorf("description = %q, want %q", desc, tt.wantDesc)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

// TestEmbeddedPrompts verifies every shipped prompt file parses cleanly.
func TestEmbeddedPrompts(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		t.Fatalf("reading embedded prompts: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 prompt files, found %d", len(entries))
	}

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile("prompts/" + entry.Name())
			if err != nil {
				t.Fatalf("reading %s: %v", entry.Name(), err)
			}
			desc, body := parseFrontmatter(content)
			if desc == "" {
				t.Error("prompt has no description frontmatter")
			}
			if body == "" {
				t.Error("prompt has no body")
			}
		})
	}
}

// TestPromptHandler verifies prompt handlers return the parsed body.
func TestPromptHandler(t *testing.T) {
	handler := makePromptHandler("test description", "test body")
	result, err := handler(context.Background(), &mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("prompt handler returned error: %v", err)
	}
	if result.Description != "test description" {
		t.Errorf("description = %q", result.Description)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(result.Messages))
	}
	textContent, ok := result.Messages[0].Content.(*mcp.TextContent)
	if !ok {
		t.Fatalf("message content is not TextContent: %T", result.Messages[0].Content)
	}
	if textContent.Text != "test body" {
		t.Errorf("message text = %q", textContent.Text)
	}
}
