package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doppelcode/doppel/internal/testutil"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/config"
	"github.com/doppelcode/doppel/pkg/source"
)

// testConfig lowers the detection thresholds so small fixtures cluster.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Detect.K = 4
	cfg.Detect.W = 4
	cfg.Detect.MinTokens = 10
	cfg.Detect.MinJaccard = 0.5
	cfg.Detect.MinSharedFPs = 2
	cfg.Extract.MinBlockLines = 3
	return cfg
}

const pyFunc = `def transform_rows(rows):
    total = 0
    for row in rows:
        if row.active:
            total += row.value * 2
        else:
            total -= row.cost
    return total
`

func TestNewUsesConfig(t *testing.T) {
	cfg := testConfig()
	svc := New(WithConfig(cfg))
	if svc.config != cfg {
		t.Error("WithConfig did not set config")
	}
}

func TestAnalyzeClones(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{
		"a.py": pyFunc,
		"b.py": pyFunc,
	})
	files := []string{
		filepath.Join(dir, "a.py"),
		filepath.Join(dir, "b.py"),
	}

	svc := New(WithConfig(testConfig()))

	var extracted, indexed int
	analysis, perrs, err := svc.AnalyzeClones(context.Background(), dir, files, source.NewFilesystem(), CloneOptions{
		OnExtract: func() { extracted++ },
		OnIndex:   func() { indexed++ },
	})
	if err != nil {
		t.Fatalf("AnalyzeClones() error = %v", err)
	}
	if perrs.HasErrors() {
		t.Fatalf("unexpected processing errors: %v", perrs)
	}

	if analysis.Stats.RawFragments != 2 {
		t.Errorf("raw fragments = %d, want 2", analysis.Stats.RawFragments)
	}
	if analysis.Stats.IndexedFragments != 2 {
		t.Errorf("indexed fragments = %d, want 2", analysis.Stats.IndexedFragments)
	}
	if analysis.Stats.Clusters != 1 {
		t.Fatalf("clusters = %d, want 1", analysis.Stats.Clusters)
	}

	cluster := analysis.Clusters[0]
	if cluster.Size != 2 {
		t.Errorf("cluster size = %d, want 2", cluster.Size)
	}
	if cluster.BestPairJaccard != 1.0 {
		t.Errorf("best pair jaccard = %v, want 1.0", cluster.BestPairJaccard)
	}
	if cluster.Members[0].Ref.File != "a.py" || cluster.Members[1].Ref.File != "b.py" {
		t.Errorf("member files = %q, %q; want root-relative a.py, b.py",
			cluster.Members[0].Ref.File, cluster.Members[1].Ref.File)
	}

	if len(analysis.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(analysis.Pairs))
	}
	pair := analysis.Pairs[0]
	if pair.A != 0 || pair.B != 1 || pair.Jaccard != 1.0 || !pair.Exact {
		t.Errorf("pair = %+v, want exact (0,1) with jaccard 1.0", pair)
	}

	if extracted != 2 {
		t.Errorf("extract progress ticks = %d, want 2", extracted)
	}
	if indexed != 2 {
		t.Errorf("index progress ticks = %d, want 2", indexed)
	}
}

func TestAnalyzeClonesFillsSettings(t *testing.T) {
	dir := testutil.TempDir(t)
	cfg := testConfig()
	cfg.Scan.Langs = []string{"ts", "go"}

	svc := New(WithConfig(cfg))
	analysis, _, err := svc.AnalyzeClones(context.Background(), dir, nil, source.NewFilesystem(), CloneOptions{})
	if err != nil {
		t.Fatalf("AnalyzeClones() error = %v", err)
	}

	if analysis.Root != dir {
		t.Errorf("root = %q, want %q", analysis.Root, dir)
	}
	s := analysis.Settings
	if s.Mode != "blocks" {
		t.Errorf("mode = %q, want blocks", s.Mode)
	}
	if s.K != 4 || s.W != 4 || s.MinTokens != 10 || s.MinSharedFPs != 2 {
		t.Errorf("detect settings not carried: %+v", s)
	}
	if s.MinBlockLines != 3 || s.WinLines != 20 || s.WinStep != 10 {
		t.Errorf("extract settings not carried: %+v", s)
	}
	if s.MaxFileKB != 512 {
		t.Errorf("max_file_kb = %d, want 512", s.MaxFileKB)
	}
	want := clones.LangList{clones.LangGo, clones.LangTypeScript}
	if len(s.Langs) != 2 || s.Langs[0] != want[0] || s.Langs[1] != want[1] {
		t.Errorf("langs = %v, want %v", s.Langs, want)
	}
}

func TestAnalyzeClonesEmpty(t *testing.T) {
	svc := New(WithConfig(testConfig()))
	analysis, perrs, err := svc.AnalyzeClones(context.Background(), "", nil, source.NewFilesystem(), CloneOptions{})
	if err != nil {
		t.Fatalf("AnalyzeClones() error = %v", err)
	}
	if perrs.HasErrors() {
		t.Errorf("unexpected processing errors: %v", perrs)
	}
	if analysis.Stats.RawFragments != 0 || analysis.Stats.Clusters != 0 {
		t.Errorf("expected empty analysis, got %+v", analysis.Stats)
	}
	if len(analysis.Clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(analysis.Clusters))
	}
}

func TestAnalyzeClonesUnreadableFile(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{"a.py": pyFunc})

	files := []string{
		filepath.Join(dir, "a.py"),
		filepath.Join(dir, "missing.py"),
	}

	svc := New(WithConfig(testConfig()))
	analysis, perrs, err := svc.AnalyzeClones(context.Background(), dir, files, source.NewFilesystem(), CloneOptions{})
	if err != nil {
		t.Fatalf("AnalyzeClones() error = %v", err)
	}
	if !perrs.HasErrors() {
		t.Error("expected a processing error for the missing file")
	}
	if analysis.Stats.RawFragments != 1 {
		t.Errorf("raw fragments = %d, want 1", analysis.Stats.RawFragments)
	}
}

func TestAnalyzeClonesInvalidMode(t *testing.T) {
	cfg := testConfig()
	cfg.Extract.Mode = "bogus"

	svc := New(WithConfig(cfg))
	_, _, err := svc.AnalyzeClones(context.Background(), "", nil, source.NewFilesystem(), CloneOptions{})
	if err == nil {
		t.Fatal("expected error for invalid mode")
	}
	if !strings.Contains(err.Error(), "invalid extract mode") {
		t.Errorf("error = %v, want invalid extract mode", err)
	}
}

func TestAnalyzeClonesCancelled(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{"a.py": pyFunc})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(WithConfig(testConfig()))
	_, _, err := svc.AnalyzeClones(ctx, dir, []string{filepath.Join(dir, "a.py")}, source.NewFilesystem(), CloneOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCompareFiles(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{
		"left.py":  pyFunc,
		"right.py": pyFunc,
	})

	svc := New(WithConfig(testConfig()))
	analysis, err := svc.CompareFiles(context.Background(),
		filepath.Join(dir, "left.py"), filepath.Join(dir, "right.py"))
	if err != nil {
		t.Fatalf("CompareFiles() error = %v", err)
	}
	if len(analysis.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(analysis.Pairs))
	}
	if !analysis.Pairs[0].Exact {
		t.Error("identical files should produce an exact pair")
	}
}

func TestCompareFilesMissing(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.CreateFileTree(t, dir, map[string]string{"left.py": pyFunc})

	svc := New(WithConfig(testConfig()))
	_, err := svc.CompareFiles(context.Background(),
		filepath.Join(dir, "left.py"), filepath.Join(dir, "missing.py"))
	if err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestLangListSorted(t *testing.T) {
	if langList(nil) != nil {
		t.Error("empty names should produce nil")
	}
	got := langList([]string{"ts", "go", "py"})
	want := clones.LangList{clones.LangGo, clones.LangPython, clones.LangTypeScript}
	if len(got) != len(want) {
		t.Fatalf("langList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("langList[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
