package fileproc

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// mapSource serves file content from a map, mimicking a git tree source.
type mapSource struct {
	files map[string]string
}

func (m *mapSource) Read(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return []byte(content), nil
}

func TestMapSourceFiles(t *testing.T) {
	src := &mapSource{files: map[string]string{
		"a.go": "alpha",
		"b.go": "bravo",
		"c.go": "charlie",
	}}

	ctx := context.Background()
	results, errs := MapSourceFiles(ctx, []string{"a.go", "b.go", "c.go"}, src, 0,
		func(path string, content []byte) (string, error) {
			return strings.ToUpper(string(content)), nil
		}, nil)

	if errs != nil && errs.HasErrors() {
		t.Errorf("Unexpected errors: %v", errs)
	}

	want := []string{"ALPHA", "BRAVO", "CHARLIE"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r != want[i] {
			t.Errorf("Result[%d] = %q, want %q", i, r, want[i])
		}
	}
}

func TestMapSourceFiles_ReportsUnreadable(t *testing.T) {
	src := &mapSource{files: map[string]string{
		"a.go": "alpha",
		"c.go": "charlie",
	}}

	ctx := context.Background()
	results, errs := MapSourceFiles(ctx, []string{"a.go", "missing.go", "c.go"}, src, 0,
		func(path string, content []byte) (string, error) {
			return path, nil
		}, nil)

	if !errs.HasErrors() {
		t.Fatal("Expected an error for the unreadable file")
	}
	if len(errs.Errors) != 1 || errs.Errors[0].Path != "missing.go" {
		t.Errorf("Errors = %v, want one entry for missing.go", errs.Errors)
	}

	// The readable files still process, in order
	want := []string{"a.go", "c.go"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r != want[i] {
			t.Errorf("Result[%d] = %q, want %q", i, r, want[i])
		}
	}
}

func TestMapSourceFiles_AllUnreadable(t *testing.T) {
	src := &mapSource{files: map[string]string{}}

	ctx := context.Background()
	results, errs := MapSourceFiles(ctx, []string{"x.go", "y.go"}, src, 0,
		func(path string, content []byte) (string, error) {
			return path, nil
		}, nil)

	if len(results) != 0 {
		t.Errorf("Expected no results, got %v", results)
	}
	if !errs.HasErrors() || len(errs.Errors) != 2 {
		t.Errorf("Expected two errors, got %v", errs)
	}
}

func TestProcessingErrorsNil(t *testing.T) {
	var errs *ProcessingErrors
	if errs.HasErrors() {
		t.Error("nil ProcessingErrors should report no errors")
	}
	if errs.Error() != "no errors" {
		t.Errorf("nil Error() = %q, want %q", errs.Error(), "no errors")
	}
}

func TestMapSourceFiles_SizeLimit(t *testing.T) {
	src := &mapSource{files: map[string]string{
		"small.go": "ok",
		"big.go":   strings.Repeat("x", 100),
	}}

	ctx := context.Background()
	results, errs := MapSourceFiles(ctx, []string{"small.go", "big.go"}, src, 10,
		func(path string, content []byte) (string, error) {
			return path, nil
		}, nil)

	if errs != nil && errs.HasErrors() {
		t.Errorf("Unexpected errors: %v", errs)
	}

	if len(results) != 1 || results[0] != "small.go" {
		t.Errorf("Expected only small.go to survive the size limit, got %v", results)
	}
}

func TestMapSourceFiles_Empty(t *testing.T) {
	src := &mapSource{files: map[string]string{}}

	ctx := context.Background()
	results, errs := MapSourceFiles(ctx, nil, src, 0,
		func(path string, content []byte) (int, error) {
			return 0, nil
		}, nil)

	if results != nil || errs != nil {
		t.Errorf("Expected nil results and errors for empty input, got %v, %v", results, errs)
	}
}
