package store

import (
	"context"
	"testing"

	"vulnmap/internal/analyzer"
	"vulnmap/internal/errors"
	"vulnmap/internal/source"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func analyzeFixture(t *testing.T) *analyzer.Result {
	t.Helper()
	tree := source.FromFiles(map[string]string{
		"app.py":  "import util\n",
		"util.py": "eval(x)\n",
	})
	result, err := analyzer.Analyze(context.Background(), tree, analyzer.Options{})
	if err != nil {
		t.Fatalf("Fixture analysis failed: %v", err)
	}
	return result
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	result := analyzeFixture(t)

	id, err := s.SaveRun(context.Background(), "github.com/example/proj", result)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a run identifier")
	}

	meta, loaded, err := s.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if meta.Repo != "github.com/example/proj" || meta.Status != "completed" {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
	if meta.Modules != result.Summary.Modules {
		t.Errorf("Stored module count %d, want %d", meta.Modules, result.Summary.Modules)
	}
	if loaded.Summary.TotalFindings != result.Summary.TotalFindings {
		t.Errorf("Result payload did not round-trip: %+v", loaded.Summary)
	}
}

func TestGetMissingRun(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.GetRun(context.Background(), "no-such-id")
	if errors.CodeOf(err) != errors.RunNotFound {
		t.Errorf("Expected RunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	result := analyzeFixture(t)

	first, err := s.SaveRun(context.Background(), "repo-a", result)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRun(context.Background(), "repo-b", result); err != nil {
		t.Fatal(err)
	}

	runs, err := s.ListRuns(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}

	filtered, err := s.ListRuns(context.Background(), "repo-a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != first {
		t.Errorf("Repo filter failed: %+v", filtered)
	}
}

func TestDeleteRun(t *testing.T) {
	s := openTestStore(t)
	result := analyzeFixture(t)

	id, err := s.SaveRun(context.Background(), "repo", result)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRun(context.Background(), id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if err := s.DeleteRun(context.Background(), id); errors.CodeOf(err) != errors.RunNotFound {
		t.Errorf("Deleting a missing run should be RunNotFound, got %v", err)
	}
}
