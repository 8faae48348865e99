package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, text string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDirCollectsPythonFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "import core\n")
	writeFile(t, root, "pkg/core.py", "import os\n")
	writeFile(t, root, "readme.md", "not python\n")

	tree, err := LoadDir(context.Background(), root, LoadOptions{}, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(tree.Files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(tree.Files))
	}
	if tree.Files[0].Path != "app.py" || tree.Files[1].Path != "pkg/core.py" {
		t.Errorf("Files not sorted by path: %v, %v", tree.Files[0].Path, tree.Files[1].Path)
	}
}

func TestLoadDirIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "x = 1\n")
	writeFile(t, root, "venv/lib.py", "x = 2\n")
	writeFile(t, root, "sub/__pycache__/cached.py", "x = 3\n")

	tree, err := LoadDir(context.Background(), root, LoadOptions{
		Ignore: []string{"venv", "__pycache__"},
	}, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "app.py" {
		t.Errorf("Expected only app.py, got %v", tree.Files)
	}
}

func TestLoadDirSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "x = 1\n")
	writeFile(t, root, "big.py", string(make([]byte, 200)))

	tree, err := LoadDir(context.Background(), root, LoadOptions{MaxFileSizeBytes: 100}, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "small.py" {
		t.Errorf("Expected only small.py, got %v", tree.Files)
	}
	if tree.Skipped != 1 {
		t.Errorf("Expected 1 skipped file, got %d", tree.Skipped)
	}
}

func TestLoadDirMaxFilesTruncates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")
	writeFile(t, root, "b.py", "x = 2\n")
	writeFile(t, root, "c.py", "x = 3\n")

	tree, err := LoadDir(context.Background(), root, LoadOptions{MaxFiles: 2}, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(tree.Files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(tree.Files))
	}
	if !tree.Truncated {
		t.Error("Expected tree to be marked truncated")
	}
}

func TestLoadDirCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := LoadDir(ctx, root, LoadOptions{}, nil); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestFromFilesSorted(t *testing.T) {
	tree := FromFiles(map[string]string{
		"z.py": "import a\n",
		"a.py": "import z\n",
	})
	if tree.Files[0].Path != "a.py" {
		t.Errorf("Expected sorted order, got %v first", tree.Files[0].Path)
	}
	if tree.IsEmpty() {
		t.Error("Tree with files should not be empty")
	}
	if !FromFiles(nil).IsEmpty() {
		t.Error("Empty tree should report empty")
	}
}
