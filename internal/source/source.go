// Package source loads Python source trees from disk into an in-memory
// representation that the analysis stages consume.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vulnmap/internal/logging"
)

// File is a single Python source file, with its path relative to the
// tree root using forward slashes.
type File struct {
	Path string
	Text []byte
}

// Tree is the set of Python files found under a root directory.
// Files are sorted by path so downstream stages see a stable order.
type Tree struct {
	Root      string
	Files     []File
	Truncated bool
	Skipped   int
}

// IsEmpty reports whether the tree contains no Python files.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.Files) == 0
}

// LoadOptions controls tree loading limits.
type LoadOptions struct {
	Ignore           []string
	MaxFileSizeBytes int64
	MaxFiles         int
}

// FromFiles builds a tree directly from in-memory files. Used by tests
// and callers that already hold source text.
func FromFiles(files map[string]string) *Tree {
	tree := &Tree{Root: ""}
	for path, text := range files {
		tree.Files = append(tree.Files, File{Path: filepath.ToSlash(path), Text: []byte(text)})
	}
	sort.Slice(tree.Files, func(i, j int) bool {
		return tree.Files[i].Path < tree.Files[j].Path
	})
	return tree
}

// LoadDir walks root and collects every Python file not excluded by the
// options. Oversized files are counted as skipped rather than failing
// the load. Hitting MaxFiles stops the walk and marks the tree truncated.
func LoadDir(ctx context.Context, root string, opts LoadOptions, logger *logging.Logger) (*Tree, error) {
	if logger == nil {
		logger = logging.NewSilent()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	ignoreMap := make(map[string]bool, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		ignoreMap[dir] = true
	}

	tree := &Tree{Root: root}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if info.IsDir() {
			if relPath != "." && shouldIgnore(relPath, ignoreMap) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, ".py") {
			return nil
		}

		if opts.MaxFiles > 0 && len(tree.Files) >= opts.MaxFiles {
			logger.Warn("Reached max files limit while loading source tree", map[string]interface{}{
				"maxFiles": opts.MaxFiles,
				"root":     root,
			})
			tree.Truncated = true
			return filepath.SkipAll
		}

		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			logger.Debug("Skipping oversized file", map[string]interface{}{
				"path": relPath,
				"size": info.Size(),
			})
			tree.Skipped++
			return nil
		}

		text, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("Skipping unreadable file", map[string]interface{}{
				"path":  relPath,
				"error": readErr.Error(),
			})
			tree.Skipped++
			return nil
		}

		tree.Files = append(tree.Files, File{Path: filepath.ToSlash(relPath), Text: text})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tree.Files, func(i, j int) bool {
		return tree.Files[i].Path < tree.Files[j].Path
	})

	logger.Debug("Loaded source tree", map[string]interface{}{
		"root":    root,
		"files":   len(tree.Files),
		"skipped": tree.Skipped,
	})

	return tree, nil
}

func shouldIgnore(relPath string, ignoreMap map[string]bool) bool {
	if ignoreMap[relPath] {
		return true
	}

	parts := strings.Split(relPath, string(filepath.Separator))
	for _, part := range parts {
		if ignoreMap[part] {
			return true
		}
	}

	return false
}
