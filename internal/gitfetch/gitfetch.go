// Package gitfetch resolves a remote repository into a local checkout
// that the source loader can walk.
package gitfetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vulnmap/internal/errors"
	"vulnmap/internal/logging"
)

// Fetcher clones repositories into a working directory.
type Fetcher struct {
	workDir string
	timeout time.Duration
	logger  *logging.Logger
}

// New creates a fetcher. timeout bounds each clone; zero disables the
// bound.
func New(workDir string, timeout time.Duration, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Fetcher{workDir: workDir, timeout: timeout, logger: logger}
}

// Clone shallow-clones the repository and returns the checkout path.
// An existing checkout of the same repository is replaced so the
// analysis always sees the current remote state.
func (f *Fetcher) Clone(ctx context.Context, repoURL string) (string, error) {
	name := RepoName(repoURL)
	if name == "" {
		return "", errors.New(errors.InvalidInput, "cannot derive repository name from "+repoURL, nil)
	}

	if err := os.MkdirAll(f.workDir, 0755); err != nil {
		return "", errors.New(errors.CloneFailed, "failed to create work directory", err)
	}
	dest := filepath.Join(f.workDir, name)
	if err := os.RemoveAll(dest); err != nil {
		return "", errors.New(errors.CloneFailed, "failed to clear previous checkout", err)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.logger.Info("Cloning repository", map[string]interface{}{
		"url":  repoURL,
		"dest": dest,
	})

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repoURL, dest)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.CloneFailed, "clone timed out", ctx.Err())
		}
		return "", errors.New(errors.CloneFailed, "git clone failed", err).
			WithDetails(strings.TrimSpace(string(output)))
	}

	return dest, nil
}

// RepoName derives the checkout directory name from a repository URL
// or local path.
func RepoName(repoURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.TrimSpace(trimmed)
}
