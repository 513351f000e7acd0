package file_writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/fluidflow/fluidflow/response_parser/models"
)

const lockRetryDelay = 50 * time.Millisecond

// ApplyResult reports what happened to a single path during Apply.
type ApplyResult struct {
	Path   string
	Action string // "written", "deleted" or "failed"
	Err    error
}

// FileWriter applies a parsed marker response to a directory tree. Writes are
// serialized per target file with an advisory lock so a concurrently running
// dev server or editor never observes a half-written file.
type FileWriter struct {
	rootDir     string
	lockTimeout time.Duration
}

// NewFileWriter initializes a writer rooted at rootDir.
func NewFileWriter(rootDir string, lockTimeout time.Duration) *FileWriter {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &FileWriter{rootDir: rootDir, lockTimeout: lockTimeout}
}

// Apply writes every extracted file and removes every planned deletion,
// returning one result per path in deterministic order. Individual failures
// do not abort the rest of the batch.
func (w *FileWriter) Apply(ctx context.Context, response *models.MarkerResponse, plan *models.FilePlan) []ApplyResult {
	var results []ApplyResult

	paths := make([]string, 0, len(response.Files))
	for path := range response.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := w.WriteFile(ctx, path, response.Files[path]); err != nil {
			results = append(results, ApplyResult{Path: path, Action: "failed", Err: err})
			continue
		}
		results = append(results, ApplyResult{Path: path, Action: "written"})
	}

	if plan != nil {
		for _, path := range plan.Delete {
			if err := w.DeleteFile(path); err != nil {
				results = append(results, ApplyResult{Path: path, Action: "failed", Err: err})
				continue
			}
			results = append(results, ApplyResult{Path: path, Action: "deleted"})
		}
	}

	return results
}

// WriteFile writes content under an advisory file lock.
func (w *FileWriter) WriteFile(ctx context.Context, relativePath string, content string) error {
	target, err := w.resolve(relativePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	fileLock := flock.New(target + ".lock")
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", relativePath, err)
	}
	if !locked {
		return fmt.Errorf("timed out waiting for lock on %s", relativePath)
	}
	defer func() {
		_ = fileLock.Unlock()
		_ = os.Remove(fileLock.Path())
	}()

	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

// DeleteFile removes a planned deletion and prunes its directory when that
// leaves it empty. A path that is already gone is not an error.
func (w *FileWriter) DeleteFile(relativePath string) error {
	target, err := w.resolve(relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return removeEmptyDirectoryIfNeeded(filepath.Dir(target))
}

// resolve joins a generated path onto the root and rejects anything escaping
// it. Generated paths are untrusted input.
func (w *FileWriter) resolve(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("absolute path not allowed: %s", relativePath)
	}

	target := filepath.Clean(filepath.Join(w.rootDir, filepath.FromSlash(relativePath)))
	root := filepath.Clean(w.rootDir)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes output root: %s", relativePath)
	}

	return target, nil
}

// removeEmptyDirectoryIfNeeded checks if a directory is empty, and if so, deletes it
func removeEmptyDirectoryIfNeeded(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("failed to delete empty directory %s: %w", dir, err)
		}
	}
	return nil
}
