// Package atomicfile reads size-capped files and replaces files via
// temp-file + rename so readers never observe a partial write.
package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrTooLarge is returned by ReadLimited when the file exceeds the cap.
var ErrTooLarge = errors.New("file exceeds size limit")

const (
	maxRenameRetry = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond
)

// Test seams.
var (
	renameFn = os.Rename
	sleepFn  = time.Sleep
	goosFn   = func() string { return runtime.GOOS }
)

// ReadLimited reads at most maxBytes from path.
func ReadLimited(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, path, maxBytes)
	}
	return raw, nil
}

// Write replaces path with data. The parent directory is created when
// missing. The temp file lives next to the target so the rename stays on one
// filesystem.
func Write(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("atomic write: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("atomic write: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-FILE] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-FILE] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("atomic write: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("atomic write: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("atomic write: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("atomic write: close: %w", err)
	}

	if err = renameWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("atomic write: rename: %w", err)
	}
	return nil
}

// renameWithRetry retries with linear backoff on Windows, where a target held
// open by another process fails the rename transiently.
func renameWithRetry(src, dst string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := renameFn(src, dst)
		if err == nil {
			return nil
		}
		lastErr = err
		if goosFn() != "windows" {
			return err
		}
		sleepFn(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
