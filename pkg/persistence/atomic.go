// Package persistence implements the durable on-disk layout the board game
// hosting server falls back to when StorageBackend is "durable": one
// directory per gameId holding YAML snapshots of session metadata plus a
// flock-guarded write path so a crash mid-write never leaves a half-written
// file in place of a good one.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// tempNamePattern is the prefix CreateTemp uses for the scratch file
// WriteFileAtomic stages its write in before the rename.
const tempNamePattern = ".boardhost-write-*"

// WriteFileAtomic stages data in a temp file beside target, fsyncs it, then
// renames it over target — so a reader never observes a partial write, and a
// crash mid-write leaves either the old file or the new one, never a mix.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	staged, err := stageWrite(dir, target, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(staged, target); err != nil {
		os.Remove(staged)
		return fmt.Errorf("renaming %s into place at %s: %w", staged, target, err)
	}

	logrus.WithFields(logrus.Fields{"target": target, "bytes": len(data)}).Debug("wrote file atomically")
	return nil
}

// stageWrite writes data into a fresh temp file in dir and returns its path,
// cleaning the temp file up on any failure along the way.
func stageWrite(dir, target string, data []byte, perm os.FileMode) (path string, err error) {
	f, err := os.CreateTemp(dir, tempNamePattern)
	if err != nil {
		return "", fmt.Errorf("staging temp file for %s: %w", target, err)
	}
	path = f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return "", fmt.Errorf("writing staged data for %s: %w", target, err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("syncing staged file for %s: %w", target, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("closing staged file for %s: %w", target, err)
	}
	if err = os.Chmod(path, perm); err != nil {
		return "", fmt.Errorf("setting permissions on staged file for %s: %w", target, err)
	}
	return path, nil
}
