package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// filePerm is the mode every table file and its lock file are written with.
const filePerm = 0o644

// FileStore is a directory of YAML-encoded records, one file per key, used
// by DurableStore for the `games`/`lobby` tables spec §4.2 names. An
// in-process sync.RWMutex serializes access within this server instance;
// a FileLock additionally guards each path against a second process (or a
// second DurableStore instance pointed at the same directory) touching the
// same file concurrently.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore opens dir as a FileStore, creating it if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	logrus.WithField("dir", dir).Debug("file store ready")
	return &FileStore{dir: dir}, nil
}

// withLock runs fn while holding both the in-process mutex (exclusive or
// shared per excl) and an OS-level FileLock on key's path.
func (fs *FileStore) withLock(key string, excl bool, fn func(path string) error) error {
	if excl {
		fs.mu.Lock()
		defer fs.mu.Unlock()
	} else {
		fs.mu.RLock()
		defer fs.mu.RUnlock()
	}

	path := filepath.Join(fs.dir, key)
	lock, err := NewFileLock(path)
	if err != nil {
		return fmt.Errorf("opening lock for %s: %w", key, err)
	}
	defer lock.Close()
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", key, err)
	}
	return fn(path)
}

// Save YAML-encodes value and writes it to key, atomically.
func (fs *FileStore) Save(key string, value interface{}) error {
	return fs.withLock(key, true, func(path string) error {
		encoded, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if err := WriteFileAtomic(path, encoded, filePerm); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
		logrus.WithFields(logrus.Fields{"key": key, "bytes": len(encoded)}).Debug("saved record")
		return nil
	})
}

// Load decodes key's YAML content into dest, a pointer to the target value.
func (fs *FileStore) Load(key string, dest interface{}) error {
	return fs.withLock(key, false, func(path string) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s not found: %w", key, err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		if err := yaml.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		return nil
	})
}

// Exists reports whether key has a record.
func (fs *FileStore) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(fs.dir, key))
	return err == nil
}

// Delete removes key's record and its companion lock file.
func (fs *FileStore) Delete(key string) error {
	return fs.withLock(key, true, func(path string) error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
		os.Remove(path + lockSuffix)
		logrus.WithField("key", key).Debug("deleted record")
		return nil
	})
}

// List returns every key in this store matching the glob pattern.
func (fs *FileStore) List(pattern string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(fs.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(fs.dir, m)
		if err != nil {
			continue
		}
		keys = append(keys, rel)
	}
	return keys, nil
}

// Dir returns the store's backing directory.
func (fs *FileStore) Dir() string { return fs.dir }
