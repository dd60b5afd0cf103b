package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the persistence behind a Cache. Entries are opaque blobs.
type Store interface {
	// Load returns the entry for key. ok is false when no entry exists.
	Load(key string) (data []byte, ok bool, err error)
	// Save persists data under key unless an entry already exists, in which
	// case the existing entry is kept and stored is false.
	Save(key string, data []byte) (stored bool, err error)
}

// Locker is implemented by stores shared between processes. Lock blocks
// until the caller holds the exclusive right to compute key; the returned
// func releases it.
type Locker interface {
	Lock(key string) (unlock func(), err error)
}

// Entry describes one persisted cache entry.
type Entry struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (m *MemoryStore) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *MemoryStore) Save(key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; exists {
		return false, nil
	}
	m.entries[key] = append([]byte(nil), data...)
	return true, nil
}

// FileStore keeps one flat file per key in a single directory.
type FileStore struct {
	dir string
}

const (
	fileExt  = ".gob"
	lockExt  = ".lock"
	lockPoll = 50 * time.Millisecond
	// lockStaleAfter bounds how long a lock left by a crashed process blocks
	// other runs.
	lockStaleAfter = 30 * time.Minute
)

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(key string) string {
	return f.file(key, fileExt)
}

func (f *FileStore) file(key, ext string) string {
	name := strings.NewReplacer("/", "_", `\`, "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(f.dir, name+ext)
}

// Lock takes an exclusive lock file for key, polling while another process
// holds it. Locks older than lockStaleAfter are broken.
func (f *FileStore) Lock(key string) (func(), error) {
	path := f.file(key, lockExt)
	for {
		lf, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = lf.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("cache: lock %q: %w", key, err)
		}
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(path)
			continue
		}
		time.Sleep(lockPoll)
	}
}

func (f *FileStore) Load(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %q: %w", key, err)
	}
	return data, true, nil
}

// Save writes to a temp file and hard-links it into place, so a concurrent
// writer from another process either wins or sees the existing entry.
func (f *FileStore) Save(key string, data []byte) (bool, error) {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return false, fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("cache: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("cache: close %q: %w", key, err)
	}

	if err := os.Link(tmpName, f.path(key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("cache: persist %q: %w", key, err)
	}
	return true, nil
}

// Entries lists persisted entries sorted by key.
func (f *FileStore) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("cache: list %q: %w", f.dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("cache: stat %q: %w", name, err)
		}
		entries = append(entries, Entry{
			Key:     strings.TrimSuffix(name, fileExt),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Delete removes the entries with exactly the given keys and returns how
// many existed.
func (f *FileStore) Delete(keys ...string) (int, error) {
	removed := 0
	for _, k := range keys {
		err := os.Remove(f.path(k))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("cache: remove %q: %w", k, err)
		}
		removed++
	}
	return removed, nil
}

// Clear removes every entry whose key starts with prefix and returns how
// many were removed. An empty prefix clears the whole cache.
func (f *FileStore) Clear(prefix string) (int, error) {
	entries, err := f.Entries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Key+fileExt)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("cache: remove %q: %w", e.Key, err)
		}
		removed++
	}
	return removed, nil
}
