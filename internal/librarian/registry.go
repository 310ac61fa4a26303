package librarian

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/egress"
	"github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/store"

	"github.com/natefinch/atomic"
)

type fileData struct {
	Authorized  []string  `json:"authorized"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Registry is the persisted librarian allow-list. Writes go through the data
// file lock and an atomic rename; reads pick up edits made by other processes
// once the file's mtime changes.
type Registry struct {
	path    string
	lockCfg *store.FileLockConfig

	mu      sync.RWMutex
	data    fileData
	modTime time.Time
	size    int64
}

// OpenRegistry loads path, creating it from seed when it does not exist yet.
// Seed entries that are not valid addresses are skipped.
func OpenRegistry(path string, lockCfg *store.FileLockConfig, seed []string) (*Registry, error) {
	if path == "" {
		return nil, errors.InvalidInput("librarian data file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create librarian data dir: %w", err)
	}

	r := &Registry{path: path, lockCfg: lockCfg}

	err := store.WithFileLock(path, lockCfg, func() error {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}

		initial := fileData{Authorized: []string{}, LastUpdated: time.Now().UTC()}
		for _, raw := range seed {
			addr, err := NormalizeAddress(raw)
			if err != nil {
				slog.Warn("Skipping invalid librarian seed", "value", raw, "error", err)
				continue
			}
			initial.Authorized = appendUnique(initial.Authorized, addr)
		}
		slog.Info("Initializing librarian data", "path", path, "authorized", len(initial.Authorized))
		return writeFile(path, initial)
	})
	if err != nil {
		return nil, err
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NormalizeAddress validates a "<channel>:<target>" librarian address.
func NormalizeAddress(raw string) (string, error) {
	channel, target, err := egress.ParseAddress(raw)
	if err != nil {
		return "", err
	}
	return egress.FormatAddress(channel, target), nil
}

func (r *Registry) Path() string {
	return r.path
}

// Reload rereads the data file unconditionally.
func (r *Registry) Reload() error {
	data, info, err := readFile(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.data = data
	r.modTime = info.ModTime()
	r.size = info.Size()
	r.mu.Unlock()
	return nil
}

func (r *Registry) refresh() {
	info, err := os.Stat(r.path)
	if err != nil {
		return
	}

	r.mu.RLock()
	stale := !info.ModTime().Equal(r.modTime) || info.Size() != r.size
	r.mu.RUnlock()
	if !stale {
		return
	}

	if err := r.Reload(); err != nil {
		slog.Warn("Failed to reload librarian data", "path", r.path, "error", err)
		return
	}
	slog.Info("Librarian data reloaded", "path", r.path)
}

func (r *Registry) IsAuthorized(address string) bool {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return false
	}

	r.refresh()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.data.Authorized, addr)
}

// Authorized returns every approved address, sorted.
func (r *Registry) Authorized() []string {
	r.refresh()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.data.Authorized))
	copy(out, r.data.Authorized)
	sort.Strings(out)
	return out
}

func (r *Registry) LastUpdated() time.Time {
	r.refresh()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.LastUpdated
}

// Add authorizes address. It fails with ErrConflict when already present.
func (r *Registry) Add(address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	return r.mutate(func(d *fileData) error {
		if slices.Contains(d.Authorized, addr) {
			return errors.Conflict("already authorized")
		}
		d.Authorized = append(d.Authorized, addr)
		return nil
	})
}

// Remove revokes address. It fails with ErrNotFound when absent.
func (r *Registry) Remove(address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	return r.mutate(func(d *fileData) error {
		kept := d.Authorized[:0]
		for _, existing := range d.Authorized {
			if existing != addr {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(d.Authorized) {
			return errors.NotFound("librarian " + addr)
		}
		d.Authorized = kept
		return nil
	})
}

// mutate applies fn to the on-disk state read under the file lock, so
// concurrent CLI edits are never lost.
func (r *Registry) mutate(fn func(*fileData) error) error {
	return store.WithFileLock(r.path, r.lockCfg, func() error {
		data, _, err := readFile(r.path)
		if err != nil {
			return err
		}
		if err := fn(&data); err != nil {
			return err
		}
		data.LastUpdated = time.Now().UTC()
		if err := writeFile(r.path, data); err != nil {
			return errors.WrapWithCategory(err, "save librarian data", errors.ErrInternal)
		}
		return r.Reload()
	})
}

func readFile(path string) (fileData, os.FileInfo, error) {
	var data fileData

	info, err := os.Stat(path)
	if err != nil {
		return data, nil, fmt.Errorf("stat librarian data: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return data, nil, fmt.Errorf("read librarian data: %w", err)
	}
	if len(bytes.TrimSpace(content)) > 0 {
		if err := json.Unmarshal(content, &data); err != nil {
			return data, nil, fmt.Errorf("parse librarian data %s: %w", path, err)
		}
	}

	normalized := make([]string, 0, len(data.Authorized))
	for _, raw := range data.Authorized {
		addr, err := NormalizeAddress(raw)
		if err != nil {
			slog.Warn("Ignoring invalid librarian address", "path", path, "value", raw)
			continue
		}
		normalized = appendUnique(normalized, addr)
	}
	data.Authorized = normalized
	return data, info, nil
}

func writeFile(path string, data fileData) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
