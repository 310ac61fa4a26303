package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/config"

	"github.com/gofrs/flock"
)

// FileLock is an advisory lock on "<path>.lock". The daemon and the
// librarians CLI both take it before touching the same data file.
type FileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
	mu         sync.RWMutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return &FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: config.DefaultStoreLockMaxRetry,
	}
}

// FileLockConfigFrom reads the store section, falling back to defaults per field.
func FileLockConfigFrom(cfg config.StoreConfig) (*FileLockConfig, error) {
	out := DefaultFileLockConfig()

	timeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("store.lock_timeout: %w", err)
	}
	retry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return nil, fmt.Errorf("store.lock_retry: %w", err)
	}

	out.LockTimeout = timeout
	out.LockRetry = retry
	if cfg.LockMaxRetry > 0 {
		out.LockMaxRetry = cfg.LockMaxRetry
	}
	return out, nil
}

func LockPath(dataFile string) string {
	return dataFile + ".lock"
}

func NewFileLock(dataFile string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}

	lockPath := LockPath(dataFile)
	fl := &FileLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout)
	defer cancel()

	if err := fl.acquireWithRetry(ctx, cfg); err != nil {
		return nil, err
	}

	fl.acquiredAt = time.Now()
	slog.Debug("File lock acquired", "path", lockPath)

	return fl, nil
}

// WithFileLock holds the lock on dataFile for the duration of fn.
func WithFileLock(dataFile string, cfg *FileLockConfig, fn func() error) error {
	lock, err := NewFileLock(dataFile, cfg)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return fn()
}

func (fl *FileLock) acquireWithRetry(ctx context.Context, cfg *FileLockConfig) error {
	attempts := cfg.LockMaxRetry
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock acquisition cancelled: %w", ctx.Err())
		default:
		}

		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			return nil
		}

		if i < attempts-1 {
			time.Sleep(cfg.LockRetry)
		}
	}

	return fmt.Errorf("%s is locked by another process (timeout after %v)", fl.lockPath, cfg.LockTimeout)
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock", "path", fl.lockPath, "error", err)
	} else {
		slog.Debug("File lock released", "path", fl.lockPath, "held_ms", time.Since(fl.acquiredAt).Milliseconds())
	}

	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fileLock != nil
}

func (fl *FileLock) HeldDuration() time.Duration {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.acquiredAt.IsZero() {
		return 0
	}
	return time.Since(fl.acquiredAt)
}

// CleanupStaleLocks reports a lock file older than maxAge and removes it when forced.
func CleanupStaleLocks(dataFile string, maxAge time.Duration, forceCleanup bool) error {
	lockPath := LockPath(dataFile)
	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	age := time.Since(info.ModTime())
	if age <= maxAge {
		return nil
	}

	slog.Warn("Found stale lock file", "path", lockPath, "age", age, "max_age", maxAge)
	if !forceCleanup {
		slog.Info("Stale lock detected but not cleaning (use --force-clean-locks to remove)", "path", lockPath)
		return nil
	}

	if err := os.Remove(lockPath); err != nil {
		return fmt.Errorf("remove stale lock %s: %w", lockPath, err)
	}

	slog.Info("Stale lock file removed", "path", lockPath)
	return nil
}
