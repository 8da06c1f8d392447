package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	riskerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/logger"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/retry"
)

// FileStore keeps the snapshot in a single JSON file. Writes go to a temp
// file in the same directory, are fsynced and then renamed over the target,
// so readers never observe a half-written document.
type FileStore struct {
	mu       sync.Mutex
	path     string
	attempts int
	logger   *logger.Logger
	backup   bool
}

// FileStoreOption customizes a FileStore
type FileStoreOption func(*FileStore)

// WithAttempts sets the bounded number of attempts per load/save
func WithAttempts(n int) FileStoreOption {
	return func(f *FileStore) { f.attempts = n }
}

// WithLogger attaches a logger for retry and backup warnings
func WithLogger(l *logger.Logger) FileStoreOption {
	return func(f *FileStore) { f.logger = l }
}

// WithBackup toggles copying the previous snapshot to <path>.bak before a save
func WithBackup(enabled bool) FileStoreOption {
	return func(f *FileStore) { f.backup = enabled }
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	f := &FileStore{
		path:     path,
		attempts: 3,
		backup:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the snapshot location
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (f *FileStore) Load(ctx context.Context) (LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var data []byte
	missing := false
	err := retry.Do(ctx, func() error {
		b, err := os.ReadFile(f.path)
		if os.IsNotExist(err) {
			missing = true
			return nil
		}
		if err != nil {
			return classifyIOError("load", err)
		}
		data = b
		return nil
	}, f.retryConfig("load"))
	if err != nil {
		return LoadResult{}, persistenceError("load", err).WithContext("path", f.path)
	}

	if missing {
		return LoadResult{Snapshot: NewSnapshot()}, nil
	}

	snap, warnings, err := Decode(data)
	if err != nil {
		return LoadResult{}, riskerrors.NewPersistenceError("state", "decode", err).
			WithContext("path", f.path).WithRetryable(false)
	}

	return LoadResult{Snapshot: snap, Found: true, Warnings: warnings}, nil
}

// Save writes the snapshot atomically, retrying a bounded number of times
func (f *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return riskerrors.NewPersistenceError("state", "encode", err).WithRetryable(false)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return riskerrors.NewPersistenceError("state", "save", fmt.Errorf("failed to create state directory: %w", err)).
				WithContext("path", f.path)
		}
	}

	if f.backup {
		f.backupCurrent()
	}

	err = retry.Do(ctx, func() error {
		return classifyIOError("save", writeFileAtomic(f.path, data, 0600))
	}, f.retryConfig("save"))
	if err != nil {
		return persistenceError("save", err).WithContext("path", f.path)
	}

	return nil
}

func (f *FileStore) retryConfig(op string) retry.Config {
	cfg := retry.PersistenceConfig(f.attempts)
	cfg.RetryIf = riskerrors.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		f.logger.LogWarning("State "+op, "attempt %d failed (%v), retrying in %s", attempt, err, delay)
	}
	return cfg
}

// classifyIOError marks failures that another attempt cannot fix
func classifyIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsPermission(err) || errors.Is(err, syscall.EISDIR) || errors.Is(err, syscall.ENOTDIR) {
		return riskerrors.NewPersistenceError("state", op, err).WithRetryable(false)
	}
	return err
}

func persistenceError(op string, err error) *riskerrors.RiskError {
	var riskErr *riskerrors.RiskError
	if errors.As(err, &riskErr) {
		return riskErr
	}
	return riskerrors.NewPersistenceError("state", op, err)
}

// backupCurrent copies the existing snapshot to <path>.bak. Best effort.
func (f *FileStore) backupCurrent() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return
	}
	if err := writeFileAtomic(f.path+".bak", data, 0600); err != nil {
		f.logger.LogWarning("State Backup", "failed to create backup: %v", err)
	}
}

// writeFileAtomic writes data to path via temp file + fsync + rename and
// fsyncs the parent directory so the rename itself is durable.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
