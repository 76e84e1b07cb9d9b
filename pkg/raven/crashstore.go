// crashstore.go implements the on-disk crash queue: failures are written
// synchronously on the crash path and replayed once at the next start.

package raven

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	crashFilePrefix = "raven-"
	crashFileSuffix = ".stacktrace"
	crashFilePerm   = 0o600
	crashDirPerm    = 0o700

	// maxNameAttempts bounds the search for a free file name when several
	// crashes land in the same millisecond.
	maxNameAttempts = 1000
)

// DefaultCrashDir returns <user cache dir>/raven/crashes, falling back to the
// system temp dir when no cache dir is known.
func DefaultCrashDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "raven", "crashes")
}

// CrashStoreOption configures a CrashStore.
type CrashStoreOption func(*CrashStore)

// WithStoreLogger sets the logger for persistence and replay diagnostics.
func WithStoreLogger(logger *slog.Logger) CrashStoreOption {
	return func(s *CrashStore) {
		if logger != nil {
			s.logger = logger.With("component", "crash_store")
		}
	}
}

// WithStoreMetrics records persist and replay counts.
func WithStoreMetrics(m *Metrics) CrashStoreOption {
	return func(s *CrashStore) {
		s.metrics = m
	}
}

// WithStoreClock replaces the clock used to name crash files.
func WithStoreClock(now func() time.Time) CrashStoreOption {
	return func(s *CrashStore) {
		if now != nil {
			s.now = now
		}
	}
}

// CrashStore is the durable crash queue. It exclusively owns the files
// matching raven-<millis>.stacktrace in its directory.
//
// The store takes no locks: persisting happens on the crash path and
// draining happens during client construction, which do not overlap in
// normal use.
type CrashStore struct {
	dir     string
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewCrashStore creates a store rooted at dir. The directory is created
// lazily by Persist and Drain.
func NewCrashStore(dir string, opts ...CrashStoreOption) *CrashStore {
	s := &CrashStore{
		dir:    dir,
		logger: discardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the crash directory.
func (s *CrashStore) Dir() string { return s.dir }

// Persist writes f to a new crash file and returns its path. It never
// returns an error or panics: the caller is already on a terminating path,
// so failures are logged and the crash is dropped.
func (s *CrashStore) Persist(f *Failure) (path string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while persisting crash", "panic", r)
			s.metrics.persistFailed()
			path = ""
		}
	}()

	path, err := s.write(f)
	if err != nil {
		s.logger.Error("Failed to persist crash", "dir", s.dir, "error", err)
		s.metrics.persistFailed()
		return ""
	}
	s.logger.Info("Persisted crash", "path", path, "type", f.Type)
	s.metrics.crashPersisted()
	return path
}

func (s *CrashStore) write(f *Failure) (string, error) {
	if f == nil {
		return "", errors.New("nil failure")
	}
	data, err := msgpack.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode failure: %w", err)
	}
	if err := os.MkdirAll(s.dir, crashDirPerm); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".pending-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write crash: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync crash: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close crash: %w", err)
	}
	if err := os.Chmod(tmpName, crashFilePerm); err != nil {
		return "", fmt.Errorf("chmod crash: %w", err)
	}

	millis := s.now().UnixMilli()
	for range maxNameAttempts {
		path := filepath.Join(s.dir, crashFileName(millis))
		// Link fails if the name is taken, so two crashes in the same
		// millisecond never overwrite each other.
		err := os.Link(tmpName, path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			// Filesystems without hard links: rename into a name that is
			// still free.
			if _, statErr := os.Lstat(path); errors.Is(statErr, fs.ErrNotExist) {
				if renameErr := os.Rename(tmpName, path); renameErr == nil {
					return path, nil
				}
			}
			return "", fmt.Errorf("publish crash: %w", err)
		}
		millis++
	}
	return "", fmt.Errorf("no free crash file name after %d attempts", maxNameAttempts)
}

// Pending returns the paths of crash files waiting for replay, oldest first.
func (s *CrashStore) Pending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read crash directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isCrashFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	sort.Slice(paths, func(i, j int) bool {
		return crashMillis(paths[i]) < crashMillis(paths[j])
	})
	return paths, nil
}

// Load reads and decodes a single crash file.
func (s *CrashStore) Load(path string) (*Failure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crash %s: %w", path, err)
	}
	var f Failure
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode crash %s: %w", path, err)
	}
	return &f, nil
}

// Drain hands every pending crash to fn and then deletes every crash file,
// whatever fn did with it and whether or not the file could be decoded. Each
// crash therefore gets exactly one replay attempt. It returns how many
// failures were handed to fn.
func (s *CrashStore) Drain(fn func(*Failure)) int {
	paths, err := s.Pending()
	if err != nil {
		s.logger.Error("Failed to list crashes", "dir", s.dir, "error", err)
		return 0
	}
	if len(paths) == 0 {
		s.logger.Debug("No crashes to replay", "dir", s.dir)
		return 0
	}
	s.logger.Info("Replaying crashes", "count", len(paths))

	replayed := 0
	for _, path := range paths {
		f, err := s.Load(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable crash", "path", path, "error", err)
			continue
		}
		fn(f)
		replayed++
		s.metrics.crashReplayed()
	}

	// Re-list so files that appeared during replay are also removed.
	s.Purge()
	return replayed
}

// Purge deletes every crash file and returns how many were removed.
func (s *CrashStore) Purge() int {
	paths, err := s.Pending()
	if err != nil {
		s.logger.Error("Failed to list crashes for removal", "dir", s.dir, "error", err)
		return 0
	}
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			s.logger.Error("Failed to remove crash", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}

func crashFileName(millis int64) string {
	return crashFilePrefix + strconv.FormatInt(millis, 10) + crashFileSuffix
}

func isCrashFile(name string) bool {
	return strings.HasPrefix(name, crashFilePrefix) && strings.HasSuffix(name, crashFileSuffix)
}

// crashMillis extracts the numeric token of a crash file name, or -1.
func crashMillis(path string) int64 {
	name := filepath.Base(path)
	token := strings.TrimSuffix(strings.TrimPrefix(name, crashFilePrefix), crashFileSuffix)
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
