package formats

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	filenameLetters = 8
	filenameExt     = ".yaml"
	lockFilename    = ".uploads.lock"
	maxNameAttempts = 64
	lockRetry       = 25 * time.Millisecond
)

// ErrNotFound is returned when a format file does not exist.
var ErrNotFound = errors.New("format file not found")

// FileStore keeps format files in one directory under random names. Name
// generation is serialized within the process by a mutex and across
// processes by a lock file.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	lock   *flock.Flock
	logger *zap.Logger
}

// NewFileStore opens the uploads directory, creating it when missing.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFilename)),
		logger: logger,
	}, nil
}

// Dir returns the uploads directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes data under a new unique name and returns that name.
func (s *FileStore) Save(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("failed to lock uploads directory: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("failed to lock uploads directory %s", s.dir)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("Failed to unlock uploads directory", zap.Error(err))
		}
	}()

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := randomFilename()
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", name, err)
		}
		s.logger.Debug("Saved format file", zap.String("filename", name), zap.Int("bytes", len(data)))
		return name, nil
	}
	return "", fmt.Errorf("no free filename after %d attempts", maxNameAttempts)
}

// Read returns the content of a stored file.
func (s *FileStore) Read(filename string) ([]byte, error) {
	path, err := s.path(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *FileStore) Remove(filename string) error {
	path, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filename, err)
	}
	return nil
}

// path resolves a stored filename, refusing anything outside the directory.
func (s *FileStore) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == lockFilename {
		return "", fmt.Errorf("invalid format filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}

// randomFilename returns eight random lower-case letters plus ".yaml".
func randomFilename() string {
	return filenameFromUUID(uuid.New()) + filenameExt
}

// uuidRandomBytes skips byte 6 (version) and byte 8 (variant), which are
// partly fixed in a v4 UUID.
var uuidRandomBytes = [filenameLetters]int{0, 1, 2, 3, 4, 5, 9, 10}

func filenameFromUUID(id uuid.UUID) string {
	letters := make([]byte, filenameLetters)
	for i, b := range uuidRandomBytes {
		letters[i] = 'a' + id[b]%26
	}
	return string(letters)
}
