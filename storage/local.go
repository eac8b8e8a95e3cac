package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"EchoFM/logger"

	"github.com/fsnotify/fsnotify"
)

// AudioFile is an open audio file plus its size.
type AudioFile interface {
	io.ReadSeekCloser
}

// LocalStore serves the original audio files out of a local directory.
// Files are addressed by their storage key, assigned at upload time.
type LocalStore struct {
	dir     string
	watcher *fsnotify.Watcher
}

// NewLocalStore creates the store, creating the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create songs directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Open opens the audio file behind a storage key and returns its size.
// A missing file reports os.ErrNotExist via errors.Is.
func (s *LocalStore) Open(key string) (AudioFile, int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, os.ErrNotExist
	}

	return f, info.Size(), nil
}

// Save writes an uploaded audio file under the storage key.
func (s *LocalStore) Save(key string, r io.Reader) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
	return n, nil
}

// Remove deletes the audio file behind a storage key.
func (s *LocalStore) Remove(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// resolve maps a storage key to a path inside the songs dir, rejecting keys
// that would escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// Watch starts an fsnotify watcher on the songs directory and logs files
// appearing or vanishing. Purely for operability: a track whose file is
// missing returns 404 at stream time, and the log explains why.
func (s *LocalStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				switch {
				case event.Has(fsnotify.Create):
					logger.Info("audio file appeared", logger.String("file", filepath.Base(event.Name)))
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					logger.Warn("audio file vanished", logger.String("file", filepath.Base(event.Name)))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("songs directory watcher error", logger.ErrorField(err))
			}
		}
	}()

	return nil
}

// Close stops the watcher if one is running.
func (s *LocalStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
