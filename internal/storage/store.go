// Package storage keeps converted artifacts in a single directory. The directory
// listing is the only index; nothing is cached between calls.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ogmp3/internal/apperr"
	"ogmp3/internal/models"

	"github.com/gofrs/flock"
)

// Store is a directory-backed artifact store.
type Store struct {
	dir    string
	logger *slog.Logger
	lock   *flock.Flock
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	dir = filepath.Clean(dir)
	return &Store{
		dir:    dir,
		logger: logger,
		lock:   flock.New(dir + ".lock"),
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureExists creates the store directory if it is absent.
func (s *Store) EnsureExists() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperr.Wrap(apperr.ErrFilesystem, "create downloads dir", s.dir, err)
	}
	return nil
}

// Lock takes the instance lock that sits next to the store directory. A second
// server pointed at the same directory fails here instead of sweeping files it
// did not create.
func (s *Store) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.dir), 0o755); err != nil {
		return apperr.Wrap(apperr.ErrFilesystem, "create lock dir", filepath.Dir(s.dir), err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return apperr.Wrap(apperr.ErrFilesystem, "acquire lock", s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("downloads dir %s is in use by another instance", s.dir)
	}
	return nil
}

// Unlock releases the instance lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// List returns every regular file in the store sorted by name. A missing
// directory yields an empty slice.
func (s *Store) List() ([]models.Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Artifact{}, nil
		}
		return nil, apperr.Wrap(apperr.ErrFilesystem, "read downloads dir", s.dir, err)
	}

	artifacts := make([]models.Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between readdir and stat
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		artifacts = append(artifacts, models.Artifact{
			Name:    entry.Name(),
			Size:    info.Size(),
			Created: info.ModTime(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// FindByPrefix returns the first artifact whose name starts with prefix and ends
// with ext.
func (s *Store) FindByPrefix(prefix, ext string) (models.Artifact, error) {
	artifacts, err := s.List()
	if err != nil {
		return models.Artifact{}, err
	}
	for _, a := range artifacts {
		if strings.HasPrefix(a.Name, prefix) && strings.HasSuffix(a.Name, ext) {
			return a, nil
		}
	}
	return models.Artifact{}, apperr.Wrap(apperr.ErrArtifactNotFound, "find", prefix+"*"+ext, nil)
}

// Open opens an artifact for streaming. The caller closes the file.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apperr.Wrap(apperr.ErrArtifactNotFound, "open", name, nil)
		}
		return nil, nil, apperr.Wrap(apperr.ErrFilesystem, "open", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, apperr.Wrap(apperr.ErrFilesystem, "stat", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, apperr.Wrap(apperr.ErrArtifactNotFound, "open", name, nil)
	}
	return f, info, nil
}

// DeleteIfExists removes an artifact. A file that is already gone is not an
// error; the bool reports whether this call removed it.
func (s *Store) DeleteIfExists(name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.ErrFilesystem, "delete", name, err)
	}
	return true, nil
}

// DeleteOlderThan removes artifacts whose modification time is more than maxAge
// before now and returns their names. Failures are logged and skipped.
func (s *Store) DeleteOlderThan(maxAge time.Duration, now time.Time) []string {
	artifacts, err := s.List()
	if err != nil {
		s.logger.Error("cleanup listing failed", "dir", s.dir, "error", err)
		return nil
	}

	var removed []string
	for _, a := range artifacts {
		if now.Sub(a.Created) <= maxAge {
			continue
		}
		ok, err := s.DeleteIfExists(a.Name)
		if err != nil {
			s.logger.Error("cleanup delete failed", "file", a.Name, "error", err)
			continue
		}
		if ok {
			removed = append(removed, a.Name)
		}
	}
	return removed
}

// DeleteByPrefix removes every artifact whose name starts with prefix and
// returns their names.
func (s *Store) DeleteByPrefix(prefix string) []string {
	if prefix == "" {
		return nil
	}
	artifacts, err := s.List()
	if err != nil {
		s.logger.Error("prefix listing failed", "dir", s.dir, "error", err)
		return nil
	}

	var removed []string
	for _, a := range artifacts {
		if !strings.HasPrefix(a.Name, prefix) {
			continue
		}
		ok, err := s.DeleteIfExists(a.Name)
		if err != nil {
			s.logger.Error("prefix delete failed", "file", a.Name, "error", err)
			continue
		}
		if ok {
			removed = append(removed, a.Name)
		}
	}
	return removed
}

// Purge removes every artifact and returns their names.
func (s *Store) Purge() []string {
	artifacts, err := s.List()
	if err != nil {
		s.logger.Error("purge listing failed", "dir", s.dir, "error", err)
		return nil
	}

	var removed []string
	for _, a := range artifacts {
		ok, err := s.DeleteIfExists(a.Name)
		if err != nil {
			s.logger.Error("purge delete failed", "file", a.Name, "error", err)
			continue
		}
		if ok {
			removed = append(removed, a.Name)
		}
	}
	return removed
}

// path resolves name inside the store, refusing anything that is not a plain
// file name.
func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", apperr.Wrap(apperr.ErrArtifactNotFound, "resolve", name, nil)
	}
	return filepath.Join(s.dir, name), nil
}
