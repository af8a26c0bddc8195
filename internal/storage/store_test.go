package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ogmp3/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "downloads"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeArtifact(t *testing.T, s *Store, name string, modTime time.Time) {
	t.Helper()
	require.NoError(t, s.EnsureExists())
	path := filepath.Join(s.Dir(), name)
	require.NoError(t, os.WriteFile(path, []byte("ID3 fake audio"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestEnsureExistsIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnsureExists())
	require.NoError(t, s.EnsureExists())

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := newTestStore(t)

	artifacts, err := s.List()
	require.NoError(t, err)
	assert.NotNil(t, artifacts)
	assert.Empty(t, artifacts)
}

func TestListSkipsDirectories(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeArtifact(t, s, "b.mp3", now)
	writeArtifact(t, s, "a.mp3", now)
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "nested"), 0o755))

	artifacts, err := s.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "a.mp3", artifacts[0].Name)
	assert.Equal(t, "b.mp3", artifacts[1].Name)
	assert.Equal(t, int64(len("ID3 fake audio")), artifacts[0].Size)
}

func TestFindByPrefix(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeArtifact(t, s, "video_1_aaaa.webm", now)
	writeArtifact(t, s, "video_1_aaaa.mp3", now)
	writeArtifact(t, s, "video_1_bbbb.mp3", now)

	a, err := s.FindByPrefix("video_1_aaaa", ".mp3")
	require.NoError(t, err)
	assert.Equal(t, "video_1_aaaa.mp3", a.Name)

	_, err = s.FindByPrefix("video_2", ".mp3")
	assert.True(t, errors.Is(err, apperr.ErrArtifactNotFound))
}

func TestFindByPrefixMissingDir(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindByPrefix("video_1", ".mp3")
	assert.True(t, errors.Is(err, apperr.ErrArtifactNotFound))
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)
	writeArtifact(t, s, "song.mp3", time.Now())

	f, info, err := s.Open("song.mp3")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "song.mp3", info.Name())

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake audio", string(body))
}

func TestOpenRejectsMissingAndTraversal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureExists())
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(s.Dir()), "secret.txt"), []byte("x"), 0o644))

	for _, name := range []string{"missing.mp3", "../secret.txt", "", "..", "a/b.mp3"} {
		_, _, err := s.Open(name)
		assert.Truef(t, errors.Is(err, apperr.ErrArtifactNotFound), "name %q: %v", name, err)
	}
}

func TestDeleteIfExistsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	writeArtifact(t, s, "song.mp3", time.Now())

	removed, err := s.DeleteIfExists("song.mp3")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteIfExists("song.mp3")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = os.Stat(filepath.Join(s.Dir(), "song.mp3"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDeleteOlderThanBoundary(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	maxAge := 10 * time.Minute
	writeArtifact(t, s, "old.mp3", now.Add(-maxAge-time.Second))
	writeArtifact(t, s, "young.mp3", now.Add(-maxAge+time.Second))

	removed := s.DeleteOlderThan(maxAge, now)
	assert.Equal(t, []string{"old.mp3"}, removed)

	artifacts, err := s.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "young.mp3", artifacts[0].Name)
}

func TestPurge(t *testing.T) {
	s := newTestStore(t)
	writeArtifact(t, s, "a.mp3", time.Now())
	writeArtifact(t, s, "b.mp3", time.Now())

	removed := s.Purge()
	assert.ElementsMatch(t, []string{"a.mp3", "b.mp3"}, removed)

	artifacts, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestDeleteByPrefix(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeArtifact(t, s, "video_1_a.webm.part", now)
	writeArtifact(t, s, "video_1_a.mp3", now)
	writeArtifact(t, s, "video_2_b.mp3", now)

	assert.ElementsMatch(t, []string{"video_1_a.webm.part", "video_1_a.mp3"}, s.DeleteByPrefix("video_1_a"))
	assert.Empty(t, s.DeleteByPrefix(""))

	artifacts, err := s.List()
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "video_2_b.mp3", artifacts[0].Name)
}

func TestPurgeMissingDir(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Purge())
}

func TestLockExcludesSecondInstance(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	first := NewStore(dir, nil)
	second := NewStore(dir, nil)

	require.NoError(t, first.Lock())
	t.Cleanup(func() { _ = first.Unlock() })

	assert.Error(t, second.Lock())

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}
