package main

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogmp3/internal/config"
	"ogmp3/internal/testsupport"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"PORT", "OGMP3_AUDIO_FORMAT", "OGMP3_AUDIO_QUALITY", "OGMP3_ALLOWED_HOSTS",
		"OGMP3_CONVERT_TIMEOUT", "OGMP3_SWEEP_INTERVAL", "OGMP3_MAX_AGE",
		"OGMP3_DOWNLOAD_DELAY", "OGMP3_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	dir := filepath.Join(t.TempDir(), "downloads")
	t.Setenv("OGMP3_DOWNLOADS_DIR", dir)
	t.Setenv("OGMP3_YTDLP_BIN", testsupport.FakeYTDLP(t))
	t.Setenv("OGMP3_LOG_LEVEL", "error")
	t.Setenv("OGMP3_LOG_FORMAT", "text")
	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFilesCommandEmpty(t *testing.T) {
	setupEnv(t)

	out, err := runCommand(t, "files")
	require.NoError(t, err)
	assert.Contains(t, out, "No files stored")
}

func TestFilesCommandListsArtifacts(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video_1_a.mp3"), make([]byte, 2048), 0o644))

	out, err := runCommand(t, "files")
	require.NoError(t, err)
	assert.Contains(t, out, "video_1_a.mp3")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "from now")
}

func TestPurgeCommand(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp3"), []byte("y"), 0o644))

	out, err := runCommand(t, "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 file(s)")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPurgeCommandRefusesWhileLocked(t *testing.T) {
	dir := setupEnv(t)
	lock := flock.New(dir + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = runCommand(t, "purge")
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	setupEnv(t)
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	out, err := runCommand(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "yt-dlp version 2024.12.13")
	assert.Contains(t, out, "ffmpeg")
}

func TestCheckCommandMissingBinary(t *testing.T) {
	setupEnv(t)
	t.Setenv("OGMP3_YTDLP_BIN", filepath.Join(t.TempDir(), "absent"))

	out, err := runCommand(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp")
	assert.Contains(t, out, "missing")
}

func TestInvalidConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("OGMP3_AUDIO_FORMAT", "mkv")

	_, err := runCommand(t, "files")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio_format")
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServePurgesOnShutdown(t *testing.T) {
	dir := setupEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Port = freePort(t)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	artifact := filepath.Join(dir, "video_1_leftover.mp3")
	require.NoError(t, os.WriteFile(artifact, []byte("ID3"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) }()

	healthURL := "http://127.0.0.1:" + strconv.Itoa(cfg.Server.Port) + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}

	_, err = os.Stat(artifact)
	assert.True(t, os.IsNotExist(err))

	lock := flock.New(dir + ".lock")
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	_ = lock.Unlock()
}
