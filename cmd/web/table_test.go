package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ogmp3/internal/deps"
	"ogmp3/internal/models"
)

func TestArtifactTable(t *testing.T) {
	now := time.Now()
	out := artifactTable([]models.Artifact{
		{Name: "video_1_a.mp3", Size: 1000, Created: now.Add(-2 * time.Minute)},
		{Name: "video_2_b.mp3", Size: 2000, Created: now.Add(-time.Minute)},
	}, now, 10*time.Minute)

	assert.Contains(t, out, "video_1_a.mp3")
	assert.Contains(t, out, "2 minutes ago")
	assert.Contains(t, out, "8 minutes from now")
	upper := strings.ToUpper(out)
	assert.Contains(t, upper, "2 FILE(S)")
	assert.Contains(t, upper, "3.0 KB")
}

func TestArtifactTableWithoutExpiry(t *testing.T) {
	now := time.Now()
	out := artifactTable([]models.Artifact{{Name: "a.mp3", Size: 1, Created: now}}, now, 0)

	assert.NotContains(t, out, "from now")
}

func TestDependencyTable(t *testing.T) {
	out := dependencyTable([]deps.Status{
		{Name: "yt-dlp", Available: true, Path: "/usr/bin/yt-dlp"},
		{Name: "ffprobe", Optional: true, Detail: `binary "ffprobe" not found`},
	})

	assert.Contains(t, out, "/usr/bin/yt-dlp")
	assert.Contains(t, out, "missing (optional)")
}
