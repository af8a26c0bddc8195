package jobs

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ogmp3/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDSameMillisecondIsUnique(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := NewID(now)
	b := NewID(now)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "video_1700000000000_"))
	assert.Len(t, a, len(b))
	assert.False(t, strings.HasPrefix(a, b))
	assert.False(t, strings.HasPrefix(b, a))
}

func TestCreate(t *testing.T) {
	table := NewTable()
	job := table.Create("https://youtu.be/abc", "/tmp/downloads", "MP3")

	assert.Equal(t, models.StatusQueued, job.Status)
	assert.Equal(t, ".mp3", job.Extension)
	assert.Equal(t, filepath.Join("/tmp/downloads", job.ID+".%(ext)s"), job.OutputTemplate)

	stored, ok := table.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.URL, stored.URL)
}

func TestGetReturnsCopy(t *testing.T) {
	table := NewTable()
	job := table.Create("https://youtu.be/abc", "d", "")

	got, ok := table.Get(job.ID)
	require.True(t, ok)
	got.Status = models.StatusFailed

	again, _ := table.Get(job.ID)
	assert.Equal(t, models.StatusQueued, again.Status)
}

func TestUpdateAndRemove(t *testing.T) {
	table := NewTable()
	job := table.Create("https://youtu.be/abc", "d", "mp3")

	table.Update(job.ID, func(j *models.Job) {
		j.Status = models.StatusProcessing
		j.Progress = 40
	})
	got, _ := table.Get(job.ID)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)

	table.Remove(job.ID)
	_, ok := table.Get(job.ID)
	assert.False(t, ok)

	// updating a removed job is a no-op
	table.Update(job.ID, func(j *models.Job) { j.Progress = 99 })
	assert.Equal(t, 0, table.Len())
}

func TestConcurrentCreate(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Create("https://youtu.be/abc", "d", "mp3")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, table.Len())
	assert.Len(t, table.Active(), 50)
}
