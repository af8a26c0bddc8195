// Package jobs holds the in-memory table of conversions that are currently in
// flight. Entries live only as long as the request that created them.
package jobs

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ogmp3/internal/models"

	"github.com/google/uuid"
)

// IDPrefix starts every job id and therefore every artifact name.
const IDPrefix = "video_"

// Table maps job ids to their expected output.
type Table struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	now  func() time.Time
}

func NewTable() *Table {
	return &Table{
		jobs: make(map[string]*models.Job),
		now:  time.Now,
	}
}

// NewID returns video_<unix millis>_<32 hex>. The random part has a fixed length,
// so no id is ever a prefix of another one.
func NewID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", IDPrefix, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// OutputTemplate is the output path handed to the extraction tool; the tool
// substitutes %(ext)s.
func OutputTemplate(dir, id string) string {
	return filepath.Join(dir, id+".%(ext)s")
}

// Create registers a new queued job for url whose output lands in dir.
func (t *Table) Create(url, dir, ext string) *models.Job {
	now := t.now()
	id := NewID(now)
	job := &models.Job{
		ID:             id,
		URL:            url,
		OutputTemplate: OutputTemplate(dir, id),
		Extension:      normalizeExt(ext),
		Status:         models.StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	t.mu.Lock()
	t.jobs[id] = job
	t.mu.Unlock()

	clone := *job
	return &clone
}

// Get returns a copy of the job.
func (t *Table) Get(id string) (*models.Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	clone := *job
	return &clone, true
}

// Update applies fn to the stored job and stamps UpdatedAt.
func (t *Table) Update(id string, fn func(*models.Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = t.now()
	}
}

func (t *Table) Remove(id string) {
	t.mu.Lock()
	delete(t.jobs, id)
	t.mu.Unlock()
}

// Active returns copies of all jobs, oldest first.
func (t *Table) Active() []*models.Job {
	t.mu.RLock()
	jobs := make([]*models.Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		clone := *j
		jobs = append(jobs, &clone)
	}
	t.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "mp3"
	}
	return "." + ext
}
