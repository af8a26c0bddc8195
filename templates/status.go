// Package templates renders the HTML status page.
package templates

import (
	"net/url"
	"strconv"
	"time"

	"ogmp3/internal/models"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
)

//go:generate templ generate

// StatusData is everything the status page shows.
type StatusData struct {
	Now       time.Time
	Jobs      []*models.Job
	Artifacts []models.Artifact
	MaxAge    time.Duration
}

func progressLabel(percent int) string {
	return strconv.Itoa(percent) + "%"
}

func sizeLabel(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

func relTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

func downloadURL(name string) templ.SafeURL {
	return templ.URL("/download/" + url.PathEscape(name))
}
