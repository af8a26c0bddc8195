package main

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ogmp3/internal/deps"
	"ogmp3/internal/models"
)

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// artifactTable lists stored files with their size, age and the time the
// sweeper will remove them. A zero maxAge leaves the expiry column blank.
func artifactTable(artifacts []models.Artifact, now time.Time, maxAge time.Duration) string {
	tw := newTable(table.Row{"File", "Size", "Created", "Expires"})
	var total int64
	for _, a := range artifacts {
		expires := "-"
		if maxAge > 0 {
			expires = humanize.RelTime(a.Created.Add(maxAge), now, "ago", "from now")
		}
		tw.AppendRow(table.Row{
			a.Name,
			humanize.Bytes(uint64(max(a.Size, 0))),
			humanize.RelTime(a.Created, now, "ago", "from now"),
			expires,
		})
		total += max(a.Size, 0)
	}
	tw.AppendFooter(table.Row{humanize.Comma(int64(len(artifacts))) + " file(s)", humanize.Bytes(uint64(total)), "", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// dependencyTable shows one row per required binary.
func dependencyTable(statuses []deps.Status) string {
	tw := newTable(table.Row{"Dependency", "Status", "Detail"})
	for _, s := range statuses {
		state, detail := "ok", s.Path
		if !s.Available {
			state, detail = "missing", s.Detail
			if s.Optional {
				state = "missing (optional)"
			}
		}
		tw.AppendRow(table.Row{s.Name, state, detail})
	}
	return tw.Render()
}
