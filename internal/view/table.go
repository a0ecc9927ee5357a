// Package view renders store projections and job summaries for the CLI.
package view

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"batchup/internal/model"
)

// RenderRows writes the current projection as a table, in projection order.
func RenderRows(w io.Writer, rows []*model.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"NAME", "FOLDER", "SIZE", "MODIFIED", "STATUS", "PROGRESS", "REMOTE", "ERROR"})

	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Name,
			r.Folder,
			humanize.Bytes(uint64(r.Size)),
			r.ModTime.Format("2006-01-02 15:04"),
			string(r.Status),
			fmt.Sprintf("%3.0f%%", r.Progress),
			r.RemotePath,
			r.ErrMsg,
		})
	}

	t.Render()
}

// RenderSummary writes one finished job's counters.
func RenderSummary(w io.Writer, s model.JobSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"kind", string(s.Kind)})
	t.AppendRow(table.Row{"job", s.JobID})
	t.AppendRow(table.Row{"outcome", string(s.Outcome)})
	t.AppendRow(table.Row{"items", s.TotalItems})
	t.AppendRow(table.Row{"completed", s.Completed})
	t.AppendRow(table.Row{"skipped", s.Skipped})
	t.AppendRow(table.Row{"failed", s.Failed})
	t.AppendRow(table.Row{"bytes", humanize.Bytes(uint64(s.BytesDone))})
	t.AppendRow(table.Row{"duration", s.Duration().Round(time.Millisecond).String()})
	if s.ErrMsg != "" {
		t.AppendRow(table.Row{"error", s.ErrMsg})
	}

	t.Render()
}

// RenderHistory writes recent job records, newest first.
func RenderHistory(w io.Writer, records []model.JobRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"WHEN", "KIND", "OUTCOME", "ITEMS", "OK", "SKIP", "FAIL", "BYTES", "DURATION"})

	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.FinishedAt.Format("2006-01-02 15:04:05"),
			string(rec.Kind),
			string(rec.Outcome),
			rec.TotalItems,
			rec.Completed,
			rec.Skipped,
			rec.Failed,
			humanize.Bytes(uint64(rec.BytesDone)),
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
		})
	}

	t.Render()
}
