package report

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// BenchResult is one walker's run over the benchmark tree.
type BenchResult struct {
	Name    string
	Workers int
	Dirs    uint64
	Files   uint64
	Errors  uint64
	Elapsed time.Duration
}

func (r BenchResult) Entries() uint64 {
	return r.Dirs + r.Files
}

// WriteBench renders results as a table, one row per walker.
func WriteBench(w io.Writer, results []BenchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Row = text.Colors{text.Reset}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.AppendHeader(table.Row{"Walker", "Workers", "Dirs", "Files", "Errors", "Runtime", "Entries/s"})

	for _, r := range results {
		t.AppendRow(table.Row{
			r.Name,
			r.Workers,
			humanize.Comma(int64(r.Dirs)),
			humanize.Comma(int64(r.Files)),
			humanize.Comma(int64(r.Errors)),
			r.Elapsed.Round(time.Millisecond).String(),
			humanize.Comma(int64(perSecond(r.Entries(), r.Elapsed))),
		})
	}

	t.Render()
}
