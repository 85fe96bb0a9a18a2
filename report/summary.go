// Package report renders the end-of-run summary to the diagnostic stream.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/riadafridishibly/parfind/scanner"
)

// Summary is everything the end-of-run report shows.
type Summary struct {
	Stats   scanner.StatsSnapshot
	Elapsed time.Duration

	// ACLCheck adds the ACL line.
	ACLCheck bool

	// Config, when set, is printed as a CONFIG block before the statistics.
	Config string
}

// EntriesPerSecond is the scan rate over the whole run.
func (s Summary) EntriesPerSecond() uint64 {
	return perSecond(s.Stats.Entries(), s.Elapsed)
}

// BytesPerSecond is the copy throughput over the whole run.
func (s Summary) BytesPerSecond() uint64 {
	return perSecond(s.Stats.BytesCopied, s.Elapsed)
}

func perSecond(n uint64, d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(float64(n) / d.Seconds())
}

// Write renders s to w. Colors are applied only when useColor is set.
func Write(w io.Writer, s Summary, useColor bool) error {
	header := color.New(color.Bold)
	warn := color.New(color.FgYellow)
	if useColor {
		header.EnableColor()
		warn.EnableColor()
	} else {
		header.DisableColor()
		warn.DisableColor()
	}

	var b strings.Builder
	st := s.Stats

	if s.Config != "" {
		b.WriteString(header.Sprint("CONFIG:") + "\n")
		b.WriteString(s.Config)
	}

	b.WriteString(header.Sprint("STATISTICS:") + "\n")

	fmt.Fprintf(&b, "  * entries found: files: %s; dirs: %s; filter matches: %s\n",
		humanize.Comma(int64(st.FilesFound)),
		humanize.Comma(int64(st.DirsFound)),
		humanize.Comma(int64(st.FilterMatches)))

	errs := humanize.Comma(int64(st.Errors))
	if st.Errors > 0 {
		errs = warn.Sprint(errs)
	}
	fmt.Fprintf(&b, "  * special cases: unknown type: %s; errors: %s\n",
		humanize.Comma(int64(st.UnknownFound)), errs)

	if st.StatCalls > 0 {
		fmt.Fprintf(&b, "  * stat calls:    %s\n", humanize.Comma(int64(st.StatCalls)))
	}

	if s.ACLCheck {
		fmt.Fprintf(&b, "  * ACLs found:    %s access; %s default\n",
			humanize.Comma(int64(st.AccessACLs)), humanize.Comma(int64(st.DefaultACLs)))
	}

	fmt.Fprintf(&b, "  * scan speed:    %s entries/s; runtime: %.3fs\n",
		humanize.Comma(int64(s.EntriesPerSecond())), s.Elapsed.Seconds())

	if st.BytesCopied > 0 {
		fmt.Fprintf(&b, "  * copy speed:    %s/s; total: %s; skipped files: %s\n",
			humanize.IBytes(s.BytesPerSecond()),
			humanize.IBytes(st.BytesCopied),
			humanize.Comma(int64(st.FilesNotCopied)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
