package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// printTimestamp prints when an operation finished and how long it took
func printTimestamp(w io.Writer, verb string, startTime time.Time, duration time.Duration) {
	timeStr := startTime.Format("2006-01-02 15:04:05")
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	fmt.Fprintf(w, "%s at %s (took %s)\n", verb, timeStr, durationStr)
}

// newTable returns a kubectl style table without borders or separators
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleDefault
	style.Options = table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateFooter:  false,
		SeparateHeader:  false,
		SeparateRows:    false,
	}
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	t.SetStyle(style)
	return t
}

// orNone renders empty values as "<none>"
func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
