package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/younsl/ec2utils/internal/models"
)

// PrintPruneTable prints the versions selected for deletion and a summary
func PrintPruneTable(w io.Writer, result *models.PruneResult, startTime time.Time, duration time.Duration) {
	action := "DELETED"
	if result.DryRun {
		action = "WOULD DELETE"
	}

	if len(result.Deleted) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Key", "Version ID", "Last Modified", "Age", "Size", "Action"})
		for _, v := range result.Deleted {
			t.AppendRow(table.Row{
				v.Key,
				v.VersionID,
				v.LastModified.UTC().Format("2006-01-02 15:04:05"),
				humanize.Time(v.LastModified),
				humanize.Bytes(uint64(v.Size)),
				action,
			})
		}
		t.Render()
		fmt.Fprintln(w)
	}

	location := "s3://" + result.Bucket + "/" + result.Prefix
	if result.DryRun {
		fmt.Fprintf(w, "Dry run: would delete %d of %d versions in %s (%s), keeping %d\n",
			len(result.Deleted), len(result.Deleted)+len(result.Kept), location,
			humanize.Bytes(uint64(result.DeletedBytes())), len(result.Kept))
	} else {
		fmt.Fprintf(w, "Deleted %d of %d versions in %s (%s), kept %d\n",
			len(result.Deleted), len(result.Deleted)+len(result.Kept), location,
			humanize.Bytes(uint64(result.DeletedBytes())), len(result.Kept))
	}
	printTimestamp(w, "Prune completed", startTime, duration)
}
