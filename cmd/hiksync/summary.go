package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hiksync/internal/mediasync"
	"hiksync/internal/syncrun"
)

func renderSummary(out io.Writer, result syncrun.Result) string {
	headers := []string{"Camera", "Videos new", "Videos existing", "Videos failed", "Images new", "Images existing", "Images failed"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(result.Cameras)+1)
	for _, cam := range result.Cameras {
		label := cam.Camera.Tag
		if cam.Err != nil {
			label += " (error)"
		}
		rows = append(rows, statsRow(label, cam.Stats))
	}
	if len(result.Cameras) > 1 {
		rows = append(rows, statsRow("Total", result.Totals()))
	}

	var b strings.Builder
	if len(rows) > 0 {
		b.WriteString(renderTable(out, headers, rows, aligns))
		b.WriteString("\n")
	}
	combined := result.Totals().Combined()
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	fmt.Fprintf(&b, "Segments processed: %d\n", combined.Total)
	if combined.TimedOut > 0 {
		fmt.Fprintf(&b, "Timed out: %d\n", combined.TimedOut)
	}
	fmt.Fprintf(&b, "Retention: %d files deleted (%s freed)\n",
		result.Retention.Deleted, humanize.Bytes(uint64(result.Retention.FreedBytes)))
	if pct, ok := result.Efficiency(); ok {
		fmt.Fprintf(&b, "Efficiency: %.1f%% already synced\n", pct)
	}
	fmt.Fprintf(&b, "Duration: %s", result.Duration().Round(time.Millisecond))
	return b.String()
}

func statsRow(label string, stats mediasync.CameraStats) []string {
	return []string{
		label,
		strconv.Itoa(stats.Videos.New),
		strconv.Itoa(stats.Videos.Existing),
		strconv.Itoa(stats.Videos.Failed),
		strconv.Itoa(stats.Images.New),
		strconv.Itoa(stats.Images.Existing),
		strconv.Itoa(stats.Images.Failed),
	}
}
