package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"facilitymonitor/internal/dashboard"
	"facilitymonitor/internal/status"
)

const timeLayout = "2006-01-02 15:04:05"

var trendArrows = map[status.Direction]string{
	status.Up:     "↑",
	status.Down:   "↓",
	status.Stable: "→",
}

func render(w io.Writer, state dashboard.ViewState, statuses []dashboard.CategoryStatus, now time.Time) {
	last := "never"
	if !state.LastUpdate.IsZero() {
		last = state.LastUpdate.Format(timeLayout)
	}
	fmt.Fprintf(w, "\n== %s | every %s | last update %s | %s ==\n", state.View, state.Interval, last, now.Format(timeLayout))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cs := range statuses {
		conn := "online"
		if !cs.Online {
			conn = "offline"
		}
		header := fmt.Sprintf("%s\t%s\t%s", cs.Category, conn, cs.Level)
		if cs.Availability != "" && !cs.Availability.IsReal() {
			header += "\t(" + string(cs.Availability) + " data)"
		}
		fmt.Fprintln(tw, header)
		if cs.Err != nil {
			fmt.Fprintf(tw, "  last fetch failed: %v\n", cs.Err)
		}
		for _, m := range cs.Metrics {
			fmt.Fprintf(tw, "  %s\t%.2f %s\t%s\t%s\n", m.Label, m.Value, m.Unit, m.Level, trendArrows[m.Trend])
		}
		if !cs.CapturedAt.IsZero() {
			fmt.Fprintf(tw, "  captured\t%s\n", cs.CapturedAt.Format(timeLayout))
		}
	}
	tw.Flush()
}

func renderNotifications(w io.Writer, notes []dashboard.Notification) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "no notifications")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "%s  %s\n", n.Time.Format(timeLayout), n.Message)
	}
}
