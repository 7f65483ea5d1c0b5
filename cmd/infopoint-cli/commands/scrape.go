package commands

import (
	"fmt"
	"os"

	scraper "infopoint-backend/lib/scrapers/infopoint"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *avg)
}

func formatLatest(latest *scraper.GradeRecord) string {
	if latest == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", latest.Value, latest.Date.Format("02.01.2006"))
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Logs in, scrapes the dashboard and prints subjects and absences.",
	Run: func(cmd *cobra.Command, args []string) {
		snapshot := fetchSnapshot(cmd.Context())

		if !snapshot.LastUpdated.IsZero() {
			fmt.Printf("portal last updated: %s\n", snapshot.LastUpdated.Format("02.01.2006 15:04"))
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Subject", "Grades", "Average", "Latest"})
		for _, name := range snapshot.SubjectOrder {
			subject := snapshot.Subjects[name]
			t.AppendRow(table.Row{
				subject.Name,
				len(subject.History),
				formatAverage(subject.Average),
				formatLatest(subject.Latest),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		a := table.NewWriter()
		a.SetOutputMirror(os.Stdout)
		a.AppendHeader(table.Row{"Absences", "Count"})
		a.AppendRow(table.Row{"Days", snapshot.Absences.TotalDays})
		a.AppendRow(table.Row{"Unexcused days", snapshot.Absences.UnexcusedDays})
		a.AppendRow(table.Row{"Hours", snapshot.Absences.TotalHours})
		a.AppendRow(table.Row{"Unexcused hours", snapshot.Absences.UnexcusedHours})
		a.SetStyle(table.StyleRounded)
		a.Render()
	},
}
