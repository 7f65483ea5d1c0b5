package commands

import (
	"fmt"
	"os"

	"infopoint-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subjectCmd)
}

var subjectCmd = &cobra.Command{
	Use:   "subject <name>",
	Short: "Prints the grade history of the closest matching subject.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snapshot := fetchSnapshot(cmd.Context())

		target := textutil.NormalizeName(args[0])
		best := ""
		bestSim := 0.0
		for _, name := range snapshot.SubjectOrder {
			sim := matchr.JaroWinkler(textutil.NormalizeName(name), target, false)
			if sim > bestSim {
				best = name
				bestSim = sim
			}
		}
		if best == "" || bestSim < 0.6 {
			fmt.Fprintf(os.Stderr, "no subject matching %q\n", args[0])
			os.Exit(1)
		}

		subject := snapshot.Subjects[best]
		fmt.Printf("%s (average %s)\n", subject.Name, formatAverage(subject.Average))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Grade", "Comment"})
		for _, record := range subject.History {
			date := "-"
			if record.HasDate() {
				date = record.Date.Format("02.01.2006")
			}
			t.AppendRow(table.Row{date, record.Value, record.Comment})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
