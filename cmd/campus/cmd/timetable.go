package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var timetableDate string
var timetableDetailed bool

var timetableCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Show the timetable for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		date := time.Now()
		if timetableDate != "" {
			date, err = time.ParseInLocation("2006-01-02", timetableDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
			}
		}

		timetable, err := a.client.GetTimetable(ctx, date, timetableDetailed)
		if err != nil {
			return err
		}
		return render(timetable)
	},
}

func init() {
	timetableCmd.Flags().StringVar(&timetableDate, "date", "", "day to query (YYYY-MM-DD, default today)")
	timetableCmd.Flags().BoolVar(&timetableDetailed, "detailed", false, "include course descriptions")
	rootCmd.AddCommand(timetableCmd)
}
