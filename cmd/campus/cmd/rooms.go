package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var roomsDate string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Show free rooms for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		date := time.Now()
		if roomsDate != "" {
			date, err = time.ParseInLocation("2006-01-02", roomsDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
			}
		}

		rooms, err := a.client.GetFreeRooms(ctx, date)
		if err != nil {
			return err
		}
		return render(rooms)
	},
}

func init() {
	roomsCmd.Flags().StringVar(&roomsDate, "date", "", "day to query (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(roomsCmd)
}
