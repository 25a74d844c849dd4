package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/library"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Library seat booking",
}

var librarySeatsCmd = &cobra.Command{
	Use:   "seats",
	Short: "Show bookable rooms and seats per time slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		items, err := a.library.AvailableSlots(ctx)
		if err != nil {
			return err
		}

		type slotView struct {
			From  time.Time            `json:"from" yaml:"from"`
			To    time.Time            `json:"to" yaml:"to"`
			Rooms []library.RoomOption `json:"rooms" yaml:"rooms"`
		}
		views := make([]slotView, 0, len(items))
		for _, item := range items {
			views = append(views, slotView{
				From:  item.From,
				To:    item.To,
				Rooms: library.AvailableRooms(item),
			})
		}
		return render(views)
	},
}

var libraryReservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "Show current reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		reservations, err := a.library.Reservations(ctx)
		if err != nil {
			return err
		}
		return render(reservations)
	},
}

var bookRoom string
var bookSeat string
var bookFrom string
var bookTo string

var libraryBookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book a seat",
	Long: `Book a library seat.

The room is given as the upstream resource id (see "campus library seats");
--from and --to are local times of today, e.g. --from 10:00 --to 12:00.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		slot, err := parseSlot(bookFrom, bookTo)
		if err != nil {
			return err
		}

		id, err := a.library.BookSeat(ctx, bookRoom, slot, bookSeat)
		if err != nil {
			return err
		}
		fmt.Printf("booked, reservation id %s\n", id)
		return nil
	},
}

var libraryCancelCmd = &cobra.Command{
	Use:   "cancel <reservation-id>",
	Short: "Cancel a reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.library.CancelReservation(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("cancelled")
		return nil
	},
}

// parseSlot builds a today-based time slot from two clock times.
func parseSlot(from, to string) (library.TimeSlot, error) {
	now := time.Now()
	parse := func(clock string) (time.Time, error) {
		t, err := time.ParseInLocation(library.ClockFormat, clock, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM): %w", clock, err)
		}
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}

	fromTime, err := parse(from)
	if err != nil {
		return library.TimeSlot{}, err
	}
	toTime, err := parse(to)
	if err != nil {
		return library.TimeSlot{}, err
	}
	if !toTime.After(fromTime) {
		return library.TimeSlot{}, fmt.Errorf("--to must be after --from")
	}
	return library.TimeSlot{From: fromTime, To: toTime}, nil
}

func init() {
	libraryBookCmd.Flags().StringVar(&bookRoom, "room", "", "resource id of the room")
	libraryBookCmd.Flags().StringVar(&bookSeat, "seat", "", "seat id")
	libraryBookCmd.Flags().StringVar(&bookFrom, "from", "", "start time (HH:MM)")
	libraryBookCmd.Flags().StringVar(&bookTo, "to", "", "end time (HH:MM)")
	_ = libraryBookCmd.MarkFlagRequired("room")
	_ = libraryBookCmd.MarkFlagRequired("seat")
	_ = libraryBookCmd.MarkFlagRequired("from")
	_ = libraryBookCmd.MarkFlagRequired("to")

	libraryCmd.AddCommand(librarySeatsCmd)
	libraryCmd.AddCommand(libraryReservationsCmd)
	libraryCmd.AddCommand(libraryBookCmd)
	libraryCmd.AddCommand(libraryCancelCmd)
	rootCmd.AddCommand(libraryCmd)
}
