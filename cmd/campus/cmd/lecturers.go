package cmd

import (
	"github.com/spf13/cobra"
)

var lecturersPersonal bool
var lecturersFrom string
var lecturersTo string

var lecturersCmd = &cobra.Command{
	Use:   "lecturers",
	Short: "Show lecturers",
	Long: `Show lecturers by name range, or with --personal the lecturers of
the user's own courses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if lecturersPersonal {
			lecturers, err := a.client.GetPersonalLecturers(ctx)
			if err != nil {
				return err
			}
			return render(lecturers)
		}

		lecturers, err := a.client.GetLecturers(ctx, lecturersFrom, lecturersTo)
		if err != nil {
			return err
		}
		return render(lecturers)
	},
}

func init() {
	lecturersCmd.Flags().BoolVar(&lecturersPersonal, "personal", false, "lecturers of the user's own courses")
	lecturersCmd.Flags().StringVar(&lecturersFrom, "from", "a", "start of the name range")
	lecturersCmd.Flags().StringVar(&lecturersTo, "to", "z", "end of the name range")
	rootCmd.AddCommand(lecturersCmd)
}
