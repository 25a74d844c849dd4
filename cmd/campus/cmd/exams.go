package cmd

import (
	"github.com/spf13/cobra"
)

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Show registered exams",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		exams, err := a.client.GetExams(ctx)
		if err != nil {
			return err
		}
		return render(exams)
	},
}

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Show the grade list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		grades, err := a.client.GetGrades(ctx)
		if err != nil {
			return err
		}
		return render(grades)
	},
}

func init() {
	rootCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(gradesCmd)
}
