package cmd

import (
	"github.com/spf13/cobra"
)

var personalCmd = &cobra.Command{
	Use:   "personal",
	Short: "Show personal data, faculty and SPO version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		data, err := a.client.GetPersonalData(ctx)
		if err != nil {
			return err
		}
		faculty, err := a.client.GetFaculty(ctx)
		if err != nil {
			return err
		}
		spo, err := a.client.GetSpoName(ctx)
		if err != nil {
			return err
		}

		return render(map[string]any{
			"personal": data.PersData,
			"faculty":  faculty,
			"spo":      spo,
		})
	},
}

func init() {
	rootCmd.AddCommand(personalCmd)
}
