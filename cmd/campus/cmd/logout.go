package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Close the session and drop cached data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.sessions.Logout(ctx); err != nil {
			return err
		}
		if err := a.client.FlushCache(ctx); err != nil {
			a.logger.Warn("cache flush failed", "error", err)
		}
		fmt.Println("logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
