package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginGuest bool
var loginUser string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in to the campus webservice and store the session locally.

Credentials are taken from --user and an interactive password prompt, or
from CAMPUS_USERNAME / CAMPUS_PASSWORD. With --guest a local guest session
is created; guest sessions cannot access personal data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if loginGuest {
			if err := a.sessions.LoginGuest(ctx); err != nil {
				return err
			}
			fmt.Println("guest session created")
			return nil
		}

		username := loginUser
		if username == "" {
			username = a.cfg.Username
		}
		password := a.cfg.Password

		reader := bufio.NewReader(os.Stdin)
		if username == "" {
			fmt.Fprint(os.Stderr, "Username: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read username: %w", err)
			}
			username = strings.TrimSpace(line)
		}
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}

		if err := a.sessions.Login(ctx, username, password); err != nil {
			return err
		}
		fmt.Println("logged in")
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginGuest, "guest", false, "create a local guest session")
	loginCmd.Flags().StringVar(&loginUser, "user", "", "THI account name")
	rootCmd.AddCommand(loginCmd)
}
