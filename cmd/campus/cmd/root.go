// Package cmd provides the CLI commands of the campus client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuland-ingolstadt/campus-client/internal/config"
)

var cfgFile string
var outputFormat string

var rootCmd = &cobra.Command{
	Use:   "campus",
	Short: "campus - THI campus webservice client",
	Long: `campus is a command line client for the THI campus webservice.

It manages the login session for you: log in once and every command
reuses the stored session, re-authenticating transparently when the
upstream rejects it.

Quick start:
  1. campus login
  2. campus timetable

Configuration:
  Config is loaded from campus.yaml in the current directory,
  $HOME/.campus/, or /etc/campus/.

  Environment variables can override config values with the CAMPUS_ prefix.
  Example: CAMPUS_CACHE_BACKEND=sqlite

Commands:
  login       Log in and store the session
  logout      Close the session and drop cached data
  personal    Show personal data, faculty and SPO version
  timetable   Show the timetable for a day
  exams       Show registered exams
  grades      Show the grade list
  rooms       Show free rooms for a day
  lecturers   Show lecturers
  library     Library seat booking (seats, reservations, book, cancel)
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./campus.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
}

func initConfig() {
	config.InitViper(cfgFile)
}
