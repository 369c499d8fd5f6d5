package cmd

import (
	"fmt"
	"os"
	configsqlite "tribunal-tracker/lib/configutil/sqlite"
	"tribunal-tracker/lib/scrapers/siisej"
	"tribunal-tracker/services/notify"
	"tribunal-tracker/services/tracker"
	trackerdb "tribunal-tracker/services/tracker/db"

	"github.com/spf13/cobra"
)

var DbPath string

var service *tracker.Service
var scraper *siisej.Client

// userID selects which user's subscriptions the command operates on.
var userID int64

var rootCmd = &cobra.Command{
	Use:   "tribunal-cli",
	Short: "tribunal-cli is a CLI interface for the expediente tracking service.",
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&userID, "user", 0, "user id to operate as")
}

func Execute() {
	sqlite, err := configsqlite.Struct{File: DbPath}.OpenDB(trackerdb.Schema)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	scraper = siisej.NewClient()
	service = tracker.NewService(
		tracker.NewSqliteStore(sqlite),
		tracker.NewSiteFetcher(scraper),
		notify.LogNotifier{},
		tracker.DefaultConfig(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
