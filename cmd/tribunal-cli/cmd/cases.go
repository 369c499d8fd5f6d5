package cmd

import (
	"log"
	"os"
	"time"
	"tribunal-tracker/services/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(untrackCmd)
	rootCmd.AddCommand(listCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <first name>",
	Short: "Registers the user given by --user with a fresh trial.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		user, created, err := service.RegisterUser(cmd.Context(), tracker.NewUser{
			ID:        userID,
			Username:  args[0],
			FirstName: args[1],
		})
		if err != nil {
			log.Fatal(err)
		}
		if !created {
			log.Printf("user %d was already registered", user.ID)
		}
		log.Printf("trial expires %s", user.ExpiresAt.Format(time.ANSIC))
	},
}

var trackCmd = &cobra.Command{
	Use:   "track <label> <district> <court> <case number> <year>",
	Short: "Starts tracking an expediente under the given label.",
	Args:  cobra.ExactArgs(5),
	Run: func(cmd *cobra.Command, args []string) {
		sub, err := service.TrackCase(cmd.Context(), tracker.NewSubscription{
			UserID: userID,
			Label:  args[0],
			Locator: tracker.CaseLocator{
				District: args[1],
				Court:    args[2],
				Number:   args[3],
				Year:     args[4],
			},
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("tracking %q (%s)", sub.Label, sub.Locator)
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <label>",
	Short: "Stops tracking an expediente and deletes its history.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := service.UntrackCase(cmd.Context(), userID, args[0])
		if err != nil {
			log.Fatal(err)
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the expedientes tracked by the user given by --user.",
	Run: func(cmd *cobra.Command, args []string) {
		subs, err := service.ListCases(cmd.Context(), userID)
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Label", "Case", "Last checked"})
		for _, sub := range subs {
			lastChecked := "never"
			if !sub.LastCheckedAt.IsZero() {
				lastChecked = sub.LastCheckedAt.Format(time.ANSIC)
			}
			t.AppendRow(table.Row{sub.Label, sub.Locator.String(), lastChecked})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
