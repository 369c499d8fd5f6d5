package cmd

import (
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints service-wide tracking statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := service.Stats(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"Tracked expedientes", stats.Subscriptions})
		t.AppendRow(table.Row{"Subscribed users", stats.SubscribedUsers})
		t.AppendRow(table.Row{"Checked in window", stats.CheckedInWindow})
		t.AppendRow(table.Row{"With history", stats.WithHistory})
		t.AppendRow(table.Row{"Window", stats.Window})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
