package cmd

import (
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(districtsCmd)
	rootCmd.AddCommand(courtsCmd)
}

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Prints the judicial districts known to the court site.",
	Run: func(cmd *cobra.Command, args []string) {
		districts, err := scraper.Districts(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name"})
		for _, district := range districts {
			t.AppendRow(table.Row{district.Id, district.Name})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var courtsCmd = &cobra.Command{
	Use:   "courts <district id>",
	Short: "Prints the courts of a judicial district.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		courts, err := scraper.Courts(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name"})
		for _, court := range courts {
			t.AppendRow(table.Row{court.Id, court.Name})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
