package cmd

import (
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <label>",
	Short: "Checks an expediente against the court site right now.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := service.CheckCase(cmd.Context(), userID, args[0])
		if err != nil {
			log.Fatal(err)
		}
		if result.Err != nil {
			log.Fatalf("%s (%s): %v", result.Outcome, result.Reason, result.Err)
		}
		log.Printf("%s (%s)", result.Outcome, result.Reason)

		if len(result.Records) == 0 {
			return
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		for _, record := range result.Records {
			row := table.Row{}
			for _, field := range record {
				row = append(row, field.Value)
			}
			t.AppendRow(row)
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <label>",
	Short: "Prints every stored observation of an expediente, oldest first.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := service.CaseHistory(cmd.Context(), userID, args[0])
		if err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Checked at", "Rows", "Last record"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.CheckedAt.Format(time.ANSIC),
				len(entry.Records),
				entry.Records.Signature(),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
