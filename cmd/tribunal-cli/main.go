package main

import (
	"fmt"
	"os"
	"tribunal-tracker/cmd/tribunal-cli/cmd"
)

func main() {
	dbpath, ok := os.LookupEnv("TRACKER_DB")
	if !ok {
		fmt.Println("You should specify the path of the tracker database in the environment variable TRACKER_DB.")
		os.Exit(1)
	}
	cmd.DbPath = dbpath

	cmd.Execute()
}
