package main

import (
	"os"

	"github.com/dvloznov/sheets-finance-tracker/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
