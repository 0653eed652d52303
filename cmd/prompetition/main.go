package main

import (
	"os"

	"prompetition/cmd/prompetition/commands"
)

func main() {
	root := commands.NewRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
