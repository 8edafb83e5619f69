package main

import (
	"os"

	"timerlist/cmd/timerlist/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
