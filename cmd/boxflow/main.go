package main

import (
	"os"

	"github.com/boxflow/boxflow/cmd/boxflow/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
