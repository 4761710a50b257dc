package main

import (
	"os"

	"github.com/jmercer/startgate/cmd/startgate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
