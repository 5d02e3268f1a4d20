package main

import (
	"os"

	"github.com/LerianStudio/lib-swap/cmd/swapctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
