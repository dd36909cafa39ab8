package main

import (
	"os"

	"github.com/agentdeck/agentdeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
