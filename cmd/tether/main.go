// Package main is the entry point for the tether CLI/TUI.
package main

import (
	"os"

	"github.com/tether-io/tether/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
