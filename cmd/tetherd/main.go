// Package main is the entry point for the tetherd item service.
package main

import (
	"os"

	"github.com/tether-io/tether/internal/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
