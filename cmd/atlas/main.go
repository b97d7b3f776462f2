// Package main is the entry point for the atlas CLI.
package main

import (
	"os"

	"github.com/atlasos/atlas/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
