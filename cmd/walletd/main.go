// Package main is the entry point for walletd.
package main

import (
	"os"

	"github.com/votis/walletd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
