package main

import (
	"os"

	"github.com/mkurata/pbwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
