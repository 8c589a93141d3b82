package main

import (
	"os"

	"github.com/clickfixhq/clipshield/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
