package main

import (
	"os"

	"github.com/couchcryptid/incident-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
