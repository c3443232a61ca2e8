package main

import (
	"os"

	"github.com/jacklau/picdedup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
