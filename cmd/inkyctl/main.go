package main

import (
	"os"

	"github.com/inkylabs/inkyprovd/cmd/inkyctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
