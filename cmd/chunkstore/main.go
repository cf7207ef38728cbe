package main

import (
	"os"

	"github.com/alpacahq/chunkstore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
