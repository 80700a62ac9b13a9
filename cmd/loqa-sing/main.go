package main

import (
	"os"

	"github.com/loqalabs/loqa-sing/cmd/loqa-sing/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
