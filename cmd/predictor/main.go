package main

import (
	"os"

	"github.com/philios33/predictor2-backend-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
