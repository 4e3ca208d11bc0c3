package main

import (
	"os"

	"mesh-jeopardy-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
