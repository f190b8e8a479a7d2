// Command journal is the trading journal CLI and API server.
package main

import (
	"fmt"
	"os"

	"trading-journal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
