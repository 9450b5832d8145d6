// Command reel plays scripted, timed reveal sequences.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/reel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
