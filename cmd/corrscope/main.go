// Command corrscope answers correlation and portfolio queries offline, straight
// from a feed file or URL.
package main

import (
	"fmt"
	"os"

	"github.com/aristath/corrscope/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
