// Package main is the sift CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/siftlabs/sift/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
