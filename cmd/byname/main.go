// Package main provides the byname CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/byname/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "byname:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
