package main

import (
	"fmt"
	"os"

	"github.com/sdejongh/treefill/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if cli.ShouldPrint(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
