package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/codeindex/internal/cli"
	"github.com/cloo-solutions/codeindex/internal/cli/daemon"
)

var version = "dev"

func main() {
	rootCmd := daemon.RootCmd()
	rootCmd.Version = version

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if target, ok := cli.SchemaTarget(rootCmd, os.Args[1:]); ok {
		if err := cli.WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
