package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lockctl",
	Short: "Run and operate the ws-lock service",
	Long: `lockctl runs the ws-lock collaborative locking server and provides
the operator commands around it: schema migrations, fixtures, lock
inspection and development tokens.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
