package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// locksCmd represents the locks command
var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Inspect and clear item locks",
	Long: `Inspect and clear item locks.

Locks held by a server that died without releasing them stay active until
they are cleared here.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'locks' requires a subcommand (list, clear)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(locksCmd)
}
