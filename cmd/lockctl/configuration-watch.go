package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ws-lock/pkg/config"
)

// configurationWatchCmd represents the configuration watch command
var configurationWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the configuration whenever the config file changes",
	Long: `Watch the configuration file and print the resulting configuration,
with validation errors, each time it is written or replaced.

Example:
  lockctl configuration watch
  lockctl configuration watch -o json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		path := config.FilePath()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s for configuration changes\n", path)
		err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
			fmt.Printf("[%s] Configuration changed\n", time.Now().Format(time.RFC3339))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
				return
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			}
			if err := printConfiguration(os.Stdout, cfg, output); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationWatchCmd)
	configurationWatchCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
