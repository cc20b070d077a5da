package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <file.yml>",
	Short: "Load users, groups, permissions and items from a fixtures file",
	Long: `Load users, groups, permissions, visibility grants and items from a
YAML fixtures file. Loading is idempotent: existing rows are kept and
users are updated in place.

Example fixtures file:

  groups:
    - name: editors
      visible: [FOO, BAZ]
      permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
  users:
    - id: 1
      username: alice
      groups: [editors]
  items:
    - id: 3
      type: FOO

Example:
  lockctl seed fixtures.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := fixtures.Load(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load fixtures: %v\n", err)
			os.Exit(1)
		}

		_, log := loadLogger()
		database, err := connectDB(log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := f.Apply(ctx, database); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to apply fixtures: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Loaded %d group(s), %d user(s), %d item(s)\n", len(f.Groups), len(f.Users), len(f.Items))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
