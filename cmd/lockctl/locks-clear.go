package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ws-lock/pkg/audit"
	"github.com/doodlesbykumbi/ws-lock/pkg/broadcast"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/ws-lock/pkg/server/store/gorm"
)

// locksClearCmd represents the locks clear command
var locksClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Release active locks",
	Long: `Release the active locks of one user, or of every user.

With the redis or amqp broadcast backend the releases are published so
that connected clients see the items become free.

Example:
  lockctl locks clear --user 7
  lockctl locks clear --all`,
	Run: func(cmd *cobra.Command, args []string) {
		userID, _ := cmd.Flags().GetInt64("user")
		all, _ := cmd.Flags().GetBool("all")

		if (userID == 0) == !all {
			fmt.Fprintln(os.Stderr, "Exactly one of --user or --all is required")
			os.Exit(1)
		}
		if userID < 0 {
			fmt.Fprintf(os.Stderr, "Invalid user id: %d\n", userID)
			os.Exit(1)
		}

		cfg, log := loadLogger()
		database, err := connectDB(log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		released, err := gormstore.NewLockStore(database).ClearLocks(ctx, userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clear locks: %v\n", err)
			os.Exit(1)
		}

		audit.Log(audit.ClearEvent{
			Operator: operator(),
			UserID:   userID,
			Released: len(released),
		})
		fmt.Printf("Released %d lock(s)\n", len(released))

		if err := publishReleases(ctx, cfg, log, released); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to broadcast releases: %v\n", err)
		}
	},
}

func init() {
	locksCmd.AddCommand(locksClearCmd)
	locksClearCmd.Flags().Int64("user", 0, "Release the locks of this user id")
	locksClearCmd.Flags().Bool("all", false, "Release the locks of every user")
}

func operator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "lockctl"
}

// publishReleases announces released locks through a shared broadcast
// backend. The in-process hub reaches no server, so it is skipped.
func publishReleases(ctx context.Context, cfg *config.Config, log zerolog.Logger, released []store.Lock) error {
	if len(released) == 0 || cfg.BroadcastBackend == config.BackendMemory {
		return nil
	}
	router, err := openRouter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = router.Close() }()
	return broadcast.NewPublisher(router, log).PublishLocks(ctx, released)
}
