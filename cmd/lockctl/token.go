package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ws-lock/pkg/authenticator/authn_jwt"
	"github.com/doodlesbykumbi/ws-lock/pkg/config"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for a user",
	Long: `Mint a signed bearer token for a user id with the configured
jwt_secret, jwt_issuer and token_ttl. Intended for development and tests.

Example:
  lockctl token 1
  websocat "ws://localhost:8000/ws/locks?token=$(lockctl token 1)"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || userID <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid user id: %q\n", args[0])
			os.Exit(1)
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		token, err := authn_jwt.New(authn_jwt.Config{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
			TTL:    cfg.TokenTTL,
		}).Issue(userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
