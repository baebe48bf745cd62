// Package login establishes a device session from an issued token pair.
package login

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/app"
)

var (
	env          string
	token        string
	refreshToken string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session from an access/refresh token pair",
		Long:  `Validates the access token against the remote API, stores the signed-in user's profile locally, and persists the token pair for later syncs.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Access token")
	cmd.Flags().StringVarP(&refreshToken, "refresh-token", "r", "", "Refresh token")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("refresh-token")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.Session.Establish(cmd.Context(), token, refreshToken)
	if err != nil {
		return err
	}

	fmt.Printf("signed in as user %d\n", profile.UserID())
	return nil
}
