// Package wipe implements the logout wipe: drop every locally cached row and
// rebuild an empty store.
package wipe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/app"
)

var (
	env string
	yes bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Erase all local data and the stored session",
		Long:  `Drops every locally cached ticket, message, customer and the stored session tokens, then rebuilds an empty store. This cannot be undone.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if !yes {
		fmt.Print("This erases all local data on this device. Type 'wipe' to confirm: ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || answer != "wipe" {
			fmt.Println("aborted")
			return nil
		}
	}

	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Session.Wipe(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("local store wiped")
	return nil
}
