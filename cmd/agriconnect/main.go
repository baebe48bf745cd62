package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/listen"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/login"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/migrate"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/synccmd"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/wipe"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agriconnect",
		Short: "AgriConnect offline-first sync core",
		Long:  `Offline-first synchronization core for the AgriConnect field app: local store management, ticket and message sync, and the real-time channel client.`,
	}

	rootCmd.AddCommand(
		login.NewCommand(),
		synccmd.NewCommand(),
		listen.NewCommand(),
		migrate.NewCommand(),
		wipe.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
