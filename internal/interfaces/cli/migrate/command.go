// Package migrate exposes local-store schema management subcommands.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/infrastructure/config"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/database"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

var (
	env   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Local store schema tools",
		Long:  `Manage the local store schema: apply pending migrations, inspect the version, roll back, or rebuild from scratch.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newRebuildCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE:  runDown,
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version and pending steps",
		RunE:  runStatus,
	}
}

func newRebuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Drop everything and reapply the full migration chain",
		Long:  `Destroys all locally cached data and rebuilds an empty store at the current schema version.`,
		RunE:  runRebuild,
	}
}

func initStore() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	return nil
}

func runUp(cmd *cobra.Command, args []string) error {
	if err := initStore(); err != nil {
		return err
	}
	defer database.Close()

	manager := migration.NewManager(env)
	return manager.Migrate(database.Get())
}

func runDown(cmd *cobra.Command, args []string) error {
	if err := initStore(); err != nil {
		return err
	}
	defer database.Close()

	strategy := migration.NewGooseStrategy().(*migration.GooseStrategy)
	return strategy.MigrateDown(database.Get(), steps)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := initStore(); err != nil {
		return err
	}
	defer database.Close()

	strategy := migration.NewGooseStrategy().(*migration.GooseStrategy)
	version, err := strategy.GetVersion(database.Get())
	if err != nil {
		return err
	}
	fmt.Printf("schema version: %d\n", version)

	return strategy.Status(database.Get())
}

func runRebuild(cmd *cobra.Command, args []string) error {
	if err := initStore(); err != nil {
		return err
	}
	defer database.Close()

	manager := migration.NewManager(env)
	return manager.Rebuild(database.Get())
}
