// Package listen runs the real-time channel client in the foreground,
// printing sync events as they arrive. Useful for soak-testing connectivity
// from the field.
package listen

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/domain/shared/events"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/app"
)

var (
	env   string
	rooms []uint
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect to the sync channel and print events until interrupted",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")
	cmd.Flags().UintSliceVarP(&rooms, "room", "r", nil, "Ticket room(s) to join after connecting")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	profile, err := a.Profiles.Get(ctx)
	if err != nil {
		return fmt.Errorf("no stored session; sign in first: %w", err)
	}

	for _, t := range []events.Type{
		events.TypeConnected,
		events.TypeDisconnected,
		events.TypeReconnectFailed,
		events.TypeAuthError,
		events.TypeMessageCreated,
		events.TypeMessageStatusUpdated,
		events.TypeTicketCreated,
		events.TypeTicketResolved,
		events.TypeWhisperCreated,
	} {
		a.Dispatcher.On(t, func(e events.Event) {
			fmt.Printf("%s  %s\n", e.OccurredAt().Format("15:04:05"), e.EventType())
		})
	}

	if err := a.Realtime.Connect(ctx, profile.Token(), profile.UserID()); err != nil {
		return err
	}

	for _, ticketID := range rooms {
		if err := a.Realtime.JoinTicketRoom(ctx, ticketID); err != nil {
			a.Log.Warnw("failed to join ticket room", "ticket_id", ticketID, "error", err)
		}
	}

	a.Log.Infow("listening for sync events, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.Realtime.Disconnect()
	return nil
}
