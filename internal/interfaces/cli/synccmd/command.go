// Package synccmd exposes one-shot synchronization subcommands, mainly for
// operators diagnosing a device over SSH or adb.
package synccmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/interfaces/cli/app"
)

var (
	env      string
	status   string
	page     int
	pageSize int
	ticketID uint
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-shot sync against the remote API",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")

	cmd.AddCommand(
		newTicketsCommand(),
		newMessagesCommand(),
		newProfileCommand(),
	)

	return cmd
}

func newTicketsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Refresh the ticket list from the remote API",
		RunE:  runTickets,
	}
	cmd.Flags().StringVarP(&status, "status", "s", "open", "Ticket status to refresh (open, resolved)")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&pageSize, "size", "n", 0, "Page size (0 uses the configured default)")
	return cmd
}

func newMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Catch up the conversation for one ticket",
		RunE:  runMessages,
	}
	cmd.Flags().UintVarP(&ticketID, "ticket", "t", 0, "Ticket ID to catch up")
	_ = cmd.MarkFlagRequired("ticket")
	return cmd
}

func newProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Re-fetch the signed-in user profile",
		RunE:  runProfile,
	}
}

func runTickets(cmd *cobra.Command, args []string) error {
	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	st := ticket.Status(status)
	if !st.IsValid() {
		return fmt.Errorf("invalid status %q", status)
	}

	result, err := a.TicketSync.Refresh(cmd.Context(), st, page, pageSize)
	if err != nil {
		return err
	}

	fmt.Printf("%d %s ticket(s), page %d of total %d\n", len(result.Tickets), st, result.Page, result.Total)
	for _, row := range result.Tickets {
		preview := row.LastMessageBody
		if len(preview) > 40 {
			preview = preview[:40]
		}
		fmt.Printf("  #%s  %-20s  unread=%d  %s\n",
			row.Ticket.Number(), row.CustomerName, row.Ticket.UnreadCount(), preview)
	}
	return nil
}

func runMessages(cmd *cobra.Command, args []string) error {
	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	a.MessageSync.CatchUp(cmd.Context(), ticketID)

	rows, err := a.MessageSync.LoadConversation(cmd.Context(), ticketID)
	if err != nil {
		return err
	}

	fmt.Printf("%d message(s) in conversation for ticket %d\n", len(rows), ticketID)
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := app.Build(env)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.Session.SyncProfile(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("profile synced for user %d\n", profile.UserID())
	return nil
}
