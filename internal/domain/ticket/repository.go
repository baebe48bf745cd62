package ticket

import (
	"context"
	"time"
)

// Repository is the persistence port for tickets. Upsert keys on the remote
// id first and the ticket number second; it must never blind-overwrite the
// client-local unread counter of a row that already exists on the device.
type Repository interface {
	Save(ctx context.Context, ticket *Ticket) error
	Update(ctx context.Context, ticket *Ticket) error
	Delete(ctx context.Context, ticketID uint) error
	GetByID(ctx context.Context, ticketID uint) (*Ticket, error)
	GetByNumber(ctx context.Context, number string) (*Ticket, error)
	Upsert(ctx context.Context, ticket *Ticket) (*Ticket, error)
	ListOpen(ctx context.Context, page, pageSize int) ([]*WithCustomer, int64, error)
	ListResolved(ctx context.Context, page, pageSize int) ([]*WithCustomer, int64, error)
	GetWithCustomer(ctx context.Context, ticketID uint) (*WithCustomer, error)
	// NextTicketAfter returns the customer's next ticket created strictly
	// after the given time, or a not-found error. It bounds conversation
	// reads so a newer ticket's messages never bleed into an older view.
	NextTicketAfter(ctx context.Context, customerID uint, after time.Time) (*Ticket, error)
	MarkRead(ctx context.Context, ticketID uint) error
	IncrementUnread(ctx context.Context, ticketID uint) error
}

// WithCustomer is the list read-model joining the owning customer and the
// preview of the most recent message.
type WithCustomer struct {
	Ticket          *Ticket
	CustomerName    string
	CustomerPhone   string
	LastMessageBody string
	LastMessageAt   *time.Time
}
