package message

import (
	"context"
	"time"
)

// Repository is the persistence port for messages. Upsert keys on the remote
// id first and the external message identifier second, which makes repeated
// page fetches and replayed channel events safe.
type Repository interface {
	Save(ctx context.Context, msg *Message) error
	Update(ctx context.Context, msg *Message) error
	Delete(ctx context.Context, messageID uint) error
	GetByID(ctx context.Context, messageID uint) (*Message, error)
	GetByWAMessageID(ctx context.Context, waMessageID string) (*Message, error)
	Upsert(ctx context.Context, msg *Message) (*Message, error)
	// ListConversation returns displayable messages for the customer with
	// from <= created_at < to in ascending order. A zero `to` means no
	// upper bound. Failed deliveries are excluded.
	ListConversation(ctx context.Context, customerID uint, from time.Time, to time.Time, limit int) ([]*Message, error)
	ListWithSender(ctx context.Context, customerID uint, from time.Time, to time.Time, limit int) ([]*WithSender, error)
	UpdateDeliveryStatus(ctx context.Context, waMessageID string, status DeliveryStatus) error
}

// WithSender is the conversation read-model carrying the sender display name
// for staff-authored messages.
type WithSender struct {
	Message    *Message
	SenderName string
}
