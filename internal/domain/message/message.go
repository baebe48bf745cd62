// Package message holds the Message entity: one atomic communication unit
// exchanged with a customer over the messaging channel.
package message

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is authored by exactly one of: the customer, a staff user, or the
// automated suggestion system. A staff-authored message carries a sender
// user id; customer and system messages never do.
type Message struct {
	id           uint
	origin       Origin
	waMessageID  string
	customerID   uint
	senderUserID *uint
	body         string
	messageType  Type
	status       DeliveryStatus
	createdAt    time.Time
}

// NewLocalMessage creates a staff-authored message pending delivery. The
// external identifier is generated locally and reconciled once the remote
// service assigns its own row.
func NewLocalMessage(customerID uint, senderUserID uint, body string, messageType Type) (*Message, error) {
	if customerID == 0 {
		return nil, fmt.Errorf("customer ID is required")
	}
	if senderUserID == 0 {
		return nil, fmt.Errorf("sender user ID is required")
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("body is required")
	}
	if !messageType.IsValid() {
		return nil, fmt.Errorf("invalid message type: %s", messageType)
	}

	return &Message{
		origin:       OriginUser,
		waMessageID:  uuid.NewString(),
		customerID:   customerID,
		senderUserID: &senderUserID,
		body:         body,
		messageType:  messageType,
		status:       DeliveryQueued,
		createdAt:    time.Now(),
	}, nil
}

func ReconstructMessage(
	id uint,
	origin Origin,
	waMessageID string,
	customerID uint,
	senderUserID *uint,
	body string,
	messageType Type,
	status DeliveryStatus,
	createdAt time.Time,
) (*Message, error) {
	if len(waMessageID) == 0 {
		return nil, fmt.Errorf("external message identifier is required")
	}
	if customerID == 0 {
		return nil, fmt.Errorf("customer ID is required")
	}
	if !origin.IsValid() {
		return nil, fmt.Errorf("invalid origin: %s", origin)
	}
	if !messageType.IsValid() {
		return nil, fmt.Errorf("invalid message type: %s", messageType)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid delivery status: %s", status)
	}
	if origin == OriginUser && senderUserID == nil {
		return nil, fmt.Errorf("user-authored message requires a sender user ID")
	}
	if origin != OriginUser && senderUserID != nil {
		return nil, fmt.Errorf("%s-authored message cannot carry a sender user ID", origin)
	}

	return &Message{
		id:           id,
		origin:       origin,
		waMessageID:  waMessageID,
		customerID:   customerID,
		senderUserID: senderUserID,
		body:         body,
		messageType:  messageType,
		status:       status,
		createdAt:    createdAt,
	}, nil
}

func (m *Message) ID() uint {
	return m.id
}

func (m *Message) Origin() Origin {
	return m.origin
}

func (m *Message) WAMessageID() string {
	return m.waMessageID
}

func (m *Message) CustomerID() uint {
	return m.customerID
}

func (m *Message) SenderUserID() *uint {
	return m.senderUserID
}

func (m *Message) Body() string {
	return m.body
}

func (m *Message) Type() Type {
	return m.messageType
}

func (m *Message) DeliveryStatus() DeliveryStatus {
	return m.status
}

func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

func (m *Message) SetID(id uint) error {
	if m.id != 0 {
		return fmt.Errorf("message ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("message ID cannot be zero")
	}
	m.id = id
	return nil
}

// UpdateDeliveryStatus applies a status transition pushed by the remote
// service. Transitions are monotonic except failures, which are terminal.
func (m *Message) UpdateDeliveryStatus(status DeliveryStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid delivery status: %s", status)
	}
	if m.status.IsTerminalFailure() {
		return fmt.Errorf("message %s already failed, cannot transition to %s", m.waMessageID, status)
	}
	if status.Rank() < m.status.Rank() && !status.IsTerminalFailure() {
		// Out-of-order status events arrive over the channel; keep the
		// furthest-progressed state.
		return nil
	}
	m.status = status
	return nil
}

// IsDisplayable reports whether the message belongs in an ordered
// conversation read-model. Failed deliveries are excluded.
func (m *Message) IsDisplayable() bool {
	return !m.status.IsTerminalFailure()
}
