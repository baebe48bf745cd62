// Package events defines the typed sync events flowing from the channel
// client and sync services to UI subscribers, and the subscription interface
// they register through.
package events

import "time"

// Type names one event kind.
type Type string

const (
	TypeMessageCreated       Type = "message_created"
	TypeMessageStatusUpdated Type = "message_status_updated"
	TypeTicketCreated        Type = "ticket_created"
	TypeTicketResolved       Type = "ticket_resolved"
	TypeWhisperCreated       Type = "whisper_created"

	// Connection meta-events.
	TypeConnected       Type = "connected"
	TypeDisconnected    Type = "disconnected"
	TypeReconnectFailed Type = "reconnect_failed"
	TypeAuthError       Type = "auth_error"
)

// Event is the tagged union over all sync event payloads.
type Event interface {
	EventType() Type
	OccurredAt() time.Time
}

type base struct {
	At time.Time `json:"at"`
}

func (b base) OccurredAt() time.Time {
	return b.At
}

func newBase() base {
	return base{At: time.Now()}
}

type MessageCreated struct {
	base
	TicketID    uint   `json:"ticket_id"`
	WAMessageID string `json:"wa_message_id"`
	CustomerID  uint   `json:"customer_id"`
}

func NewMessageCreated(ticketID uint, waMessageID string, customerID uint) MessageCreated {
	return MessageCreated{base: newBase(), TicketID: ticketID, WAMessageID: waMessageID, CustomerID: customerID}
}

func (MessageCreated) EventType() Type { return TypeMessageCreated }

type MessageStatusUpdated struct {
	base
	TicketID    uint   `json:"ticket_id"`
	WAMessageID string `json:"wa_message_id"`
	Status      string `json:"status"`
}

func NewMessageStatusUpdated(ticketID uint, waMessageID, status string) MessageStatusUpdated {
	return MessageStatusUpdated{base: newBase(), TicketID: ticketID, WAMessageID: waMessageID, Status: status}
}

func (MessageStatusUpdated) EventType() Type { return TypeMessageStatusUpdated }

type TicketCreated struct {
	base
	TicketID   uint `json:"ticket_id"`
	CustomerID uint `json:"customer_id"`
}

func NewTicketCreated(ticketID, customerID uint) TicketCreated {
	return TicketCreated{base: newBase(), TicketID: ticketID, CustomerID: customerID}
}

func (TicketCreated) EventType() Type { return TypeTicketCreated }

type TicketResolved struct {
	base
	TicketID     uint `json:"ticket_id"`
	ResolvedByID uint `json:"resolved_by_id"`
}

func NewTicketResolved(ticketID, resolvedByID uint) TicketResolved {
	return TicketResolved{base: newBase(), TicketID: ticketID, ResolvedByID: resolvedByID}
}

func (TicketResolved) EventType() Type { return TypeTicketResolved }

type WhisperCreated struct {
	base
	TicketID    uint   `json:"ticket_id"`
	WAMessageID string `json:"wa_message_id"`
}

func NewWhisperCreated(ticketID uint, waMessageID string) WhisperCreated {
	return WhisperCreated{base: newBase(), TicketID: ticketID, WAMessageID: waMessageID}
}

func (WhisperCreated) EventType() Type { return TypeWhisperCreated }

type Connected struct{ base }

func NewConnected() Connected { return Connected{base: newBase()} }

func (Connected) EventType() Type { return TypeConnected }

type Disconnected struct {
	base
	Reason string `json:"reason"`
}

func NewDisconnected(reason string) Disconnected {
	return Disconnected{base: newBase(), Reason: reason}
}

func (Disconnected) EventType() Type { return TypeDisconnected }

type ReconnectFailed struct {
	base
	Attempts int `json:"attempts"`
}

func NewReconnectFailed(attempts int) ReconnectFailed {
	return ReconnectFailed{base: newBase(), Attempts: attempts}
}

func (ReconnectFailed) EventType() Type { return TypeReconnectFailed }

type AuthError struct {
	base
	Detail string `json:"detail"`
}

func NewAuthError(detail string) AuthError {
	return AuthError{base: newBase(), Detail: detail}
}

func (AuthError) EventType() Type { return TypeAuthError }
