package realtime

import (
	"encoding/json"

	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
)

// envelope is the wire frame for both directions on the channel.
type envelope struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ack_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server-acknowledged client requests.
const (
	eventAck       = "ack"
	eventJoinRoom  = "join_ticket_room"
	eventLeaveRoom = "leave_ticket_room"
)

type ackPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type roomPayload struct {
	TicketID uint `json:"ticket_id"`
}

// messageEventPayload carries a full message representation so the local row
// can be written without a follow-up fetch. Customer is present when the
// sender is not yet known to this device.
type messageEventPayload struct {
	TicketID uint             `json:"ticket_id"`
	Message  api.MessageDTO   `json:"message"`
	Customer *api.CustomerDTO `json:"customer,omitempty"`
}

type ticketEventPayload struct {
	Ticket api.TicketDTO `json:"ticket"`
}

type statusEventPayload struct {
	TicketID    uint   `json:"ticket_id"`
	WAMessageID string `json:"wa_message_id"`
	Status      string `json:"status"`
}
