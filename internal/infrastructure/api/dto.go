package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/message"
	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
)

var validate = validator.New()

// CustomerDTO is the customer payload embedded in ticket listings, enough to
// create the local row without an extra fetch.
type CustomerDTO struct {
	ID       uint   `json:"id" validate:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone" validate:"required"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
	Age      *int   `json:"age"`
	Location string `json:"location"`
}

func (d *CustomerDTO) ToDomain() (*customer.Customer, error) {
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	return customer.ReconstructCustomer(
		d.ID, d.Name, d.Phone, d.Language, d.Gender, d.Age, d.Location, time.Now(),
	)
}

type UserDTO struct {
	ID        uint   `json:"id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	AdminArea string `json:"admin_area"`
}

func (d *UserDTO) ToDomain() (*user.User, error) {
	if err := validate.Struct(d); err != nil {
		return nil, err
	}
	return user.ReconstructUser(
		d.ID, d.Email, d.Name, d.Phone, d.Role, d.Active, d.AdminArea, time.Now(),
	)
}

// TicketDTO mirrors the remote ticket representation. The remote status field
// is deliberately absent from the conversion: resolution state is derived
// from resolved_at alone.
type TicketDTO struct {
	ID               uint         `json:"id" validate:"required"`
	Number           string       `json:"number" validate:"required"`
	Customer         *CustomerDTO `json:"customer" validate:"required"`
	FirstMessageID   string       `json:"first_message_id"`
	ContextMessageID string       `json:"context_message_id"`
	LastMessageID    string       `json:"last_message_id"`
	Status           string       `json:"status"`
	ResolvedBy       *UserDTO     `json:"resolved_by"`
	UnreadCount      int          `json:"unread_count"`
	CreatedAt        int64        `json:"created_at" validate:"required"`
	ResolvedAt       *int64       `json:"resolved_at"`
}

func (d *TicketDTO) ToDomain() (*ticket.Ticket, error) {
	if err := validate.Struct(d); err != nil {
		return nil, err
	}

	var resolvedByID *uint
	if d.ResolvedBy != nil {
		id := d.ResolvedBy.ID
		resolvedByID = &id
	}

	// The remote unread value only ever lands on rows new to this device;
	// the upsert merge keeps the local counter for known tickets.
	return ticket.ReconstructTicket(
		d.ID,
		d.Number,
		d.Customer.ID,
		d.FirstMessageID,
		d.ContextMessageID,
		d.LastMessageID,
		d.UnreadCount,
		resolvedByID,
		millisToTime(d.CreatedAt),
		millisToTimePtr(d.ResolvedAt),
	)
}

type MessageDTO struct {
	ID          uint     `json:"id" validate:"required"`
	WAMessageID string   `json:"wa_message_id" validate:"required"`
	CustomerID  uint     `json:"customer_id" validate:"required"`
	Sender      *UserDTO `json:"sender"`
	Body        string   `json:"body"`
	MessageType string   `json:"message_type" validate:"required"`
	Status      string   `json:"status" validate:"required"`
	CreatedAt   int64    `json:"created_at" validate:"required"`
}

func (d *MessageDTO) ToDomain() (*message.Message, error) {
	if err := validate.Struct(d); err != nil {
		return nil, err
	}

	origin := message.OriginCustomer
	var senderUserID *uint
	if d.Sender != nil {
		origin = message.OriginUser
		id := d.Sender.ID
		senderUserID = &id
	}
	if message.Type(d.MessageType) == message.TypeWhisper {
		origin = message.OriginSystem
		senderUserID = nil
	}

	return message.ReconstructMessage(
		d.ID,
		origin,
		d.WAMessageID,
		d.CustomerID,
		senderUserID,
		d.Body,
		message.Type(d.MessageType),
		message.DeliveryStatus(d.Status),
		millisToTime(d.CreatedAt),
	)
}

type ProfileDTO struct {
	User      UserDTO        `json:"user" validate:"required"`
	SyncPrefs user.SyncPrefs `json:"sync_prefs"`
}

type TokenPairDTO struct {
	Token        string `json:"token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

// TicketPageDTO is one page of the remote ticket listing.
type TicketPageDTO struct {
	Total   int64       `json:"total"`
	Tickets []TicketDTO `json:"tickets"`
}

type MessagePageDTO struct {
	Messages []MessageDTO `json:"messages"`
}

type CreateMessageRequest struct {
	TicketID    uint   `json:"ticket_id" validate:"required"`
	Body        string `json:"body" validate:"required"`
	MessageType string `json:"message_type" validate:"required"`
}

// errorBody is the structured error envelope the remote service returns.
type errorBody struct {
	Detail string `json:"detail"`
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func millisToTimePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}
