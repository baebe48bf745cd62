package ticket

import (
	"fmt"
	"time"
)

// Ticket is one support conversation instance for a customer. The id is
// remote-assigned and mirrored locally so both sides stay aligned; the
// unread counter is client-local state the remote side does not track.
type Ticket struct {
	id               uint
	number           string
	customerID       uint
	firstMessageID   string
	contextMessageID string
	lastMessageID    string
	status           Status
	unreadCount      int
	resolvedByID     *uint
	createdAt        time.Time
	resolvedAt       *time.Time
}

func NewTicket(
	id uint,
	number string,
	customerID uint,
	createdAt time.Time,
) (*Ticket, error) {
	if id == 0 {
		return nil, fmt.Errorf("ticket ID is required")
	}
	if len(number) == 0 {
		return nil, fmt.Errorf("ticket number is required")
	}
	if customerID == 0 {
		return nil, fmt.Errorf("customer ID is required")
	}
	if createdAt.IsZero() {
		return nil, fmt.Errorf("created time is required")
	}

	return &Ticket{
		id:         id,
		number:     number,
		customerID: customerID,
		status:     StatusOpen,
		createdAt:  createdAt,
	}, nil
}

func ReconstructTicket(
	id uint,
	number string,
	customerID uint,
	firstMessageID string,
	contextMessageID string,
	lastMessageID string,
	unreadCount int,
	resolvedByID *uint,
	createdAt time.Time,
	resolvedAt *time.Time,
) (*Ticket, error) {
	if id == 0 {
		return nil, fmt.Errorf("ticket ID cannot be zero")
	}
	if len(number) == 0 {
		return nil, fmt.Errorf("ticket number is required")
	}
	if customerID == 0 {
		return nil, fmt.Errorf("customer ID is required")
	}

	return &Ticket{
		id:               id,
		number:           number,
		customerID:       customerID,
		firstMessageID:   firstMessageID,
		contextMessageID: contextMessageID,
		lastMessageID:    lastMessageID,
		status:           DeriveStatus(resolvedAt),
		unreadCount:      unreadCount,
		resolvedByID:     resolvedByID,
		createdAt:        createdAt,
		resolvedAt:       resolvedAt,
	}, nil
}

func (t *Ticket) ID() uint {
	return t.id
}

func (t *Ticket) Number() string {
	return t.number
}

func (t *Ticket) CustomerID() uint {
	return t.customerID
}

func (t *Ticket) FirstMessageID() string {
	return t.firstMessageID
}

func (t *Ticket) ContextMessageID() string {
	return t.contextMessageID
}

func (t *Ticket) LastMessageID() string {
	return t.lastMessageID
}

func (t *Ticket) Status() Status {
	return t.status
}

func (t *Ticket) UnreadCount() int {
	return t.unreadCount
}

func (t *Ticket) ResolvedByID() *uint {
	return t.resolvedByID
}

func (t *Ticket) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Ticket) ResolvedAt() *time.Time {
	return t.resolvedAt
}

func (t *Ticket) IsResolved() bool {
	return t.status == StatusResolved
}

// Resolve marks the ticket resolved by the given user. Resolving an already
// resolved ticket is a no-op so repeated remote confirmations stay safe.
func (t *Ticket) Resolve(resolvedBy uint, at time.Time) error {
	if resolvedBy == 0 {
		return fmt.Errorf("resolver ID cannot be zero")
	}
	if t.resolvedAt != nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	t.resolvedAt = &at
	t.resolvedByID = &resolvedBy
	t.status = StatusResolved
	return nil
}

// SetLastMessage records the external identifier of the most recent message.
func (t *Ticket) SetLastMessage(waMessageID string) {
	if len(waMessageID) > 0 {
		t.lastMessageID = waMessageID
	}
}

func (t *Ticket) IncrementUnread() {
	t.unreadCount++
}

func (t *Ticket) MarkRead() {
	t.unreadCount = 0
}

// SeedUnread sets the unread counter from a remote value. Only valid for
// tickets new to this device; callers must not apply it to known tickets.
func (t *Ticket) SeedUnread(count int) {
	if count > 0 {
		t.unreadCount = count
	}
}

func (t *Ticket) Validate() error {
	if t.id == 0 {
		return fmt.Errorf("ticket ID is required")
	}
	if len(t.number) == 0 {
		return fmt.Errorf("ticket number is required")
	}
	if t.customerID == 0 {
		return fmt.Errorf("customer ID is required")
	}
	if t.status != DeriveStatus(t.resolvedAt) {
		return fmt.Errorf("status %q inconsistent with resolution timestamp", t.status)
	}
	return nil
}
