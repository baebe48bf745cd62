package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/message"
	"github.com/akvo/agriconnect-sub001/internal/domain/shared/events"
	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// Bridge applies server-pushed frames to the local store with the same
// upsert semantics the sync services use, then republishes them as typed
// events for UI subscribers. Replayed frames are harmless.
type Bridge struct {
	tickets    ticket.Repository
	messages   message.Repository
	customers  customer.Repository
	users      user.Repository
	tx         *db.TransactionManager
	dispatcher events.Publisher
	log        logger.Interface
}

func NewBridge(
	tickets ticket.Repository,
	messages message.Repository,
	customers customer.Repository,
	users user.Repository,
	tx *db.TransactionManager,
	dispatcher events.Publisher,
	log logger.Interface,
) *Bridge {
	return &Bridge{
		tickets:    tickets,
		messages:   messages,
		customers:  customers,
		users:      users,
		tx:         tx,
		dispatcher: dispatcher,
		log:        log.Named("realtime.bridge"),
	}
}

// HandleFrame implements FrameHandler.
func (b *Bridge) HandleFrame(ctx context.Context, event string, payload json.RawMessage) error {
	switch events.Type(event) {
	case events.TypeMessageCreated:
		return b.applyMessageCreated(ctx, payload)
	case events.TypeMessageStatusUpdated:
		return b.applyStatusUpdated(ctx, payload)
	case events.TypeTicketCreated:
		return b.applyTicketCreated(ctx, payload)
	case events.TypeTicketResolved:
		return b.applyTicketResolved(ctx, payload)
	case events.TypeWhisperCreated:
		return b.applyWhisperCreated(ctx, payload)
	default:
		b.log.Debugw("ignoring unknown channel event", "event", event)
		return nil
	}
}

func (b *Bridge) applyMessageCreated(ctx context.Context, payload json.RawMessage) error {
	var p messageEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode message_created: %w", err)
	}

	msg, err := p.Message.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}

	err = b.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := b.ensureCustomer(ctx, p.Customer, msg.CustomerID()); err != nil {
			return err
		}
		if err := b.ensureUser(ctx, p.Message.Sender); err != nil {
			return err
		}

		stored, err := b.messages.Upsert(ctx, msg)
		if err != nil {
			return err
		}

		t, err := b.tickets.GetByID(ctx, p.TicketID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				// The ticket_created frame may still be in flight; the
				// message row is already safe under its external id.
				b.log.Warnw("message for unknown ticket stored without ticket update",
					"ticket_id", p.TicketID,
					"wa_message_id", stored.WAMessageID())
				return nil
			}
			return err
		}

		t.SetLastMessage(stored.WAMessageID())
		if err := b.tickets.Update(ctx, t); err != nil {
			return err
		}

		if stored.Origin() == message.OriginCustomer {
			if err := b.tickets.IncrementUnread(ctx, t.ID()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.dispatcher.Publish(events.NewMessageCreated(p.TicketID, msg.WAMessageID(), msg.CustomerID()))
	return nil
}

func (b *Bridge) applyStatusUpdated(ctx context.Context, payload json.RawMessage) error {
	var p statusEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode message_status_updated: %w", err)
	}

	status := message.DeliveryStatus(p.Status)
	if !status.IsValid() {
		return fmt.Errorf("invalid delivery status %q", p.Status)
	}

	if err := b.messages.UpdateDeliveryStatus(ctx, p.WAMessageID, status); err != nil {
		if apperrors.IsNotFound(err) {
			// Status frame for a message this device never stored.
			b.log.Debugw("status update for unknown message",
				"wa_message_id", p.WAMessageID)
			return nil
		}
		return err
	}

	b.dispatcher.Publish(events.NewMessageStatusUpdated(p.TicketID, p.WAMessageID, p.Status))
	return nil
}

func (b *Bridge) applyTicketCreated(ctx context.Context, payload json.RawMessage) error {
	var p ticketEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode ticket_created: %w", err)
	}

	t, err := p.Ticket.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid ticket payload: %w", err)
	}

	err = b.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := b.ensureCustomer(ctx, p.Ticket.Customer, t.CustomerID()); err != nil {
			return err
		}

		// A freshly opened ticket arrives with its first customer message
		// unread. Upsert preserves the counter on rows the device already
		// has, so the seed only lands on new rows.
		if !t.IsResolved() && t.UnreadCount() == 0 {
			t.SeedUnread(1)
		}

		_, err := b.tickets.Upsert(ctx, t)
		return err
	})
	if err != nil {
		return err
	}

	b.dispatcher.Publish(events.NewTicketCreated(t.ID(), t.CustomerID()))
	return nil
}

func (b *Bridge) applyTicketResolved(ctx context.Context, payload json.RawMessage) error {
	var p ticketEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode ticket_resolved: %w", err)
	}

	t, err := p.Ticket.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid ticket payload: %w", err)
	}

	err = b.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := b.ensureCustomer(ctx, p.Ticket.Customer, t.CustomerID()); err != nil {
			return err
		}
		if err := b.ensureUser(ctx, p.Ticket.ResolvedBy); err != nil {
			return err
		}
		_, err := b.tickets.Upsert(ctx, t)
		return err
	})
	if err != nil {
		return err
	}

	var resolvedBy uint
	if t.ResolvedByID() != nil {
		resolvedBy = *t.ResolvedByID()
	}
	b.dispatcher.Publish(events.NewTicketResolved(t.ID(), resolvedBy))
	return nil
}

func (b *Bridge) applyWhisperCreated(ctx context.Context, payload json.RawMessage) error {
	var p messageEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode whisper_created: %w", err)
	}

	msg, err := p.Message.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid whisper payload: %w", err)
	}

	err = b.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := b.ensureCustomer(ctx, p.Customer, msg.CustomerID()); err != nil {
			return err
		}
		// Whispers are officer-facing suggestions; they never touch the
		// unread counter or the conversation preview.
		_, err := b.messages.Upsert(ctx, msg)
		return err
	})
	if err != nil {
		return err
	}

	b.dispatcher.Publish(events.NewWhisperCreated(p.TicketID, msg.WAMessageID()))
	return nil
}

// ensureCustomer lazily creates the owning customer row so foreign key
// enforcement never rejects the write. Events without an embedded customer
// rely on the row already existing.
func (b *Bridge) ensureCustomer(ctx context.Context, dto *api.CustomerDTO, customerID uint) error {
	if dto == nil {
		if _, err := b.customers.GetByID(ctx, customerID); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewSyncError("event references unknown customer",
					fmt.Sprintf("customer %d", customerID))
			}
			return err
		}
		return nil
	}

	c, err := dto.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid customer payload: %w", err)
	}
	_, err = b.customers.Upsert(ctx, c)
	return err
}

// ensureUser lazily creates the referenced officer row (message sender or
// ticket resolver), who may never have been synced to this device.
func (b *Bridge) ensureUser(ctx context.Context, dto *api.UserDTO) error {
	if dto == nil {
		return nil
	}
	u, err := dto.ToDomain()
	if err != nil {
		return fmt.Errorf("invalid user payload: %w", err)
	}
	_, err = b.users.Upsert(ctx, u)
	return err
}
