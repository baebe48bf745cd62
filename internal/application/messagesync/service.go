// Package messagesync implements conversation loading: immediate local
// reads bounded to the ticket window, best-effort catch-up of the newest
// remote messages, and cursor-based backfill of older history.
package messagesync

import (
	"context"
	"fmt"
	"time"

	"github.com/akvo/agriconnect-sub001/internal/domain/message"
	"github.com/akvo/agriconnect-sub001/internal/domain/synclog"
	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/shared/constants"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// RemoteClient is the slice of the API client this service needs.
type RemoteClient interface {
	ListMessages(ctx context.Context, customerID uint, beforeTS int64, limit int) ([]api.MessageDTO, error)
	CreateMessage(ctx context.Context, body api.CreateMessageRequest) (*api.MessageDTO, error)
}

type Service struct {
	tickets  ticket.Repository
	messages message.Repository
	users    user.Repository
	syncLogs synclog.Repository
	remote   RemoteClient
	tx       *db.TransactionManager
	pageSize int
	logger   logger.Interface
}

func NewService(
	tickets ticket.Repository,
	messages message.Repository,
	users user.Repository,
	syncLogs synclog.Repository,
	remote RemoteClient,
	tx *db.TransactionManager,
	pageSize int,
	log logger.Interface,
) *Service {
	if pageSize <= 0 {
		pageSize = constants.DefaultMessagePageSize
	}
	return &Service{
		tickets:  tickets,
		messages: messages,
		users:    users,
		syncLogs: syncLogs,
		remote:   remote,
		tx:       tx,
		pageSize: pageSize,
		logger:   log.Named("messagesync"),
	}
}

// LoadConversation returns the locally stored conversation for one ticket,
// immediately and without touching the network. The window is bounded by the
// ticket's creation time and, when the customer has a newer ticket, that
// ticket's creation time, so a later conversation never bleeds into this one.
func (s *Service) LoadConversation(ctx context.Context, ticketID uint) ([]*message.WithSender, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	from, to := s.conversationWindow(ctx, t)
	return s.messages.ListWithSender(ctx, t.CustomerID(), from, to, 0)
}

// CatchUp fetches the newest remote messages for the ticket's customer and
// merges them in. It is best effort: remote failures are logged and
// swallowed, the cached conversation stays valid.
func (s *Service) CatchUp(ctx context.Context, ticketID uint) {
	entry := synclog.NewEntry(synclog.KindMessageCatchUp)
	entry.Start()
	if err := s.syncLogs.Save(ctx, entry); err != nil {
		s.logger.Warnw("sync log not recorded", "kind", entry.Kind(), "error", err)
	}

	stored, err := s.catchUp(ctx, ticketID)
	if err != nil {
		s.logger.Warnw("message catch-up failed", "ticket_id", ticketID, "error", err)
		entry.Fail(err.Error())
	} else {
		entry.Complete(fmt.Sprintf("stored %d messages", stored))
	}

	if entry.ID() != 0 {
		if err := s.syncLogs.Update(ctx, entry); err != nil {
			s.logger.Warnw("sync log not updated", "kind", entry.Kind(), "error", err)
		}
	}
}

func (s *Service) catchUp(ctx context.Context, ticketID uint) (int, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return 0, err
	}

	dtos, err := s.remote.ListMessages(ctx, t.CustomerID(), 0, s.pageSize)
	if err != nil {
		return 0, err
	}

	return s.mergeBatch(ctx, dtos)
}

// LoadOlder backfills conversation history strictly before the cursor and
// returns the freshly readable page with the next cursor. A nil cursor means
// the history is exhausted. On remote failure the error is retryable and the
// already-cached page stays valid.
func (s *Service) LoadOlder(ctx context.Context, ticketID uint, beforeTS int64) ([]*message.WithSender, *int64, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}

	dtos, err := s.remote.ListMessages(ctx, t.CustomerID(), beforeTS, s.pageSize)
	if err != nil {
		if apperrors.IsRetryable(err) {
			return nil, nil, err
		}
		return nil, nil, apperrors.NewSyncError("failed to load older messages").WithCause(err)
	}

	if len(dtos) == 0 {
		return nil, nil, nil
	}

	if _, err := s.mergeBatch(ctx, dtos); err != nil {
		return nil, nil, err
	}

	// Re-read the fetched span locally so boundary rules and failed-message
	// filtering apply uniformly.
	oldest := dtos[0].CreatedAt
	for _, dto := range dtos {
		if dto.CreatedAt < oldest {
			oldest = dto.CreatedAt
		}
	}

	from, to := s.conversationWindow(ctx, t)
	if fetchedFrom := time.UnixMilli(oldest); fetchedFrom.After(from) {
		from = fetchedFrom
	}
	if cursor := time.UnixMilli(beforeTS); to.IsZero() || cursor.Before(to) {
		to = cursor
	}

	// No limit on the re-read: the span is already bounded by the fetch,
	// and a limit here would cut interleaved channel rows nearest the
	// cursor, making the next cursor skip them.
	page, err := s.messages.ListWithSender(ctx, t.CustomerID(), from, to, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(page) == 0 {
		return nil, nil, nil
	}

	next := page[0].Message.CreatedAt().UnixMilli()
	return page, &next, nil
}

// SendMessage delivers an officer reply through the remote service and
// stores the accepted message locally so it shows up in the conversation
// without waiting for the channel echo.
func (s *Service) SendMessage(ctx context.Context, ticketID uint, body string, msgType message.Type) (*message.Message, error) {
	if !msgType.IsValid() || msgType == message.TypeWhisper {
		return nil, apperrors.NewValidationError("invalid outgoing message type", msgType.String())
	}

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	dto, err := s.remote.CreateMessage(ctx, api.CreateMessageRequest{
		TicketID:    ticketID,
		Body:        body,
		MessageType: msgType.String(),
	})
	if err != nil {
		return nil, err
	}

	msg, err := dto.ToDomain()
	if err != nil {
		return nil, apperrors.NewSyncError("remote returned invalid message").WithCause(err)
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if sender := dto.Sender; sender != nil {
			u, err := sender.ToDomain()
			if err != nil {
				return apperrors.NewSyncError("remote returned invalid sender").WithCause(err)
			}
			if _, err := s.users.Upsert(ctx, u); err != nil {
				return err
			}
		}
		stored, err := s.messages.Upsert(ctx, msg)
		if err != nil {
			return err
		}
		t.SetLastMessage(stored.WAMessageID())
		return s.tickets.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// mergeBatch upserts one remote batch atomically. Invalid records are
// skipped with a warning; the batch continues.
func (s *Service) mergeBatch(ctx context.Context, dtos []api.MessageDTO) (int, error) {
	stored := 0
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range dtos {
			msg, err := dtos[i].ToDomain()
			if err != nil {
				s.logger.Warnw("skipping invalid remote message",
					"wa_message_id", dtos[i].WAMessageID,
					"error", err)
				continue
			}
			// Staff messages may arrive from an officer this device has
			// never synced; the user row must exist before the message
			// references it.
			if sender := dtos[i].Sender; sender != nil {
				u, err := sender.ToDomain()
				if err != nil {
					s.logger.Warnw("skipping remote message with invalid sender",
						"wa_message_id", dtos[i].WAMessageID,
						"error", err)
					continue
				}
				if _, err := s.users.Upsert(ctx, u); err != nil {
					return err
				}
			}
			if _, err := s.messages.Upsert(ctx, msg); err != nil {
				return err
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// conversationWindow computes [ticket.createdAt, nextTicket.createdAt); the
// upper bound is zero when the customer has no newer ticket.
func (s *Service) conversationWindow(ctx context.Context, t *ticket.Ticket) (time.Time, time.Time) {
	from := t.CreatedAt()

	next, err := s.tickets.NextTicketAfter(ctx, t.CustomerID(), t.CreatedAt())
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warnw("next ticket lookup failed, conversation unbounded above",
				"ticket_id", t.ID(), "error", err)
		}
		return from, time.Time{}
	}
	return from, next.CreatedAt()
}
