// Package ticketsync serves the paginated, status-filtered ticket list with
// a local-first, remote-confirm strategy: cached rows answer page 1
// immediately, deeper pages and pull-to-refresh go through the remote
// service and are merged back before being re-read.
package ticketsync

import (
	"context"
	"fmt"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/synclog"
	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/shared/constants"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// RemoteClient is the slice of the API client this service needs.
type RemoteClient interface {
	ListTickets(ctx context.Context, status string, page, size int) (*api.TicketPageDTO, error)
	ResolveTicket(ctx context.Context, ticketID uint) (*api.TicketDTO, error)
}

// Page is one page of the ticket list read-model.
type Page struct {
	Tickets  []*ticket.WithCustomer
	Total    int64
	Page     int
	PageSize int
}

type Service struct {
	tickets   ticket.Repository
	customers customer.Repository
	users     user.Repository
	syncLogs  synclog.Repository
	remote    RemoteClient
	tx        *db.TransactionManager
	pageSize  int
	logger    logger.Interface
}

func NewService(
	tickets ticket.Repository,
	customers customer.Repository,
	users user.Repository,
	syncLogs synclog.Repository,
	remote RemoteClient,
	tx *db.TransactionManager,
	pageSize int,
	log logger.Interface,
) *Service {
	if pageSize <= 0 {
		pageSize = constants.DefaultTicketPageSize
	}
	return &Service{
		tickets:   tickets,
		customers: customers,
		users:     users,
		syncLogs:  syncLogs,
		remote:    remote,
		tx:        tx,
		pageSize:  pageSize,
		logger:    log.Named("ticketsync"),
	}
}

// List returns one page of tickets for the status. Page 1 is answered from
// the local store whenever it has rows; deeper pages always consult the
// remote service first. A remote failure degrades to whatever is cached,
// because a stale list beats a hard failure in the field.
func (s *Service) List(ctx context.Context, status ticket.Status, page, size int) (*Page, error) {
	page, size = s.normalize(page, size)

	local, total, err := s.listLocal(ctx, status, page, size)
	if err != nil {
		return nil, err
	}
	if page == 1 && len(local) > 0 {
		return &Page{Tickets: local, Total: total, Page: page, PageSize: size}, nil
	}

	if err := s.refreshFromRemote(ctx, status, page, size); err != nil {
		s.logger.Warnw("remote ticket fetch failed, serving cached rows",
			"status", status, "page", page, "error", err)
		return &Page{Tickets: local, Total: total, Page: page, PageSize: size}, nil
	}

	local, total, err = s.listLocal(ctx, status, page, size)
	if err != nil {
		return nil, err
	}
	return &Page{Tickets: local, Total: total, Page: page, PageSize: size}, nil
}

// Refresh forces a remote fetch and merge (pull-to-refresh), then re-reads
// the local page. A remote failure still yields the cached page.
func (s *Service) Refresh(ctx context.Context, status ticket.Status, page, size int) (*Page, error) {
	page, size = s.normalize(page, size)

	if err := s.refreshFromRemote(ctx, status, page, size); err != nil {
		s.logger.Warnw("ticket refresh failed, serving cached rows",
			"status", status, "page", page, "error", err)
	}

	local, total, err := s.listLocal(ctx, status, page, size)
	if err != nil {
		return nil, err
	}
	return &Page{Tickets: local, Total: total, Page: page, PageSize: size}, nil
}

// Resolve marks the ticket resolved on the remote service and merges the
// confirmed resolution into the local row.
func (s *Service) Resolve(ctx context.Context, ticketID uint) (*ticket.Ticket, error) {
	dto, err := s.remote.ResolveTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var merged *ticket.Ticket
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		merged, txErr = s.mergeTicket(ctx, dto)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, fmt.Errorf("resolve returned unusable ticket %d", ticketID)
	}

	s.logger.Infow("ticket resolved", "ticket_id", merged.ID(), "number", merged.Number())
	return merged, nil
}

// MarkRead clears the local unread counter when the officer opens the
// conversation. Read state is device-local and never synced.
func (s *Service) MarkRead(ctx context.Context, ticketID uint) error {
	return s.tickets.MarkRead(ctx, ticketID)
}

// refreshFromRemote fetches one remote page and merges it, recording the
// attempt in the sync log.
func (s *Service) refreshFromRemote(ctx context.Context, status ticket.Status, page, size int) error {
	entry := synclog.NewEntry(synclog.KindTicketRefresh)
	entry.Start()
	if err := s.syncLogs.Save(ctx, entry); err != nil {
		s.logger.Warnw("sync log not recorded", "kind", entry.Kind(), "error", err)
	}

	merged, err := s.fetchAndMerge(ctx, status, page, size)
	if err != nil {
		entry.Fail(err.Error())
	} else {
		entry.Complete(fmt.Sprintf("merged %d tickets", merged))
	}

	if entry.ID() != 0 {
		if updateErr := s.syncLogs.Update(ctx, entry); updateErr != nil {
			s.logger.Warnw("sync log not updated", "kind", entry.Kind(), "error", updateErr)
		}
	}

	return err
}

func (s *Service) fetchAndMerge(ctx context.Context, status ticket.Status, page, size int) (int, error) {
	remotePage, err := s.remote.ListTickets(ctx, status.String(), page, size)
	if err != nil {
		return 0, err
	}

	merged := 0
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range remotePage.Tickets {
			if _, err := s.mergeTicket(ctx, &remotePage.Tickets[i]); err != nil {
				return err
			}
			merged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

// mergeTicket applies one remote ticket: the owning customer is created
// lazily, status is recomputed from resolved_at, and the local unread
// counter survives for rows the device already has. Records that cannot
// yield a valid customer or ticket are skipped with a warning and a nil
// result.
func (s *Service) mergeTicket(ctx context.Context, dto *api.TicketDTO) (*ticket.Ticket, error) {
	if dto.Customer == nil {
		s.logger.Warnw("skipping ticket without customer", "ticket_id", dto.ID, "number", dto.Number)
		return nil, nil
	}

	c, err := dto.Customer.ToDomain()
	if err != nil {
		s.logger.Warnw("skipping ticket with invalid customer",
			"ticket_id", dto.ID, "error", err)
		return nil, nil
	}
	if _, err := s.customers.Upsert(ctx, c); err != nil {
		return nil, err
	}

	// The resolver may be an officer this device has never synced; the row
	// must exist before the ticket references it.
	if dto.ResolvedBy != nil {
		resolver, err := dto.ResolvedBy.ToDomain()
		if err != nil {
			s.logger.Warnw("dropping invalid resolver on remote ticket",
				"ticket_id", dto.ID, "error", err)
			dto.ResolvedBy = nil
		} else if _, err := s.users.Upsert(ctx, resolver); err != nil {
			return nil, err
		}
	}

	t, err := dto.ToDomain()
	if err != nil {
		s.logger.Warnw("skipping invalid remote ticket", "ticket_id", dto.ID, "error", err)
		return nil, nil
	}

	return s.tickets.Upsert(ctx, t)
}

func (s *Service) listLocal(ctx context.Context, status ticket.Status, page, size int) ([]*ticket.WithCustomer, int64, error) {
	switch status {
	case ticket.StatusResolved:
		return s.tickets.ListResolved(ctx, page, size)
	default:
		return s.tickets.ListOpen(ctx, page, size)
	}
}

func (s *Service) normalize(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.pageSize
	}
	return page, size
}
