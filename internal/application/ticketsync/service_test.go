package ticketsync

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/repository"
	"github.com/akvo/agriconnect-sub001/internal/shared/config"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type fakeRemote struct {
	pages      map[string]*api.TicketPageDTO
	listErr    error
	listCalls  int
	resolveDTO *api.TicketDTO
	resolveErr error
	resolveGot uint
}

func (f *fakeRemote) ListTickets(ctx context.Context, status string, page, size int) (*api.TicketPageDTO, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if p, ok := f.pages[status]; ok {
		return p, nil
	}
	return &api.TicketPageDTO{}, nil
}

func (f *fakeRemote) ResolveTicket(ctx context.Context, ticketID uint) (*api.TicketDTO, error) {
	f.resolveGot = ticketID
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolveDTO, nil
}

type fixture struct {
	gdb     *gorm.DB
	tickets *repository.TicketRepository
	users   *repository.UserRepository
	remote  *fakeRemote
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// Production schema and pragmas: goose migrations over a file DSN with
	// foreign keys enforced.
	dbCfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db")}
	gdb, err := gorm.Open(sqlite.Open(dbCfg.GetDSN()), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.NewManagerWithStrategy(migration.NewGooseStrategy()).Migrate(gdb))

	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tickets := repository.NewTicketRepository(gdb, log)
	customers := repository.NewCustomerRepository(gdb, log)
	users := repository.NewUserRepository(gdb, log)
	syncLogs := repository.NewSyncLogRepository(gdb, log)
	remote := &fakeRemote{pages: map[string]*api.TicketPageDTO{}}

	svc := NewService(tickets, customers, users, syncLogs, remote, db.NewTransactionManager(gdb), 20, log)

	return &fixture{gdb: gdb, tickets: tickets, users: users, remote: remote, svc: svc}
}

func remoteTicket(id uint, number string, customerID uint, createdAt time.Time) api.TicketDTO {
	return api.TicketDTO{
		ID:     id,
		Number: number,
		Customer: &api.CustomerDTO{
			ID:    customerID,
			Name:  "Amina",
			Phone: "+255700000001",
		},
		Status:    "open",
		CreatedAt: createdAt.UnixMilli(),
	}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	t.Run("empty cache fetches from remote", func(t *testing.T) {
		f := newFixture(t)
		f.remote.pages["open"] = &api.TicketPageDTO{
			Total:   1,
			Tickets: []api.TicketDTO{remoteTicket(1, "TK-001", 10, base)},
		}

		page, err := f.svc.List(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)

		assert.Equal(t, 1, f.remote.listCalls)
		require.Len(t, page.Tickets, 1)
		assert.Equal(t, "TK-001", page.Tickets[0].Ticket.Number())
		assert.Equal(t, "Amina", page.Tickets[0].CustomerName)
	})

	t.Run("warm cache answers page 1 without the network", func(t *testing.T) {
		f := newFixture(t)
		f.remote.pages["open"] = &api.TicketPageDTO{
			Total:   1,
			Tickets: []api.TicketDTO{remoteTicket(1, "TK-001", 10, base)},
		}

		_, err := f.svc.List(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)
		require.Equal(t, 1, f.remote.listCalls)

		_, err = f.svc.List(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 1, f.remote.listCalls, "page 1 must come from cache")
	})

	t.Run("remote failure degrades to cached rows", func(t *testing.T) {
		f := newFixture(t)
		f.remote.pages["open"] = &api.TicketPageDTO{
			Total:   1,
			Tickets: []api.TicketDTO{remoteTicket(1, "TK-001", 10, base)},
		}

		_, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)

		f.remote.listErr = apperrors.NewSyncError("remote service unreachable")
		page, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)
		require.Len(t, page.Tickets, 1)
		assert.Equal(t, "TK-001", page.Tickets[0].Ticket.Number())
	})

	t.Run("resolved listing consults remote then serves merged rows", func(t *testing.T) {
		f := newFixture(t)
		resolvedAt := base.Add(time.Hour).UnixMilli()
		dto := remoteTicket(2, "TK-002", 10, base)
		dto.Status = "resolved"
		dto.ResolvedAt = &resolvedAt
		dto.ResolvedBy = &api.UserDTO{ID: 3, Email: "officer@akvo.org"}
		f.remote.pages["resolved"] = &api.TicketPageDTO{Total: 1, Tickets: []api.TicketDTO{dto}}

		page, err := f.svc.List(ctx, ticket.StatusResolved, 1, 20)
		require.NoError(t, err)
		require.Len(t, page.Tickets, 1)
		assert.True(t, page.Tickets[0].Ticket.IsResolved())

		// The resolver was never synced to this device; the merge must
		// create the user row the ticket references.
		_, err = f.users.GetByID(ctx, 3)
		require.NoError(t, err)
	})

	t.Run("invalid resolver is dropped, ticket still merges", func(t *testing.T) {
		f := newFixture(t)
		resolvedAt := base.Add(time.Hour).UnixMilli()
		dto := remoteTicket(2, "TK-002", 10, base)
		dto.Status = "resolved"
		dto.ResolvedAt = &resolvedAt
		dto.ResolvedBy = &api.UserDTO{ID: 42} // no email
		f.remote.pages["resolved"] = &api.TicketPageDTO{Total: 1, Tickets: []api.TicketDTO{dto}}

		page, err := f.svc.List(ctx, ticket.StatusResolved, 1, 20)
		require.NoError(t, err)
		require.Len(t, page.Tickets, 1)
		assert.True(t, page.Tickets[0].Ticket.IsResolved())
		assert.Nil(t, page.Tickets[0].Ticket.ResolvedByID())
	})
}

func TestService_Refresh_PreservesLocalUnread(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	f := newFixture(t)
	seeded := remoteTicket(1, "TK-001", 10, base)
	seeded.UnreadCount = 2
	f.remote.pages["open"] = &api.TicketPageDTO{Total: 1, Tickets: []api.TicketDTO{seeded}}

	// First refresh: ticket is new to the device, remote unread seeds it.
	page, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, 2, page.Tickets[0].Ticket.UnreadCount())

	// Officer reads the conversation, then the channel delivers one more.
	require.NoError(t, f.svc.MarkRead(ctx, 1))
	require.NoError(t, f.tickets.IncrementUnread(ctx, 1))

	// A remote refresh carrying a stale counter must not clobber it.
	stale := remoteTicket(1, "TK-001", 10, base)
	stale.UnreadCount = 7
	f.remote.pages["open"] = &api.TicketPageDTO{Total: 1, Tickets: []api.TicketDTO{stale}}

	page, err = f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, 1, page.Tickets[0].Ticket.UnreadCount())
}

func TestService_Refresh_SkipsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	f := newFixture(t)
	bad := remoteTicket(2, "TK-BAD", 0, base)
	bad.Customer = nil
	f.remote.pages["open"] = &api.TicketPageDTO{
		Total:   2,
		Tickets: []api.TicketDTO{bad, remoteTicket(1, "TK-001", 10, base)},
	}

	page, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, "TK-001", page.Tickets[0].Ticket.Number())
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	t.Run("merges the confirmed resolution locally", func(t *testing.T) {
		f := newFixture(t)
		f.remote.pages["open"] = &api.TicketPageDTO{
			Total:   1,
			Tickets: []api.TicketDTO{remoteTicket(1, "TK-001", 10, base)},
		}
		_, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)

		resolvedAt := time.Now().UnixMilli()
		dto := remoteTicket(1, "TK-001", 10, base)
		dto.Status = "resolved"
		dto.ResolvedAt = &resolvedAt
		dto.ResolvedBy = &api.UserDTO{ID: 3, Email: "officer@akvo.org"}
		f.remote.resolveDTO = &dto

		resolved, err := f.svc.Resolve(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), f.remote.resolveGot)
		assert.True(t, resolved.IsResolved())

		stored, err := f.tickets.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, ticket.StatusResolved, stored.Status())
	})

	t.Run("remote failure leaves the local row untouched", func(t *testing.T) {
		f := newFixture(t)
		f.remote.pages["open"] = &api.TicketPageDTO{
			Total:   1,
			Tickets: []api.TicketDTO{remoteTicket(1, "TK-001", 10, base)},
		}
		_, err := f.svc.Refresh(ctx, ticket.StatusOpen, 1, 20)
		require.NoError(t, err)

		f.remote.resolveErr = apperrors.NewSyncError("remote service unreachable")
		_, err = f.svc.Resolve(ctx, 1)
		require.Error(t, err)
		assert.True(t, apperrors.IsRetryable(err))

		stored, err := f.tickets.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.False(t, stored.IsResolved())
	})
}
