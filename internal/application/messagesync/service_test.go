package messagesync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/message"
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
	messages   []api.MessageDTO
	listErr    error
	listCalls  int
	lastBefore int64
	created    *api.MessageDTO
	createErr  error
	createReq  api.CreateMessageRequest
}

func (f *fakeRemote) ListMessages(ctx context.Context, customerID uint, beforeTS int64, limit int) ([]api.MessageDTO, error) {
	f.listCalls++
	f.lastBefore = beforeTS
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages, nil
}

func (f *fakeRemote) CreateMessage(ctx context.Context, body api.CreateMessageRequest) (*api.MessageDTO, error) {
	f.createReq = body
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

type fixture struct {
	gdb      *gorm.DB
	tickets  *repository.TicketRepository
	messages *repository.MessageRepository
	users    *repository.UserRepository
	syncLogs *repository.SyncLogRepository
	log      logger.Interface
	remote   *fakeRemote
	svc      *Service
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
	messages := repository.NewMessageRepository(gdb, log)
	users := repository.NewUserRepository(gdb, log)
	syncLogs := repository.NewSyncLogRepository(gdb, log)
	remote := &fakeRemote{}

	svc := NewService(tickets, messages, users, syncLogs, remote, db.NewTransactionManager(gdb), 50, log)

	return &fixture{
		gdb:      gdb,
		tickets:  tickets,
		messages: messages,
		users:    users,
		syncLogs: syncLogs,
		log:      log,
		remote:   remote,
		svc:      svc,
	}
}

func (f *fixture) seedCustomer(t *testing.T, id uint) {
	t.Helper()
	c, err := customer.ReconstructCustomer(id, "Amina", "+255700000001", "", "", nil, "", time.Now())
	require.NoError(t, err)
	repo := repository.NewCustomerRepository(f.gdb, logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, repo.Save(context.Background(), c))
}

func (f *fixture) seedTicket(t *testing.T, id uint, customerID uint, createdAt time.Time) {
	t.Helper()
	tk, err := ticket.NewTicket(id, fmt.Sprintf("TK-%03d", id), customerID, createdAt)
	require.NoError(t, err)
	_, err = f.tickets.Upsert(context.Background(), tk)
	require.NoError(t, err)
}

func (f *fixture) seedMessage(t *testing.T, waMessageID string, customerID uint, createdAt time.Time) {
	t.Helper()
	msg, err := message.ReconstructMessage(0, message.OriginCustomer, waMessageID, customerID, nil, "body", message.TypeText, message.DeliveryDelivered, createdAt)
	require.NoError(t, err)
	_, err = f.messages.Upsert(context.Background(), msg)
	require.NoError(t, err)
}

func remoteMessage(id uint, waMessageID string, customerID uint, createdAt time.Time) api.MessageDTO {
	return api.MessageDTO{
		ID:          id,
		WAMessageID: waMessageID,
		CustomerID:  customerID,
		Body:        "body " + waMessageID,
		MessageType: "text",
		Status:      "delivered",
		CreatedAt:   createdAt.UnixMilli(),
	}
}

func TestService_LoadConversation_Boundaries(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour).Truncate(time.Millisecond)

	f := newFixture(t)
	f.seedCustomer(t, 10)
	f.seedTicket(t, 1, 10, base)
	f.seedTicket(t, 2, 10, base.Add(time.Hour))

	f.seedMessage(t, "wamid.before", 10, base.Add(-time.Minute))
	f.seedMessage(t, "wamid.in-1", 10, base.Add(time.Minute))
	f.seedMessage(t, "wamid.in-2", 10, base.Add(2*time.Minute))
	f.seedMessage(t, "wamid.next-ticket", 10, base.Add(time.Hour))

	t.Run("older ticket window is half-open", func(t *testing.T) {
		rows, err := f.svc.LoadConversation(ctx, 1)
		require.NoError(t, err)

		require.Len(t, rows, 2)
		assert.Equal(t, "wamid.in-1", rows[0].Message.WAMessageID())
		assert.Equal(t, "wamid.in-2", rows[1].Message.WAMessageID())
	})

	t.Run("latest ticket is unbounded above", func(t *testing.T) {
		rows, err := f.svc.LoadConversation(ctx, 2)
		require.NoError(t, err)

		require.Len(t, rows, 1)
		assert.Equal(t, "wamid.next-ticket", rows[0].Message.WAMessageID())
	})

	t.Run("unknown ticket", func(t *testing.T) {
		_, err := f.svc.LoadConversation(ctx, 999)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_CatchUp(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	t.Run("merges the newest remote page", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)
		f.remote.messages = []api.MessageDTO{
			remoteMessage(1, "wamid.1", 10, base.Add(time.Minute)),
			remoteMessage(2, "wamid.2", 10, base.Add(2*time.Minute)),
		}

		f.svc.CatchUp(ctx, 1)

		rows, err := f.svc.LoadConversation(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, int64(0), f.remote.lastBefore)
	})

	t.Run("remote failure keeps the cached conversation", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)
		f.seedMessage(t, "wamid.cached", 10, base.Add(time.Minute))
		f.remote.listErr = apperrors.NewSyncError("remote service unreachable")

		f.svc.CatchUp(ctx, 1)

		rows, err := f.svc.LoadConversation(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("replayed page stays idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)
		f.remote.messages = []api.MessageDTO{remoteMessage(1, "wamid.1", 10, base.Add(time.Minute))}

		f.svc.CatchUp(ctx, 1)
		f.svc.CatchUp(ctx, 1)

		var count int64
		require.NoError(t, f.gdb.Table("messages").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestService_LoadOlder(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-4 * time.Hour).Truncate(time.Millisecond)

	t.Run("backfills history and returns the next cursor", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		cursor := base.Add(time.Hour)
		f.remote.messages = []api.MessageDTO{
			remoteMessage(1, "wamid.old-1", 10, base.Add(10*time.Minute)),
			remoteMessage(2, "wamid.old-2", 10, base.Add(20*time.Minute)),
		}

		page, next, err := f.svc.LoadOlder(ctx, 1, cursor.UnixMilli())
		require.NoError(t, err)
		assert.Equal(t, cursor.UnixMilli(), f.remote.lastBefore)

		require.Len(t, page, 2)
		assert.Equal(t, "wamid.old-1", page[0].Message.WAMessageID())
		require.NotNil(t, next)
		assert.Equal(t, base.Add(10*time.Minute).UnixMilli(), *next)
	})

	t.Run("empty remote page means exhausted history", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		page, next, err := f.svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.NoError(t, err)
		assert.Nil(t, page)
		assert.Nil(t, next)
	})

	t.Run("messages before the ticket window are stored but not shown", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		f.remote.messages = []api.MessageDTO{
			remoteMessage(1, "wamid.ancient", 10, base.Add(-time.Hour)),
		}

		page, next, err := f.svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.NoError(t, err)
		assert.Nil(t, page)
		assert.Nil(t, next)

		var count int64
		require.NoError(t, f.gdb.Table("messages").Count(&count).Error)
		assert.EqualValues(t, 1, count, "fetched history stays cached")
	})

	t.Run("remote failure is retryable", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)
		f.remote.listErr = apperrors.NewSyncError("remote service unreachable")

		_, _, err := f.svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.Error(t, err)
		assert.True(t, apperrors.IsRetryable(err))
	})

	t.Run("unknown staff sender is created with the batch", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		staff := remoteMessage(1, "wamid.staff", 10, base.Add(10*time.Minute))
		staff.Sender = &api.UserDTO{ID: 42, Email: "colleague@akvo.org", Name: "Joseph"}
		f.remote.messages = []api.MessageDTO{
			staff,
			remoteMessage(2, "wamid.customer", 10, base.Add(20*time.Minute)),
		}

		page, next, err := f.svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.NotNil(t, next)

		sender, err := f.users.GetByID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "Joseph", sender.Name())
	})

	t.Run("invalid sender skips the record, batch continues", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		broken := remoteMessage(1, "wamid.broken", 10, base.Add(10*time.Minute))
		broken.Sender = &api.UserDTO{ID: 42} // no email
		f.remote.messages = []api.MessageDTO{
			broken,
			remoteMessage(2, "wamid.ok", 10, base.Add(20*time.Minute)),
		}

		page, _, err := f.svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "wamid.ok", page[0].Message.WAMessageID())
	})

	t.Run("interleaved local rows near the cursor are kept", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		// Channel frames already wrote newer rows inside the span the
		// backfill is about to re-read.
		f.seedMessage(t, "wamid.live-1", 10, base.Add(30*time.Minute))
		f.seedMessage(t, "wamid.live-2", 10, base.Add(35*time.Minute))

		f.remote.messages = []api.MessageDTO{
			remoteMessage(1, "wamid.old-1", 10, base.Add(10*time.Minute)),
			remoteMessage(2, "wamid.old-2", 10, base.Add(20*time.Minute)),
		}

		svc := NewService(f.tickets, f.messages, f.users, f.syncLogs, f.remote,
			db.NewTransactionManager(f.gdb), 2, f.log)

		page, next, err := svc.LoadOlder(ctx, 1, base.Add(time.Hour).UnixMilli())
		require.NoError(t, err)

		require.Len(t, page, 4, "rows between the fetched span and the cursor must not be cut")
		assert.Equal(t, "wamid.old-1", page[0].Message.WAMessageID())
		assert.Equal(t, "wamid.live-2", page[3].Message.WAMessageID())
		require.NotNil(t, next)
		assert.Equal(t, base.Add(10*time.Minute).UnixMilli(), *next)
	})
}

func TestService_SendMessage(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	t.Run("stores the accepted message and updates the preview", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		sent := remoteMessage(99, "wamid.99", 10, time.Now().Truncate(time.Millisecond))
		sent.Sender = &api.UserDTO{ID: 3, Email: "officer@akvo.org"}
		f.remote.created = &sent

		msg, err := f.svc.SendMessage(ctx, 1, "hello farmer", message.TypeText)
		require.NoError(t, err)

		assert.Equal(t, uint(1), f.remote.createReq.TicketID)
		assert.Equal(t, "hello farmer", f.remote.createReq.Body)
		assert.Equal(t, message.OriginUser, msg.Origin())

		stored, err := f.tickets.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "wamid.99", stored.LastMessageID())
	})

	t.Run("whispers cannot be sent", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)

		_, err := f.svc.SendMessage(ctx, 1, "suggestion", message.TypeWhisper)
		require.Error(t, err)

		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	})

	t.Run("remote rejection stores nothing", func(t *testing.T) {
		f := newFixture(t)
		f.seedCustomer(t, 10)
		f.seedTicket(t, 1, 10, base)
		f.remote.createErr = apperrors.NewSyncError("remote service unreachable")

		_, err := f.svc.SendMessage(ctx, 1, "hello", message.TypeText)
		require.Error(t, err)

		var count int64
		require.NoError(t, f.gdb.Table("messages").Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}
