package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
)

func makeTicket(t *testing.T, id uint, number string, customerID uint, createdAt time.Time) *ticket.Ticket {
	t.Helper()
	tk, err := ticket.NewTicket(id, number, customerID, createdAt)
	require.NoError(t, err)
	return tk
}

func TestTicketRepository_Upsert(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTicketRepository(gdb, testLogger())
	ctx := context.Background()

	seedCustomer(t, gdb, 10, "Amina", "+255700000001")
	seedUser(t, gdb, 3, "officer@akvo.org", "Neema")
	seedUser(t, gdb, 7, "supervisor@akvo.org", "Baraka")
	created := time.Now().Add(-2 * time.Hour).Truncate(time.Millisecond)

	t.Run("inserts a ticket new to the device", func(t *testing.T) {
		tk := makeTicket(t, 1, "TK-001", 10, created)
		tk.SeedUnread(4)

		_, err := repo.Upsert(ctx, tk)
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "TK-001", found.Number())
		assert.Equal(t, 4, found.UnreadCount())
	})

	t.Run("repeated upsert is idempotent", func(t *testing.T) {
		tk := makeTicket(t, 1, "TK-001", 10, created)
		_, err := repo.Upsert(ctx, tk)
		require.NoError(t, err)

		var count int64
		require.NoError(t, gdb.Table("tickets").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("local unread counter survives remote refresh", func(t *testing.T) {
		require.NoError(t, repo.MarkRead(ctx, 1))
		require.NoError(t, repo.IncrementUnread(ctx, 1))
		require.NoError(t, repo.IncrementUnread(ctx, 1))

		incoming := makeTicket(t, 1, "TK-001", 10, created)
		incoming.SeedUnread(9)

		merged, err := repo.Upsert(ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, 2, merged.UnreadCount())

		found, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, found.UnreadCount())
	})

	t.Run("stale open remote row does not un-resolve", func(t *testing.T) {
		resolved := makeTicket(t, 1, "TK-001", 10, created)
		require.NoError(t, resolved.Resolve(3, time.Now()))
		_, err := repo.Upsert(ctx, resolved)
		require.NoError(t, err)

		stale := makeTicket(t, 1, "TK-001", 10, created)
		merged, err := repo.Upsert(ctx, stale)
		require.NoError(t, err)

		assert.True(t, merged.IsResolved())
		found, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, ticket.StatusResolved, found.Status())
	})

	t.Run("remote resolution lands on a known open ticket", func(t *testing.T) {
		tk := makeTicket(t, 2, "TK-002", 10, created.Add(time.Minute))
		_, err := repo.Upsert(ctx, tk)
		require.NoError(t, err)

		incoming := makeTicket(t, 2, "TK-002", 10, created.Add(time.Minute))
		require.NoError(t, incoming.Resolve(7, time.Now()))

		merged, err := repo.Upsert(ctx, incoming)
		require.NoError(t, err)
		assert.True(t, merged.IsResolved())
		require.NotNil(t, merged.ResolvedByID())
		assert.Equal(t, uint(7), *merged.ResolvedByID())
	})
}

func TestTicketRepository_ListOpen(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTicketRepository(gdb, testLogger())
	ctx := context.Background()

	seedCustomer(t, gdb, 10, "Amina", "+255700000001")
	seedCustomer(t, gdb, 20, "Joseph", "+255700000002")
	seedUser(t, gdb, 3, "officer@akvo.org", "Neema")

	base := time.Now().Add(-3 * time.Hour).Truncate(time.Millisecond)

	// Customer 10 has two open tickets; only the earliest should surface.
	_, err := repo.Upsert(ctx, makeTicket(t, 1, "TK-001", 10, base))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, makeTicket(t, 2, "TK-002", 10, base.Add(time.Minute)))
	require.NoError(t, err)

	// Customer 20 has one resolved and one open ticket.
	resolved := makeTicket(t, 3, "TK-003", 20, base.Add(2*time.Minute))
	require.NoError(t, resolved.Resolve(3, time.Now()))
	_, err = repo.Upsert(ctx, resolved)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, makeTicket(t, 4, "TK-004", 20, base.Add(3*time.Minute)))
	require.NoError(t, err)

	rows, total, err := repo.ListOpen(ctx, 1, 20)
	require.NoError(t, err)

	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	ids := []uint{rows[0].Ticket.ID(), rows[1].Ticket.ID()}
	assert.Contains(t, ids, uint(1))
	assert.Contains(t, ids, uint(4))
	assert.NotContains(t, ids, uint(2))
	assert.NotContains(t, ids, uint(3))

	t.Run("unread tickets sort first", func(t *testing.T) {
		require.NoError(t, repo.IncrementUnread(ctx, 4))

		rows, _, err := repo.ListOpen(ctx, 1, 20)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, uint(4), rows[0].Ticket.ID())
	})

	t.Run("carries customer details", func(t *testing.T) {
		rows, _, err := repo.ListOpen(ctx, 1, 20)
		require.NoError(t, err)

		for _, row := range rows {
			if row.Ticket.ID() == 1 {
				assert.Equal(t, "Amina", row.CustomerName)
				assert.Equal(t, "+255700000001", row.CustomerPhone)
			}
		}
	})
}

func TestTicketRepository_ListResolved(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTicketRepository(gdb, testLogger())
	ctx := context.Background()

	seedCustomer(t, gdb, 10, "Amina", "+255700000001")
	seedUser(t, gdb, 3, "officer@akvo.org", "Neema")
	base := time.Now().Add(-3 * time.Hour).Truncate(time.Millisecond)

	first := makeTicket(t, 1, "TK-001", 10, base)
	require.NoError(t, first.Resolve(3, base.Add(time.Hour)))
	_, err := repo.Upsert(ctx, first)
	require.NoError(t, err)

	second := makeTicket(t, 2, "TK-002", 10, base.Add(time.Minute))
	require.NoError(t, second.Resolve(3, base.Add(2*time.Hour)))
	_, err = repo.Upsert(ctx, second)
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, makeTicket(t, 3, "TK-003", 10, base.Add(2*time.Minute)))
	require.NoError(t, err)

	rows, total, err := repo.ListResolved(ctx, 1, 20)
	require.NoError(t, err)

	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	// Most recently resolved first.
	assert.Equal(t, uint(2), rows[0].Ticket.ID())
	assert.Equal(t, uint(1), rows[1].Ticket.ID())
}

func TestTicketRepository_NextTicketAfter(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTicketRepository(gdb, testLogger())
	ctx := context.Background()

	seedCustomer(t, gdb, 10, "Amina", "+255700000001")
	base := time.Now().Add(-3 * time.Hour).Truncate(time.Millisecond)

	_, err := repo.Upsert(ctx, makeTicket(t, 1, "TK-001", 10, base))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, makeTicket(t, 2, "TK-002", 10, base.Add(time.Hour)))
	require.NoError(t, err)

	t.Run("returns the next ticket strictly after", func(t *testing.T) {
		next, err := repo.NextTicketAfter(ctx, 10, base)
		require.NoError(t, err)
		assert.Equal(t, uint(2), next.ID())
	})

	t.Run("ticket's own creation time is excluded", func(t *testing.T) {
		_, err := repo.NextTicketAfter(ctx, 10, base.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestTicketRepository_MarkRead(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTicketRepository(gdb, testLogger())
	ctx := context.Background()

	seedCustomer(t, gdb, 10, "Amina", "+255700000001")

	tk := makeTicket(t, 1, "TK-001", 10, time.Now().Add(-time.Hour))
	tk.SeedUnread(3)
	_, err := repo.Upsert(ctx, tk)
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, 1))

	found, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, found.UnreadCount())

	t.Run("unknown ticket", func(t *testing.T) {
		err := repo.MarkRead(ctx, 999)
		assert.True(t, errors.IsNotFound(err))
	})
}
