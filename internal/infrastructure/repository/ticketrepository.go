package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/mappers"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type TicketRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
	logger logger.Interface
}

func NewTicketRepository(database *gorm.DB, log logger.Interface) *TicketRepository {
	return &TicketRepository{
		db:     database,
		mapper: mappers.NewTicketMapper(),
		logger: log.Named("repository.ticket"),
	}
}

func (r *TicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	model := r.mapper.ToModel(t)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("save failed", "entity", "ticket", "ticket_id", t.ID(), "error", err)
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	return nil
}

func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	model := r.mapper.ToModel(t)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Updates(model)

	if result.Error != nil {
		r.logger.Errorw("update failed", "entity", "ticket", "ticket_id", t.ID(), "error", result.Error)
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}

	return nil
}

func (r *TicketRepository) Delete(ctx context.Context, ticketID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Delete(&models.TicketModel{}, ticketID)
	if result.Error != nil {
		r.logger.Errorw("delete failed", "entity", "ticket", "ticket_id", ticketID, "error", result.Error)
		return fmt.Errorf("failed to delete ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("ticket not found")
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, ticketID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("ticket not found")
		}
		r.logger.Errorw("find failed", "entity", "ticket", "ticket_id", ticketID, "error", err)
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *TicketRepository) GetByNumber(ctx context.Context, number string) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("number = ?", number).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("ticket not found")
		}
		r.logger.Errorw("find failed", "entity", "ticket", "number", number, "error", err)
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// Upsert merges a remote ticket into the local store. Lookup is by remote id
// first, then by ticket number. For rows already on the device the local
// unread counter survives the merge; remote unread only seeds rows new to
// the device. Status is re-derived from resolved_at on the way through the
// entity, never taken from the remote payload.
func (r *TicketRepository) Upsert(ctx context.Context, t *ticket.Ticket) (*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	existing, err := r.findExisting(tx, t)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		model := r.mapper.ToModel(t)
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("upsert insert failed", "entity", "ticket", "ticket_id", t.ID(), "error", err)
			return nil, fmt.Errorf("failed to insert ticket: %w", err)
		}
		return t, nil
	}

	merged, err := r.merge(existing, t)
	if err != nil {
		return nil, err
	}

	model := r.mapper.ToModel(merged)
	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ?", existing.ID).
		Select("*").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("upsert update failed", "entity", "ticket", "ticket_id", existing.ID, "error", result.Error)
		return nil, fmt.Errorf("failed to update ticket: %w", result.Error)
	}

	return merged, nil
}

func (r *TicketRepository) findExisting(tx *gorm.DB, t *ticket.Ticket) (*models.TicketModel, error) {
	var model models.TicketModel

	err := tx.First(&model, t.ID()).Error
	if err == nil {
		return &model, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up ticket by id: %w", err)
	}

	err = tx.Where("number = ?", t.Number()).First(&model).Error
	if err == nil {
		return &model, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up ticket by number: %w", err)
	}

	return nil, nil
}

func (r *TicketRepository) merge(existing *models.TicketModel, incoming *ticket.Ticket) (*ticket.Ticket, error) {
	var resolvedAt *time.Time
	if incoming.ResolvedAt() != nil {
		resolvedAt = incoming.ResolvedAt()
	} else if existing.ResolvedAt != nil {
		// A resolution already recorded locally is not un-resolved by a
		// stale remote page.
		t := time.UnixMilli(*existing.ResolvedAt)
		resolvedAt = &t
	}

	resolvedBy := incoming.ResolvedByID()
	if resolvedBy == nil {
		resolvedBy = existing.ResolvedByID
	}

	firstMessageID := incoming.FirstMessageID()
	if len(firstMessageID) == 0 {
		firstMessageID = existing.FirstMessageID
	}
	contextMessageID := incoming.ContextMessageID()
	if len(contextMessageID) == 0 {
		contextMessageID = existing.ContextMessageID
	}
	lastMessageID := incoming.LastMessageID()
	if len(lastMessageID) == 0 {
		lastMessageID = existing.LastMessageID
	}

	return ticket.ReconstructTicket(
		existing.ID,
		existing.Number,
		existing.CustomerID,
		firstMessageID,
		contextMessageID,
		lastMessageID,
		existing.UnreadCount,
		resolvedBy,
		time.UnixMilli(existing.CreatedAt),
		resolvedAt,
	)
}

// ticketRow is the flat scan target for the joined list read-models.
type ticketRow struct {
	ID               uint
	Number           string
	CustomerID       uint
	FirstMessageID   string
	ContextMessageID string
	LastMessageID    string
	Status           string
	UnreadCount      int
	ResolvedByID     *uint
	CreatedAt        int64
	ResolvedAt       *int64
	CustomerName     string
	CustomerPhone    string
	LastMessageBody  string
	LastMessageAt    *int64
}

func (r *TicketRepository) rowToReadModel(row *ticketRow) (*ticket.WithCustomer, error) {
	t, err := r.mapper.ToDomain(&models.TicketModel{
		ID:               row.ID,
		Number:           row.Number,
		CustomerID:       row.CustomerID,
		FirstMessageID:   row.FirstMessageID,
		ContextMessageID: row.ContextMessageID,
		LastMessageID:    row.LastMessageID,
		Status:           row.Status,
		UnreadCount:      row.UnreadCount,
		ResolvedByID:     row.ResolvedByID,
		CreatedAt:        row.CreatedAt,
		ResolvedAt:       row.ResolvedAt,
	})
	if err != nil {
		return nil, err
	}

	rm := &ticket.WithCustomer{
		Ticket:          t,
		CustomerName:    row.CustomerName,
		CustomerPhone:   row.CustomerPhone,
		LastMessageBody: row.LastMessageBody,
	}
	if row.LastMessageAt != nil {
		at := time.UnixMilli(*row.LastMessageAt)
		rm.LastMessageAt = &at
	}
	return rm, nil
}

func (r *TicketRepository) listBase(tx *gorm.DB) *gorm.DB {
	return tx.Table("tickets").
		Select("tickets.*, " +
			"customers.name AS customer_name, " +
			"customers.phone AS customer_phone, " +
			"m.body AS last_message_body, " +
			"m.created_at AS last_message_at").
		Joins("LEFT JOIN customers ON customers.id = tickets.customer_id").
		Joins("LEFT JOIN messages m ON m.wa_message_id = tickets.last_message_id")
}

// ListOpen returns open tickets collapsed to one per customer: the
// earliest-created unresolved ticket, so near-simultaneous messages from the
// same farmer surface as a single actionable conversation. Ordered by unread
// count descending, then most recent activity descending.
func (r *TicketRepository) ListOpen(ctx context.Context, page, pageSize int) ([]*ticket.WithCustomer, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	earliestOpen := "tickets.status = 'open' AND tickets.created_at = (" +
		"SELECT MIN(t2.created_at) FROM tickets t2 " +
		"WHERE t2.customer_id = tickets.customer_id AND t2.status = 'open')"

	var total int64
	if err := tx.Model(&models.TicketModel{}).
		Where("status = 'open'").
		Distinct("customer_id").
		Count(&total).Error; err != nil {
		r.logger.Errorw("count failed", "entity", "ticket", "operation", "list_open", "error", err)
		return nil, 0, fmt.Errorf("failed to count open tickets: %w", err)
	}

	query := r.listBase(tx).
		Where(earliestOpen).
		Order("tickets.unread_count DESC").
		Order("COALESCE(m.created_at, tickets.created_at) DESC")

	if pageSize > 0 {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	var rows []ticketRow
	if err := query.Scan(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "ticket", "operation", "list_open", "error", err)
		return nil, 0, fmt.Errorf("failed to list open tickets: %w", err)
	}

	return r.rowsToReadModels(rows, total)
}

// ListResolved returns every resolved ticket ordered by resolution time
// descending. Customers with an open ticket are not excluded: the resolved
// tab is a history view, and hiding past work behind a new ticket would make
// it unfindable.
func (r *TicketRepository) ListResolved(ctx context.Context, page, pageSize int) ([]*ticket.WithCustomer, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var total int64
	if err := tx.Model(&models.TicketModel{}).
		Where("status = 'resolved'").
		Count(&total).Error; err != nil {
		r.logger.Errorw("count failed", "entity", "ticket", "operation", "list_resolved", "error", err)
		return nil, 0, fmt.Errorf("failed to count resolved tickets: %w", err)
	}

	query := r.listBase(tx).
		Where("tickets.status = 'resolved'").
		Order("tickets.resolved_at DESC")

	if pageSize > 0 {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	var rows []ticketRow
	if err := query.Scan(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "ticket", "operation", "list_resolved", "error", err)
		return nil, 0, fmt.Errorf("failed to list resolved tickets: %w", err)
	}

	return r.rowsToReadModels(rows, total)
}

func (r *TicketRepository) rowsToReadModels(rows []ticketRow, total int64) ([]*ticket.WithCustomer, int64, error) {
	result := make([]*ticket.WithCustomer, 0, len(rows))
	for i := range rows {
		rm, err := r.rowToReadModel(&rows[i])
		if err != nil {
			// A corrupt row is skipped rather than failing the whole list.
			r.logger.Warnw("skipping invalid ticket row", "entity", "ticket", "ticket_id", rows[i].ID, "error", err)
			continue
		}
		result = append(result, rm)
	}
	return result, total, nil
}

func (r *TicketRepository) GetWithCustomer(ctx context.Context, ticketID uint) (*ticket.WithCustomer, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var row ticketRow
	err := r.listBase(tx).Where("tickets.id = ?", ticketID).Scan(&row).Error
	if err != nil {
		r.logger.Errorw("find failed", "entity", "ticket", "operation", "get_with_customer", "ticket_id", ticketID, "error", err)
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	if row.ID == 0 {
		return nil, errors.NewNotFoundError("ticket not found")
	}

	return r.rowToReadModel(&row)
}

// NextTicketAfter returns the customer's next ticket created strictly after
// the given time. It bounds conversation reads so an older ticket's view
// never includes a newer ticket's messages.
func (r *TicketRepository) NextTicketAfter(ctx context.Context, customerID uint, after time.Time) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	err := tx.
		Where("customer_id = ? AND created_at > ?", customerID, after.UnixMilli()).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("no later ticket for customer")
		}
		r.logger.Errorw("find failed", "entity", "ticket", "operation", "next_after", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to find next ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *TicketRepository) MarkRead(ctx context.Context, ticketID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.TicketModel{}).
		Where("id = ?", ticketID).
		Update("unread_count", 0)
	if result.Error != nil {
		r.logger.Errorw("mark read failed", "entity", "ticket", "ticket_id", ticketID, "error", result.Error)
		return fmt.Errorf("failed to mark ticket read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("ticket not found")
	}
	return nil
}

func (r *TicketRepository) IncrementUnread(ctx context.Context, ticketID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.TicketModel{}).
		Where("id = ?", ticketID).
		Update("unread_count", gorm.Expr("unread_count + 1"))
	if result.Error != nil {
		r.logger.Errorw("increment unread failed", "entity", "ticket", "ticket_id", ticketID, "error", result.Error)
		return fmt.Errorf("failed to increment unread count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("ticket not found")
	}
	return nil
}
