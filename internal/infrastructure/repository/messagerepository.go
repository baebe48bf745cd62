package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/message"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/mappers"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type MessageRepository struct {
	db     *gorm.DB
	mapper mappers.MessageMapper
	logger logger.Interface
}

func NewMessageRepository(database *gorm.DB, log logger.Interface) *MessageRepository {
	return &MessageRepository{
		db:     database,
		mapper: mappers.NewMessageMapper(),
		logger: log.Named("repository.message"),
	}
}

func (r *MessageRepository) Save(ctx context.Context, msg *message.Message) error {
	model := r.mapper.ToModel(msg)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("save failed", "entity", "message", "wa_message_id", msg.WAMessageID(), "error", err)
		return fmt.Errorf("failed to save message: %w", err)
	}

	if msg.ID() == 0 {
		if err := msg.SetID(model.ID); err != nil {
			return err
		}
	}

	return nil
}

func (r *MessageRepository) Update(ctx context.Context, msg *message.Message) error {
	model := r.mapper.ToModel(msg)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.MessageModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Updates(model)

	if result.Error != nil {
		r.logger.Errorw("update failed", "entity", "message", "message_id", msg.ID(), "error", result.Error)
		return fmt.Errorf("failed to update message: %w", result.Error)
	}

	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, messageID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Delete(&models.MessageModel{}, messageID)
	if result.Error != nil {
		r.logger.Errorw("delete failed", "entity", "message", "message_id", messageID, "error", result.Error)
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("message not found")
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID uint) (*message.Message, error) {
	var model models.MessageModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, messageID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("message not found")
		}
		r.logger.Errorw("find failed", "entity", "message", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to find message: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *MessageRepository) GetByWAMessageID(ctx context.Context, waMessageID string) (*message.Message, error) {
	var model models.MessageModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("wa_message_id = ?", waMessageID).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("message not found")
		}
		r.logger.Errorw("find failed", "entity", "message", "wa_message_id", waMessageID, "error", err)
		return nil, fmt.Errorf("failed to find message: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// Upsert inserts a message or recognizes it as already synced. Lookup is by
// remote id first, then by the external message identifier, which makes
// repeated page fetches and replayed channel events yield exactly one row.
// For existing rows only the delivery status is applied, and only forward.
func (r *MessageRepository) Upsert(ctx context.Context, msg *message.Message) (*message.Message, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	existing, err := r.findExisting(tx, msg)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		model := r.mapper.ToModel(msg)
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("upsert insert failed", "entity", "message", "wa_message_id", msg.WAMessageID(), "error", err)
			return nil, fmt.Errorf("failed to insert message: %w", err)
		}
		if msg.ID() == 0 {
			if err := msg.SetID(model.ID); err != nil {
				return nil, err
			}
		}
		return msg, nil
	}

	current, err := r.mapper.ToDomain(existing)
	if err != nil {
		return nil, err
	}

	if err := current.UpdateDeliveryStatus(msg.DeliveryStatus()); err != nil {
		// A failed-then-revived sequence is a remote inconsistency; keep
		// the local terminal state.
		r.logger.Warnw("ignoring delivery status regression", "entity", "message",
			"wa_message_id", current.WAMessageID(), "status", msg.DeliveryStatus().String())
		return current, nil
	}

	if current.DeliveryStatus() != message.DeliveryStatus(existing.Status) {
		result := tx.Model(&models.MessageModel{}).
			Where("id = ?", existing.ID).
			Update("status", current.DeliveryStatus().String())
		if result.Error != nil {
			r.logger.Errorw("upsert update failed", "entity", "message", "message_id", existing.ID, "error", result.Error)
			return nil, fmt.Errorf("failed to update message: %w", result.Error)
		}
	}

	return current, nil
}

func (r *MessageRepository) findExisting(tx *gorm.DB, msg *message.Message) (*models.MessageModel, error) {
	var model models.MessageModel

	if msg.ID() != 0 {
		err := tx.First(&model, msg.ID()).Error
		if err == nil {
			return &model, nil
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up message by id: %w", err)
		}
	}

	err := tx.Where("wa_message_id = ?", msg.WAMessageID()).First(&model).Error
	if err == nil {
		return &model, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up message by external id: %w", err)
	}

	return nil, nil
}

func (r *MessageRepository) conversationQuery(tx *gorm.DB, customerID uint, from, to time.Time) *gorm.DB {
	query := tx.
		Where("customer_id = ?", customerID).
		Where("status NOT IN ('failed', 'undelivered')").
		Where("created_at >= ?", from.UnixMilli())
	if !to.IsZero() {
		query = query.Where("created_at < ?", to.UnixMilli())
	}
	return query.Order("created_at ASC")
}

// ListConversation returns displayable messages for the customer within
// [from, to), ascending. A zero `to` means no upper bound.
func (r *MessageRepository) ListConversation(ctx context.Context, customerID uint, from, to time.Time, limit int) ([]*message.Message, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	query := r.conversationQuery(tx.Model(&models.MessageModel{}), customerID, from, to)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.MessageModel
	if err := query.Find(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "message", "operation", "list_conversation", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}

	result := make([]*message.Message, 0, len(rows))
	for i := range rows {
		msg, err := r.mapper.ToDomain(&rows[i])
		if err != nil {
			r.logger.Warnw("skipping invalid message row", "entity", "message", "message_id", rows[i].ID, "error", err)
			continue
		}
		result = append(result, msg)
	}

	return result, nil
}

type messageRow struct {
	models.MessageModel
	SenderName string
}

// ListWithSender is ListConversation joined with the sender display name for
// staff-authored messages.
func (r *MessageRepository) ListWithSender(ctx context.Context, customerID uint, from, to time.Time, limit int) ([]*message.WithSender, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	query := tx.Table("messages").
		Select("messages.*, users.name AS sender_name").
		Joins("LEFT JOIN users ON users.id = messages.sender_user_id").
		Where("messages.customer_id = ?", customerID).
		Where("messages.status NOT IN ('failed', 'undelivered')").
		Where("messages.created_at >= ?", from.UnixMilli())
	if !to.IsZero() {
		query = query.Where("messages.created_at < ?", to.UnixMilli())
	}
	query = query.Order("messages.created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []messageRow
	if err := query.Scan(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "message", "operation", "list_with_sender", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to list conversation with senders: %w", err)
	}

	result := make([]*message.WithSender, 0, len(rows))
	for i := range rows {
		msg, err := r.mapper.ToDomain(&rows[i].MessageModel)
		if err != nil {
			r.logger.Warnw("skipping invalid message row", "entity", "message", "message_id", rows[i].ID, "error", err)
			continue
		}
		result = append(result, &message.WithSender{
			Message:    msg,
			SenderName: rows[i].SenderName,
		})
	}

	return result, nil
}

// UpdateDeliveryStatus applies a status event pushed over the channel.
func (r *MessageRepository) UpdateDeliveryStatus(ctx context.Context, waMessageID string, status message.DeliveryStatus) error {
	msg, err := r.GetByWAMessageID(ctx, waMessageID)
	if err != nil {
		return err
	}

	if err := msg.UpdateDeliveryStatus(status); err != nil {
		r.logger.Warnw("ignoring delivery status regression", "entity", "message",
			"wa_message_id", waMessageID, "status", status.String())
		return nil
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.MessageModel{}).
		Where("wa_message_id = ?", waMessageID).
		Update("status", msg.DeliveryStatus().String())
	if result.Error != nil {
		r.logger.Errorw("status update failed", "entity", "message", "wa_message_id", waMessageID, "error", result.Error)
		return fmt.Errorf("failed to update delivery status: %w", result.Error)
	}

	return nil
}
