package mappers

import (
	"time"

	"github.com/akvo/agriconnect-sub001/internal/domain/message"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
)

type MessageMapper interface {
	ToModel(msg *message.Message) *models.MessageModel
	ToDomain(model *models.MessageModel) (*message.Message, error)
}

type MessageMapperImpl struct{}

func NewMessageMapper() MessageMapper {
	return &MessageMapperImpl{}
}

func (m *MessageMapperImpl) ToModel(msg *message.Message) *models.MessageModel {
	return &models.MessageModel{
		ID:           msg.ID(),
		Origin:       msg.Origin().String(),
		WAMessageID:  msg.WAMessageID(),
		CustomerID:   msg.CustomerID(),
		SenderUserID: msg.SenderUserID(),
		Body:         msg.Body(),
		MessageType:  msg.Type().String(),
		Status:       msg.DeliveryStatus().String(),
		CreatedAt:    msg.CreatedAt().UnixMilli(),
	}
}

func (m *MessageMapperImpl) ToDomain(model *models.MessageModel) (*message.Message, error) {
	return message.ReconstructMessage(
		model.ID,
		message.Origin(model.Origin),
		model.WAMessageID,
		model.CustomerID,
		model.SenderUserID,
		model.Body,
		message.Type(model.MessageType),
		message.DeliveryStatus(model.Status),
		time.UnixMilli(model.CreatedAt),
	)
}
