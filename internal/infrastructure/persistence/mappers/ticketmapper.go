package mappers

import (
	"time"

	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
)

// TicketMapper handles the conversion between Ticket domain entities and
// persistence models. Status is never read from the model column on the way
// to the domain; ReconstructTicket re-derives it from the resolution
// timestamp.
type TicketMapper interface {
	ToModel(t *ticket.Ticket) *models.TicketModel
	ToDomain(model *models.TicketModel) (*ticket.Ticket, error)
}

type TicketMapperImpl struct{}

func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) *models.TicketModel {
	model := &models.TicketModel{
		ID:               t.ID(),
		Number:           t.Number(),
		CustomerID:       t.CustomerID(),
		FirstMessageID:   t.FirstMessageID(),
		ContextMessageID: t.ContextMessageID(),
		LastMessageID:    t.LastMessageID(),
		Status:           t.Status().String(),
		UnreadCount:      t.UnreadCount(),
		ResolvedByID:     t.ResolvedByID(),
		CreatedAt:        t.CreatedAt().UnixMilli(),
	}

	if t.ResolvedAt() != nil {
		resolved := t.ResolvedAt().UnixMilli()
		model.ResolvedAt = &resolved
	}

	return model
}

func (m *TicketMapperImpl) ToDomain(model *models.TicketModel) (*ticket.Ticket, error) {
	var resolvedAt *time.Time
	if model.ResolvedAt != nil {
		t := time.UnixMilli(*model.ResolvedAt)
		resolvedAt = &t
	}

	return ticket.ReconstructTicket(
		model.ID,
		model.Number,
		model.CustomerID,
		model.FirstMessageID,
		model.ContextMessageID,
		model.LastMessageID,
		model.UnreadCount,
		model.ResolvedByID,
		time.UnixMilli(model.CreatedAt),
		resolvedAt,
	)
}
