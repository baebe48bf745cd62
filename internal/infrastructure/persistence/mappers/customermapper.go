package mappers

import (
	"time"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
)

type CustomerMapper interface {
	ToModel(c *customer.Customer) *models.CustomerModel
	ToDomain(model *models.CustomerModel) (*customer.Customer, error)
}

type CustomerMapperImpl struct{}

func NewCustomerMapper() CustomerMapper {
	return &CustomerMapperImpl{}
}

func (m *CustomerMapperImpl) ToModel(c *customer.Customer) *models.CustomerModel {
	return &models.CustomerModel{
		ID:        c.ID(),
		Name:      c.Name(),
		Phone:     c.Phone(),
		Language:  c.Language(),
		Gender:    c.Gender(),
		Age:       c.Age(),
		Location:  c.Location(),
		CreatedAt: c.CreatedAt().UnixMilli(),
	}
}

func (m *CustomerMapperImpl) ToDomain(model *models.CustomerModel) (*customer.Customer, error) {
	return customer.ReconstructCustomer(
		model.ID,
		model.Name,
		model.Phone,
		model.Language,
		model.Gender,
		model.Age,
		model.Location,
		time.UnixMilli(model.CreatedAt),
	)
}
