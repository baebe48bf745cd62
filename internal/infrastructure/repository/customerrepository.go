package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/mappers"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type CustomerRepository struct {
	db     *gorm.DB
	mapper mappers.CustomerMapper
	logger logger.Interface
}

func NewCustomerRepository(database *gorm.DB, log logger.Interface) *CustomerRepository {
	return &CustomerRepository{
		db:     database,
		mapper: mappers.NewCustomerMapper(),
		logger: log.Named("repository.customer"),
	}
}

func (r *CustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	model := r.mapper.ToModel(c)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("save failed", "entity", "customer", "phone", c.Phone(), "error", err)
		return fmt.Errorf("failed to save customer: %w", err)
	}

	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	model := r.mapper.ToModel(c)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.CustomerModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Updates(model)

	if result.Error != nil {
		r.logger.Errorw("update failed", "entity", "customer", "customer_id", c.ID(), "error", result.Error)
		return fmt.Errorf("failed to update customer: %w", result.Error)
	}

	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Delete(&models.CustomerModel{}, customerID)
	if result.Error != nil {
		r.logger.Errorw("delete failed", "entity", "customer", "customer_id", customerID, "error", result.Error)
		return fmt.Errorf("failed to delete customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("customer not found")
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, customerID uint) (*customer.Customer, error) {
	var model models.CustomerModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, customerID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("customer not found")
		}
		r.logger.Errorw("find failed", "entity", "customer", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	var model models.CustomerModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("phone = ?", phone).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("customer not found")
		}
		r.logger.Errorw("find failed", "entity", "customer", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// Upsert creates the customer on first sighting or applies profile updates
// to the known record. Lookup is by remote id first, then by phone number
// for records that predate the remote id.
func (r *CustomerRepository) Upsert(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var existing models.CustomerModel
	found := false

	if c.ID() != 0 {
		err := tx.First(&existing, c.ID()).Error
		if err == nil {
			found = true
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up customer by id: %w", err)
		}
	}

	if !found {
		err := tx.Where("phone = ?", c.Phone()).First(&existing).Error
		if err == nil {
			found = true
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up customer by phone: %w", err)
		}
	}

	if !found {
		model := r.mapper.ToModel(c)
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("upsert insert failed", "entity", "customer", "phone", c.Phone(), "error", err)
			return nil, fmt.Errorf("failed to insert customer: %w", err)
		}
		return r.mapper.ToDomain(model)
	}

	current, err := r.mapper.ToDomain(&existing)
	if err != nil {
		return nil, err
	}

	current.UpdateProfile(c.Name(), c.Gender(), c.Location(), c.Age())
	if len(c.Language()) > 0 {
		if err := current.SetLanguage(c.Language()); err != nil {
			r.logger.Warnw("ignoring invalid customer language", "entity", "customer",
				"customer_id", current.ID(), "language", c.Language())
		}
	}

	model := r.mapper.ToModel(current)
	result := tx.
		Model(&models.CustomerModel{}).
		Where("id = ?", existing.ID).
		Select("*").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("upsert update failed", "entity", "customer", "customer_id", existing.ID, "error", result.Error)
		return nil, fmt.Errorf("failed to update customer: %w", result.Error)
	}

	return current, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var rows []models.CustomerModel
	if err := tx.Order("name ASC").Find(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "customer", "operation", "find_all", "error", err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	result := make([]*customer.Customer, 0, len(rows))
	for i := range rows {
		c, err := r.mapper.ToDomain(&rows[i])
		if err != nil {
			r.logger.Warnw("skipping invalid customer row", "entity", "customer", "customer_id", rows[i].ID, "error", err)
			continue
		}
		result = append(result, c)
	}

	return result, nil
}
