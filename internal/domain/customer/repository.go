package customer

import "context"

// Repository is the persistence port for customer contacts. Identity is
// keyed by remote id first, falling back to phone number for records created
// before the remote id was known.
type Repository interface {
	Save(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, customerID uint) error
	GetByID(ctx context.Context, customerID uint) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	Upsert(ctx context.Context, c *Customer) (*Customer, error)
	FindAll(ctx context.Context) ([]*Customer, error)
}
