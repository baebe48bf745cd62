package synclog

import "context"

type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uint) (*Entry, error)
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
	// LastCompleted returns the most recent completed entry of the given
	// kind, or a not-found error.
	LastCompleted(ctx context.Context, kind Kind) (*Entry, error)
}
