package user

import "context"

type Repository interface {
	Save(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, userID uint) error
	GetByID(ctx context.Context, userID uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, u *User) (*User, error)
}

// ProfileRepository enforces single-row semantics: saving a profile replaces
// any existing one.
type ProfileRepository interface {
	Save(ctx context.Context, p *Profile) error
	Get(ctx context.Context) (*Profile, error)
	Delete(ctx context.Context) error
}
