// Package user holds the staff User entity and the Profile record binding
// the logged-in user to a session on this device.
package user

import (
	"fmt"
	"time"
)

type User struct {
	id        uint
	email     string
	name      string
	phone     string
	role      string
	active    bool
	adminArea string
	createdAt time.Time
}

func NewUser(id uint, email, name string) (*User, error) {
	if id == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if len(email) == 0 {
		return nil, fmt.Errorf("email is required")
	}

	return &User{
		id:        id,
		email:     email,
		name:      name,
		active:    true,
		createdAt: time.Now(),
	}, nil
}

func ReconstructUser(
	id uint,
	email string,
	name string,
	phone string,
	role string,
	active bool,
	adminArea string,
	createdAt time.Time,
) (*User, error) {
	if id == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if len(email) == 0 {
		return nil, fmt.Errorf("email is required")
	}

	return &User{
		id:        id,
		email:     email,
		name:      name,
		phone:     phone,
		role:      role,
		active:    active,
		adminArea: adminArea,
		createdAt: createdAt,
	}, nil
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) Email() string {
	return u.email
}

func (u *User) Name() string {
	return u.name
}

func (u *User) Phone() string {
	return u.phone
}

func (u *User) Role() string {
	return u.role
}

func (u *User) IsActive() bool {
	return u.active
}

func (u *User) AdminArea() string {
	return u.adminArea
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// ApplyProfile merges fields from a remote profile refresh.
func (u *User) ApplyProfile(name, phone, role, adminArea string, active bool) {
	if len(name) > 0 {
		u.name = name
	}
	if len(phone) > 0 {
		u.phone = phone
	}
	if len(role) > 0 {
		u.role = role
	}
	if len(adminArea) > 0 {
		u.adminArea = adminArea
	}
	u.active = active
}
