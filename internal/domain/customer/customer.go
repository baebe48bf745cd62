// Package customer holds the CustomerContact entity: a farmer profile
// created lazily the first time a ticket or message references them.
package customer

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type Customer struct {
	id        uint
	name      string
	phone     string
	lang      string
	gender    string
	age       *int
	location  string
	createdAt time.Time
}

func NewCustomer(id uint, phone string, name string) (*Customer, error) {
	if len(phone) == 0 {
		return nil, fmt.Errorf("phone number is required")
	}

	return &Customer{
		id:        id,
		name:      name,
		phone:     phone,
		createdAt: time.Now(),
	}, nil
}

func ReconstructCustomer(
	id uint,
	name string,
	phone string,
	lang string,
	gender string,
	age *int,
	location string,
	createdAt time.Time,
) (*Customer, error) {
	if id == 0 {
		return nil, fmt.Errorf("customer ID cannot be zero")
	}
	if len(phone) == 0 {
		return nil, fmt.Errorf("phone number is required")
	}

	return &Customer{
		id:        id,
		name:      name,
		phone:     phone,
		lang:      lang,
		gender:    gender,
		age:       age,
		location:  location,
		createdAt: createdAt,
	}, nil
}

func (c *Customer) ID() uint {
	return c.id
}

func (c *Customer) Name() string {
	return c.name
}

func (c *Customer) Phone() string {
	return c.phone
}

func (c *Customer) Language() string {
	return c.lang
}

func (c *Customer) Gender() string {
	return c.gender
}

func (c *Customer) Age() *int {
	return c.age
}

func (c *Customer) Location() string {
	return c.location
}

func (c *Customer) CreatedAt() time.Time {
	return c.createdAt
}

// SetLanguage normalizes and stores the customer's preferred language as a
// canonical BCP-47 tag. Unparseable values are rejected rather than stored
// raw so broadcast targeting can rely on the column.
func (c *Customer) SetLanguage(lang string) error {
	if len(lang) == 0 {
		c.lang = ""
		return nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("invalid language tag %q: %w", lang, err)
	}
	c.lang = tag.String()
	return nil
}

// UpdateProfile applies remote profile fields. Empty remote values never
// clear locally known ones.
func (c *Customer) UpdateProfile(name, gender, location string, age *int) {
	if len(name) > 0 {
		c.name = name
	}
	if len(gender) > 0 {
		c.gender = gender
	}
	if len(location) > 0 {
		c.location = location
	}
	if age != nil {
		c.age = age
	}
}
