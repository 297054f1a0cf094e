package users

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// User is the only entity kept by a Repository.
type User struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	BirthDate  civil.Date `json:"birth_date" db:"-"`
	CustomData CustomData `json:"custom_data" db:"-"`
	// CreatedAt is set once by a successful Create and never changes afterwards.
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	// UpdatedAt is nil until the first successful Update.
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// CustomData is the extensible payload attached to a user.
type CustomData struct {
	Random uint32 `json:"random"`
}

// Clone returns a copy of u that shares no memory with it.
func (u User) Clone() User {
	c := u
	c.CreatedAt = copyTime(u.CreatedAt)
	c.UpdatedAt = copyTime(u.UpdatedAt)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	tt := *t
	return &tt
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}
