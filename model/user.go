package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/uptrace/bun"
)

var userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// User is a platform account. Its secondary cache key is the lowercased
// username.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID         string    `bun:"id,pk" json:"id"`
	UserName   string    `bun:"user_name,notnull,unique" json:"userName"`
	Email      string    `bun:"email,notnull" json:"email"`
	Name       string    `bun:"name" json:"name"`
	AvatarURL  string    `bun:"avatar_url" json:"avatarUrl"`
	Role       string    `bun:"role,notnull" json:"role"`
	Bio        string    `bun:"bio" json:"bio"`
	DateJoined time.Time `bun:"date_joined" json:"dateJoined"`
}

// Validate implements validation.Validatable.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.UserName, validation.Required, validation.Length(1, 32), validation.Match(userNamePattern)),
		validation.Field(&u.Email, validation.Required, is.EmailFormat),
	)
}
