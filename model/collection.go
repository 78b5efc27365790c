package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

// Collection is a user curated list of projects.
type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:c" json:"-"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull" json:"userId"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Visibility  string    `bun:"visibility,notnull" json:"visibility"`
	IconFileID  string    `bun:"icon_file_id" json:"iconFileId,omitempty"`
	Projects    []string  `bun:"projects" json:"projects"`
	DateCreated time.Time `bun:"date_created" json:"dateCreated"`
	DateUpdated time.Time `bun:"date_updated" json:"dateUpdated"`
}

// Validate implements validation.Validatable.
func (c Collection) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.UserID, validation.Required),
		validation.Field(&c.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&c.Visibility, validation.Required, validation.In("public", "private", "unlisted")),
	)
}

// File is stored file metadata.
type File struct {
	bun.BaseModel `bun:"table:files,alias:f" json:"-"`

	ID             string    `bun:"id,pk" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Size           int64     `bun:"size,notnull" json:"size"`
	Type           string    `bun:"type" json:"type"`
	URL            string    `bun:"url,notnull" json:"url"`
	SHA1           string    `bun:"sha1_hash" json:"sha1Hash,omitempty"`
	StorageService string    `bun:"storage_service" json:"storageService"`
	DateUploaded   time.Time `bun:"date_uploaded" json:"dateUploaded"`
}

// Validate implements validation.Validatable.
func (f File) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ID, validation.Required),
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.URL, validation.Required),
		validation.Field(&f.Size, validation.Min(int64(0))),
	)
}

// IDList is a cached aggregate of record ids owned by a user, such as the
// projects or organizations the user is a member of.
type IDList struct {
	OwnerID string   `json:"ownerId"`
	IDs     []string `json:"ids"`
}
