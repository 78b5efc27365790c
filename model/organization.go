package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Organization owns exactly one team and any number of projects.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:o" json:"-"`

	ID          string                `bun:"id,pk" json:"id"`
	TeamID      string                `bun:"team_id,notnull" json:"teamId"`
	Slug        string                `bun:"slug,notnull,unique" json:"slug"`
	Name        string                `bun:"name,notnull" json:"name"`
	Description string                `bun:"description" json:"description"`
	IconFileID  string                `bun:"icon_file_id" json:"iconFileId,omitempty"`
	Projects    []OrganizationProject `bun:"-" json:"projects"`
}

// OrganizationProject references a project owned by an organization.
type OrganizationProject struct {
	ID     string `bun:"id" json:"id"`
	TeamID string `bun:"team_id" json:"teamId"`
}

// Validate implements validation.Validatable.
func (o Organization) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.TeamID, validation.Required),
		validation.Field(&o.Slug, validation.Required, validation.Length(1, 64), validation.Match(slugPattern)),
		validation.Field(&o.Name, validation.Required, validation.Length(1, 64)),
	)
}

// OrganizationDetails is an organization joined with its team.
type OrganizationDetails struct {
	Organization
	Team Team `json:"team"`
}
