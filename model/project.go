package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

// Project is the canonical project record, gallery included.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p" json:"-"`

	ID                 string             `bun:"id,pk" json:"id"`
	TeamID             string             `bun:"team_id,notnull" json:"teamId"`
	OrganizationID     string             `bun:"organization_id,nullzero" json:"organizationId,omitempty"`
	Name               string             `bun:"name,notnull" json:"name"`
	Slug               string             `bun:"slug,notnull,unique" json:"slug"`
	Type               []string           `bun:"type" json:"type"`
	Summary            string             `bun:"summary" json:"summary"`
	Description        string             `bun:"description" json:"description"`
	IconFileID         string             `bun:"icon_file_id" json:"iconFileId,omitempty"`
	Downloads          int64              `bun:"downloads,notnull" json:"downloads"`
	Followers          int64              `bun:"followers,notnull" json:"followers"`
	Categories         []string           `bun:"categories" json:"categories"`
	FeaturedCategories []string           `bun:"featured_categories" json:"featuredCategories"`
	Loaders            []string           `bun:"loaders" json:"loaders"`
	GameVersions       []string           `bun:"game_versions" json:"gameVersions"`
	Status             PublishingStatus   `bun:"status,notnull" json:"status"`
	Visibility         ProjectVisibility  `bun:"visibility,notnull" json:"visibility"`
	ClientSide         EnvironmentSupport `bun:"client_side" json:"clientSide"`
	ServerSide         EnvironmentSupport `bun:"server_side" json:"serverSide"`
	ProjectSourceURL   string             `bun:"project_source_url" json:"projectSourceUrl,omitempty"`
	Color              string             `bun:"color" json:"color,omitempty"`
	DatePublished      time.Time          `bun:"date_published" json:"datePublished"`
	DateUpdated        time.Time          `bun:"date_updated" json:"dateUpdated"`
	Gallery            []GalleryItem      `bun:"-" json:"gallery"`
}

// Validate implements validation.Validatable.
func (p Project) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.TeamID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Slug, validation.Required, validation.Length(1, 64), validation.Match(slugPattern)),
		validation.Field(&p.Status, validation.Required, validation.In(statuses()...)),
		validation.Field(&p.Visibility, validation.Required, validation.In(visibilities()...)),
		validation.Field(&p.ClientSide, validation.In(environments()...)),
		validation.Field(&p.ServerSide, validation.In(environments()...)),
		validation.Field(&p.Downloads, validation.Min(int64(0))),
		validation.Field(&p.Followers, validation.Min(int64(0))),
	)
}

// GalleryItem is an image attached to a project.
type GalleryItem struct {
	bun.BaseModel `bun:"table:gallery_items,alias:g" json:"-"`

	ID              string `bun:"id,pk" json:"id"`
	ProjectID       string `bun:"project_id,notnull" json:"projectId"`
	Name            string `bun:"name" json:"name"`
	Description     string `bun:"description" json:"description,omitempty"`
	ImageFileID     string `bun:"image_file_id" json:"imageFileId"`
	ThumbnailFileID string `bun:"thumbnail_file_id" json:"thumbnailFileId"`
	Featured        bool   `bun:"featured,notnull" json:"featured"`
	OrderIndex      int    `bun:"order_index,notnull" json:"orderIndex"`
}

// ProjectListItem is the light projection cached for listings.
type ProjectListItem struct {
	ID                 string             `json:"id"`
	TeamID             string             `json:"teamId"`
	OrganizationID     string             `json:"organizationId,omitempty"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug"`
	Type               []string           `json:"type"`
	Summary            string             `json:"summary"`
	IconFileID         string             `json:"iconFileId,omitempty"`
	Downloads          int64              `json:"downloads"`
	Followers          int64              `json:"followers"`
	Categories         []string           `json:"categories"`
	FeaturedCategories []string           `json:"featuredCategories"`
	Loaders            []string           `json:"loaders"`
	GameVersions       []string           `json:"gameVersions"`
	Status             PublishingStatus   `json:"status"`
	Visibility         ProjectVisibility  `json:"visibility"`
	ClientSide         EnvironmentSupport `json:"clientSide"`
	ServerSide         EnvironmentSupport `json:"serverSide"`
	Color              string             `json:"color,omitempty"`
	DatePublished      time.Time          `json:"datePublished"`
	DateUpdated        time.Time          `json:"dateUpdated"`
}

// ListItem projects p into its listing shape.
func (p Project) ListItem() ProjectListItem {
	return ProjectListItem{
		ID:                 p.ID,
		TeamID:             p.TeamID,
		OrganizationID:     p.OrganizationID,
		Name:               p.Name,
		Slug:               p.Slug,
		Type:               p.Type,
		Summary:            p.Summary,
		IconFileID:         p.IconFileID,
		Downloads:          p.Downloads,
		Followers:          p.Followers,
		Categories:         p.Categories,
		FeaturedCategories: p.FeaturedCategories,
		Loaders:            p.Loaders,
		GameVersions:       p.GameVersions,
		Status:             p.Status,
		Visibility:         p.Visibility,
		ClientSide:         p.ClientSide,
		ServerSide:         p.ServerSide,
		Color:              p.Color,
		DatePublished:      p.DatePublished,
		DateUpdated:        p.DateUpdated,
	}
}

// ProjectDetails is a project joined with its team and optional organization.
type ProjectDetails struct {
	Project
	Team         Team          `json:"team"`
	Organization *Organization `json:"organization,omitempty"`
}

// ProjectSummary is a list item joined with its team and optional organization.
type ProjectSummary struct {
	ProjectListItem
	Team         Team          `json:"team"`
	Organization *Organization `json:"organization,omitempty"`
}
