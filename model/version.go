package model

import (
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

// Version is a single release of a project.
type Version struct {
	bun.BaseModel `bun:"table:versions,alias:v" json:"-"`

	ID             string         `bun:"id,pk" json:"id"`
	ProjectID      string         `bun:"project_id,notnull" json:"projectId"`
	AuthorID       string         `bun:"author_id" json:"authorId"`
	Title          string         `bun:"title,notnull" json:"title"`
	VersionNumber  string         `bun:"version_number,notnull" json:"versionNumber"`
	Slug           string         `bun:"slug,notnull" json:"slug"`
	Changelog      string         `bun:"changelog" json:"changelog,omitempty"`
	Featured       bool           `bun:"featured,notnull" json:"featured"`
	Downloads      int64          `bun:"downloads,notnull" json:"downloads"`
	ReleaseChannel ReleaseChannel `bun:"release_channel,notnull" json:"releaseChannel"`
	GameVersions   []string       `bun:"game_versions" json:"gameVersions"`
	Loaders        []string       `bun:"loaders" json:"loaders"`
	FileIDs        []string       `bun:"file_ids" json:"fileIds"`
	DatePublished  time.Time      `bun:"date_published" json:"datePublished"`
}

// Validate implements validation.Validatable.
func (v Version) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.ID, validation.Required),
		validation.Field(&v.ProjectID, validation.Required),
		validation.Field(&v.Title, validation.Required, validation.Length(1, 64)),
		validation.Field(&v.VersionNumber, validation.Required, validation.Length(1, 32)),
		validation.Field(&v.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&v.ReleaseChannel, validation.Required, validation.In(channels()...)),
	)
}

// ProjectVersions is the cached version list of a project, addressed by the
// project id and the project slug.
type ProjectVersions struct {
	ID       string    `json:"id"`
	Slug     string    `json:"slug"`
	Versions []Version `json:"versions"`
}

// SortVersions orders versions newest first.
func SortVersions(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].DatePublished.After(versions[j].DatePublished)
	})
}
