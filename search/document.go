package search

import (
	"strings"
	"time"

	"github.com/goliatone/go-entitycache/model"
)

// Document is the search index representation of a project.
type Document struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	Slug               string                   `json:"slug"`
	IconURL            string                   `json:"iconUrl,omitempty"`
	Type               []string                 `json:"type"`
	Loaders            []string                 `json:"loaders"`
	GameVersions       []string                 `json:"gameVersions"`
	Categories         []string                 `json:"categories"`
	FeaturedCategories []string                 `json:"featuredCategories"`
	ClientSide         model.EnvironmentSupport `json:"clientSide"`
	ServerSide         model.EnvironmentSupport `json:"serverSide"`
	Summary            string                   `json:"summary"`
	Downloads          int64                    `json:"downloads"`
	Followers          int64                    `json:"followers"`
	DatePublished      time.Time                `json:"datePublished"`
	DateUpdated        time.Time                `json:"dateUpdated"`
	OpenSource         bool                     `json:"openSource"`
	Author             string                   `json:"author"`
	FeaturedGallery    string                   `json:"featuredGallery,omitempty"`
	Color              string                   `json:"color,omitempty"`
	IsOrgOwned         bool                     `json:"isOrgOwned"`
	Visibility         model.ProjectVisibility  `json:"visibility"`
}

// FormatDocument builds the index document for p. Asset urls are rooted at
// cdnURL.
func FormatDocument(p model.ProjectDetails, cdnURL string) Document {
	author := ""
	if p.Organization != nil {
		author = p.Organization.Slug
	}
	if author == "" {
		for _, m := range p.Team.Members {
			if m.User != nil {
				author = m.User.UserName
				break
			}
		}
	}

	featured := ""
	for _, item := range p.Gallery {
		if item.Featured {
			featured = GalleryURL(cdnURL, p.ID, item.ThumbnailFileID)
			break
		}
	}

	return Document{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		IconURL:            IconURL(cdnURL, p.ID, p.IconFileID),
		Type:               nonNil(p.Type),
		Loaders:            nonNil(p.Loaders),
		GameVersions:       nonNil(p.GameVersions),
		Categories:         nonNil(p.Categories),
		FeaturedCategories: nonNil(p.FeaturedCategories),
		ClientSide:         p.ClientSide,
		ServerSide:         p.ServerSide,
		Summary:            p.Summary,
		Downloads:          p.Downloads,
		Followers:          p.Followers,
		DatePublished:      p.DatePublished,
		DateUpdated:        p.DateUpdated,
		OpenSource:         p.ProjectSourceURL != "",
		Author:             author,
		FeaturedGallery:    featured,
		Color:              p.Color,
		IsOrgOwned:         p.Organization != nil && p.Organization.Slug != "",
		Visibility:         p.Visibility,
	}
}

// IconURL returns the public url of a project icon, or "" without one.
func IconURL(cdnURL, projectID, fileID string) string {
	if fileID == "" {
		return ""
	}
	return strings.TrimRight(cdnURL, "/") + "/project/" + projectID + "/" + fileID
}

// GalleryURL returns the public url of a gallery image.
func GalleryURL(cdnURL, projectID, fileID string) string {
	if fileID == "" {
		return ""
	}
	return strings.TrimRight(cdnURL, "/") + "/project/" + projectID + "/gallery/" + fileID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
