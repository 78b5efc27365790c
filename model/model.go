// Package model defines the records persisted by the store and cached by the
// entity caches. JSON tags define the cached payload shape; bun tags define
// the table mapping.
package model

import (
	"github.com/google/uuid"
)

// NewID returns a fresh opaque record id.
func NewID() string {
	return uuid.NewString()
}

// ProjectVisibility controls who can see a project.
type ProjectVisibility string

const (
	VisibilityListed   ProjectVisibility = "listed"
	VisibilityPrivate  ProjectVisibility = "private"
	VisibilityUnlisted ProjectVisibility = "unlisted"
	VisibilityArchived ProjectVisibility = "archived"
)

// PublishingStatus is the moderation state of a project.
type PublishingStatus string

const (
	StatusDraft     PublishingStatus = "draft"
	StatusScheduled PublishingStatus = "scheduled"
	StatusPublished PublishingStatus = "published"
	StatusWithheld  PublishingStatus = "withheld"
	StatusUnknown   PublishingStatus = "unknown"
)

// EnvironmentSupport describes client or server side support.
type EnvironmentSupport string

const (
	EnvRequired    EnvironmentSupport = "required"
	EnvOptional    EnvironmentSupport = "optional"
	EnvUnsupported EnvironmentSupport = "unsupported"
	EnvUnknown     EnvironmentSupport = "unknown"
)

// ReleaseChannel of a version.
type ReleaseChannel string

const (
	ChannelRelease ReleaseChannel = "release"
	ChannelBeta    ReleaseChannel = "beta"
	ChannelAlpha   ReleaseChannel = "alpha"
	ChannelDev     ReleaseChannel = "dev"
)

func visibilities() []any {
	return []any{VisibilityListed, VisibilityPrivate, VisibilityUnlisted, VisibilityArchived}
}

func statuses() []any {
	return []any{StatusDraft, StatusScheduled, StatusPublished, StatusWithheld, StatusUnknown}
}

func environments() []any {
	return []any{EnvRequired, EnvOptional, EnvUnsupported, EnvUnknown}
}

func channels() []any {
	return []any{ChannelRelease, ChannelBeta, ChannelAlpha, ChannelDev}
}
