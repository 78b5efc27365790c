package model

import (
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

// Team groups the members of a project or an organization.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t" json:"-"`

	ID      string       `bun:"id,pk" json:"id"`
	Members []TeamMember `bun:"-" json:"members"`
}

// Validate implements validation.Validatable.
func (t Team) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required),
	)
}

// MemberIDs returns the user ids of every member.
func (t Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// TeamMember links a user to a team. User is joined on read and never cached.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tm" json:"-"`

	ID                      string       `bun:"id,pk" json:"id"`
	TeamID                  string       `bun:"team_id,notnull" json:"teamId"`
	UserID                  string       `bun:"user_id,notnull" json:"userId"`
	Role                    string       `bun:"role" json:"role"`
	IsOwner                 bool         `bun:"is_owner,notnull" json:"isOwner"`
	Permissions             []string     `bun:"permissions" json:"permissions"`
	OrganizationPermissions []string     `bun:"organization_permissions" json:"organizationPermissions"`
	Accepted                bool         `bun:"accepted,notnull" json:"accepted"`
	DateAccepted            time.Time    `bun:"date_accepted" json:"dateAccepted"`
	User                    *UserSummary `bun:"-" json:"user,omitempty"`
}

// Validate implements validation.Validatable.
func (m TeamMember) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.TeamID, validation.Required),
		validation.Field(&m.UserID, validation.Required),
	)
}

// UserSummary is the user identity denormalized into a team member on read.
type UserSummary struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	AvatarURL string `json:"avatarUrl"`
}

// Summary returns the identity fields shown next to a team member.
func (u User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, UserName: u.UserName, AvatarURL: u.AvatarURL}
}

// SortMembers orders members owner first, then by acceptance date.
func SortMembers(members []TeamMember) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].IsOwner != members[j].IsOwner {
			return members[i].IsOwner
		}
		return members[i].DateAccepted.Before(members[j].DateAccepted)
	})
}

// TeamOwner identifies what a team belongs to. Exactly one field is set for
// a team attached to a project or an organization.
type TeamOwner struct {
	ProjectIDs      []string
	OrganizationIDs []string
}
