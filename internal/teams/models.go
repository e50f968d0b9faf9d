package teams

import (
	"time"
)

// Team is an account-scoped member grouping
type Team struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"account_id"`
	Name             string     `json:"name"`
	Descriptor       string     `json:"descriptor,omitempty"`
	MaxMembers       int        `json:"max_members,omitempty"`
	EnableContentTab bool       `json:"enable_content_tab"`
	FullAccess       bool       `json:"full_access"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RoleManager marks a membership with team management rights
const RoleManager = "manager"

// Membership ties a user to a team, either directly or through a pending
// invitation. An invited membership carries an invite token until accepted;
// the token is delivered out of band and never serialized.
type Membership struct {
	ID              string     `json:"id"`
	TeamID          string     `json:"team_id"`
	UserID          string     `json:"user_id,omitempty"`
	Role            string     `json:"role,omitempty"`
	InvitationEmail string     `json:"invitation_email,omitempty"`
	InviteToken     string     `json:"-"`
	InvitedAt       *time.Time `json:"invited_at,omitempty"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Status reports where the membership sits in its lifecycle: "accepted" once
// the invite was redeemed, "invited" while one is outstanding, "added" for a
// direct add, "pending" otherwise.
func (m *Membership) Status() string {
	switch {
	case m.AcceptedAt != nil:
		return "accepted"
	case m.InvitedAt != nil:
		return "invited"
	case m.UserID != "":
		return "added"
	default:
		return "pending"
	}
}

// MembershipFilters narrows a membership listing. Each flag is conjunctive:
// InviteSent keeps outstanding invitations, Manager keeps manager roles,
// Member keeps memberships resolved to a user.
type MembershipFilters struct {
	InviteSent bool
	Manager    bool
	Member     bool
}

func (f MembershipFilters) match(m *Membership) bool {
	if f.InviteSent && (m.InvitedAt == nil || m.AcceptedAt != nil) {
		return false
	}
	if f.Manager && m.Role != RoleManager {
		return false
	}
	if f.Member && m.UserID == "" {
		return false
	}
	return true
}

// TeamAttributes is the whitelisted set of writable team fields
type TeamAttributes struct {
	Name             string     `json:"name"`
	Descriptor       string     `json:"descriptor"`
	MaxMembers       int        `json:"max_members"`
	EnableContentTab bool       `json:"enable_content_tab"`
	FullAccess       bool       `json:"full_access"`
	ExpiresAt        *time.Time `json:"expires_at"`
}
