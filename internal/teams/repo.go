package teams

import (
	"strings"
	"sync"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound means no team matched the id within the account
	ErrNotFound = errors.New("team not found")
	// ErrMembershipNotFound means the team exists but the membership does not
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrTeamFull means the team has reached its member limit
	ErrTeamFull = errors.New("team is full")
	// ErrAlreadyMember means the user already belongs to the team
	ErrAlreadyMember = errors.New("user is already a member")
	// ErrAlreadyInvited means an invitation for the email is outstanding
	ErrAlreadyInvited = errors.New("email already has a pending invitation")
	// ErrInvalidInvitation covers unknown, expired and already-redeemed
	// invite tokens, and email mismatches on targeted invitations
	ErrInvalidInvitation = errors.New("invalid or expired invitation")
)

// Repo is an in-memory, account-scoped team store. The host application owns
// the durable records; this repo is the projection the API serves.
type Repo struct {
	mu          sync.RWMutex
	teams       map[string]*Team
	memberships map[string][]*Membership
	inviteTTL   time.Duration
}

func NewRepo() *Repo {
	return &Repo{
		teams:       make(map[string]*Team),
		memberships: make(map[string][]*Membership),
		inviteTTL:   config.GetInviteExpiration(),
	}
}

// ListByAccount returns every team belonging to the account
func (r *Repo) ListByAccount(accountID string) []*Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Team
	for _, team := range r.teams {
		if team.AccountID == accountID {
			result = append(result, team)
		}
	}
	return result
}

// Find returns a team only when it belongs to the account
func (r *Repo) Find(id, accountID string) (*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[id]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}
	return team, nil
}

func (r *Repo) Create(accountID string, attrs TeamAttributes) *Team {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	team := &Team{
		ID:               uuid.New().String(),
		AccountID:        accountID,
		Name:             attrs.Name,
		Descriptor:       attrs.Descriptor,
		MaxMembers:       attrs.MaxMembers,
		EnableContentTab: attrs.EnableContentTab,
		FullAccess:       attrs.FullAccess,
		ExpiresAt:        attrs.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.teams[team.ID] = team
	return team
}

func (r *Repo) Update(id, accountID string, attrs TeamAttributes) (*Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[id]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}

	team.Name = attrs.Name
	team.Descriptor = attrs.Descriptor
	team.MaxMembers = attrs.MaxMembers
	team.EnableContentTab = attrs.EnableContentTab
	team.FullAccess = attrs.FullAccess
	team.ExpiresAt = attrs.ExpiresAt
	team.UpdatedAt = time.Now()
	return team, nil
}

func (r *Repo) Delete(id, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[id]
	if !ok || team.AccountID != accountID {
		return ErrNotFound
	}

	delete(r.teams, id)
	delete(r.memberships, id)
	return nil
}

// Memberships lists the members of a team within the account, narrowed by the
// given filters
func (r *Repo) Memberships(teamID, accountID string, filters MembershipFilters) ([]*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[teamID]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}

	var result []*Membership
	for _, m := range r.memberships[teamID] {
		if filters.match(m) {
			result = append(result, m)
		}
	}
	return result, nil
}

// FindMembership returns one membership scoped to the team and account
func (r *Repo) FindMembership(teamID, accountID, membershipID string) (*Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[teamID]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}
	for _, m := range r.memberships[teamID] {
		if m.ID == membershipID {
			return m, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (r *Repo) AddMembership(teamID, accountID, userID, role string) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, err := r.seatFor(teamID, accountID, userID, "")
	if err != nil {
		return nil, err
	}

	membership := &Membership{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	r.memberships[teamID] = append(members, membership)
	return membership, nil
}

// Invite creates a pending membership with a redeemable token. When the email
// resolved to an existing account user its id is recorded up front; otherwise
// the invitation waits on the email alone. The token is handed to the caller
// for out-of-band delivery.
func (r *Repo) Invite(teamID, accountID, userID, email, role string) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, err := r.seatFor(teamID, accountID, userID, email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	membership := &Membership{
		ID:              uuid.New().String(),
		TeamID:          teamID,
		UserID:          userID,
		Role:            role,
		InvitationEmail: email,
		InviteToken:     uuid.New().String(),
		InvitedAt:       &now,
		CreatedAt:       now,
	}
	r.memberships[teamID] = append(members, membership)
	return membership, nil
}

// AcceptInvitation redeems an invite token on behalf of a user. Targeted
// invitations (those carrying an email) only redeem for a user with a
// matching address. Returns ErrInvalidInvitation for unknown, expired or
// already-redeemed tokens.
func (r *Repo) AcceptInvitation(token, userID, userEmail string) (*Membership, error) {
	if token == "" {
		return nil, ErrInvalidInvitation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, members := range r.memberships {
		for _, m := range members {
			if m.InviteToken != token {
				continue
			}
			if m.AcceptedAt != nil {
				return nil, ErrInvalidInvitation
			}
			if m.InvitedAt == nil || time.Since(*m.InvitedAt) > r.inviteTTL {
				return nil, ErrInvalidInvitation
			}
			if m.InvitationEmail != "" && !strings.EqualFold(m.InvitationEmail, userEmail) {
				return nil, ErrInvalidInvitation
			}

			now := time.Now()
			m.UserID = userID
			m.AcceptedAt = &now
			return m, nil
		}
	}
	return nil, ErrInvalidInvitation
}

// UpdateMembership changes a membership's role
func (r *Repo) UpdateMembership(teamID, accountID, membershipID, role string) (*Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}
	for _, m := range r.memberships[teamID] {
		if m.ID == membershipID {
			m.Role = role
			return m, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (r *Repo) RemoveMembership(teamID, accountID, membershipID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.teams[teamID]
	if !ok || team.AccountID != accountID {
		return ErrNotFound
	}

	members := r.memberships[teamID]
	for i, m := range members {
		if m.ID == membershipID {
			r.memberships[teamID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return ErrMembershipNotFound
}

// seatFor validates that the team can take one more membership for the given
// user or invitation email. Caller holds the lock.
func (r *Repo) seatFor(teamID, accountID, userID, email string) ([]*Membership, error) {
	team, ok := r.teams[teamID]
	if !ok || team.AccountID != accountID {
		return nil, ErrNotFound
	}

	members := r.memberships[teamID]
	if team.MaxMembers > 0 && len(members) >= team.MaxMembers {
		return nil, ErrTeamFull
	}
	for _, m := range members {
		if userID != "" && m.UserID == userID {
			return nil, ErrAlreadyMember
		}
		if email != "" && m.AcceptedAt == nil && strings.EqualFold(m.InvitationEmail, email) {
			return nil, ErrAlreadyInvited
		}
	}
	return members, nil
}
