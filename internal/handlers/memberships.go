package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/teams"
	"github.com/blueskybroadcast/teams-api/pkg/httpext"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type membershipRequest struct {
	UserID          string `json:"user_id"`
	InvitationEmail string `json:"invitation_email"`
	Role            string `json:"role"`
}

type acceptInvitationRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// MembershipsHandler serves team membership management: direct adds,
// email invitations and their acceptance.
type MembershipsHandler struct {
	repo  *teams.Repo
	users directory.UserProvider
}

func NewMembershipsHandler(repo *teams.Repo, users directory.UserProvider) *MembershipsHandler {
	return &MembershipsHandler{repo: repo, users: users}
}

// List returns a team's memberships, narrowed by the invite_sent, manager
// and member query filters.
// GET /api/v1/teams/{id}/memberships
func (h *MembershipsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	filters := teams.MembershipFilters{
		InviteSent: query.Get("invite_sent") == "true",
		Manager:    query.Get("manager") == "true",
		Member:     query.Get("member") == "true",
	}

	members, err := h.repo.Memberships(mux.Vars(r)["id"], identity.Account.ID, filters)
	if err != nil {
		notFoundOrUnprocessable(w, err)
		return
	}
	if members == nil {
		members = []*teams.Membership{}
	}
	httpext.JsonResponse(w, http.StatusOK, members)
}

// Show returns one membership.
// GET /api/v1/teams/{id}/memberships/{membership_id}
func (h *MembershipsHandler) Show(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	membership, err := h.repo.FindMembership(vars["id"], identity.Account.ID, vars["membership_id"])
	if err != nil {
		notFoundOrUnprocessable(w, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, membership)
}

// Create adds a user to a team, directly by user id or by inviting an email
// address. An invited membership stays pending until its token is redeemed.
// POST /api/v1/teams/{id}/memberships
func (h *MembershipsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	teamID := mux.Vars(r)["id"]

	switch {
	case req.UserID != "":
		membership, err := h.repo.AddMembership(teamID, identity.Account.ID, req.UserID, req.Role)
		if err != nil {
			notFoundOrUnprocessable(w, err)
			return
		}
		httpext.JsonResponse(w, http.StatusCreated, membership)

	case req.InvitationEmail != "":
		// An address already belonging to the account is linked up front;
		// the invitation still waits on explicit acceptance
		var userID string
		if user, err := h.users.UserByEmail(r.Context(), req.InvitationEmail); err == nil &&
			user != nil && user.AccountID == identity.Account.ID {
			userID = user.ID
		}

		membership, err := h.repo.Invite(teamID, identity.Account.ID, userID, req.InvitationEmail, req.Role)
		if err != nil {
			notFoundOrUnprocessable(w, err)
			return
		}

		log.Info().
			Str("team_id", teamID).
			Str("membership_id", membership.ID).
			Msg("Membership invitation created")
		httpext.JsonResponse(w, http.StatusCreated, membership)

	default:
		httpext.JsonError(w, "Either user_id or invitation_email is required", http.StatusBadRequest)
	}
}

// Update changes a membership's role.
// PATCH /api/v1/teams/{id}/memberships/{membership_id}
func (h *MembershipsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	membership, err := h.repo.UpdateMembership(vars["id"], identity.Account.ID, vars["membership_id"], req.Role)
	if err != nil {
		notFoundOrUnprocessable(w, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, membership)
}

// Delete removes a membership.
// DELETE /api/v1/teams/{id}/memberships/{membership_id}
func (h *MembershipsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	if err := h.repo.RemoveMembership(vars["id"], identity.Account.ID, vars["membership_id"]); err != nil {
		notFoundOrUnprocessable(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Accept redeems an invitation token for a user. Deliberately open: the
// invited user holds a token, not a session.
// POST /api/v1/invitations/accept
func (h *MembershipsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.UserByID(r.Context(), req.UserID)
	if err != nil || user == nil {
		httpext.JsonError(w, "Invalid or expired invitation", http.StatusUnprocessableEntity)
		return
	}

	if _, err := h.repo.AcceptInvitation(req.Token, user.ID, user.Email); err != nil {
		httpext.JsonError(w, "Invalid or expired invitation", http.StatusUnprocessableEntity)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
