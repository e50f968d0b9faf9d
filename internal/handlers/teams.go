package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/blueskybroadcast/teams-api/internal/teams"
	"github.com/blueskybroadcast/teams-api/pkg/httpext"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// TeamsHandler serves account-scoped team CRUD. Every request has already
// passed the auth guard, so an identity is always present.
type TeamsHandler struct {
	repo *teams.Repo
}

func NewTeamsHandler(repo *teams.Repo) *TeamsHandler {
	return &TeamsHandler{repo: repo}
}

// List returns the account's teams.
// GET /api/v1/teams
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result := h.repo.ListByAccount(identity.Account.ID)
	if result == nil {
		result = []*teams.Team{}
	}
	httpext.JsonResponse(w, http.StatusOK, result)
}

// Show returns one team.
// GET /api/v1/teams/{id}
func (h *TeamsHandler) Show(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	team, err := h.repo.Find(mux.Vars(r)["id"], identity.Account.ID)
	if err != nil {
		httpext.JsonError(w, "Team not found", http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, team)
}

// Create adds a team to the account.
// POST /api/v1/teams
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var attrs teams.TeamAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if attrs.Name == "" {
		httpext.JsonError(w, "Name can't be blank", http.StatusUnprocessableEntity)
		return
	}

	team := h.repo.Create(identity.Account.ID, attrs)
	httpext.JsonResponse(w, http.StatusCreated, team)
}

// Update modifies a team.
// PATCH /api/v1/teams/{id}
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var attrs teams.TeamAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if attrs.Name == "" {
		httpext.JsonError(w, "Name can't be blank", http.StatusUnprocessableEntity)
		return
	}

	team, err := h.repo.Update(mux.Vars(r)["id"], identity.Account.ID, attrs)
	if err != nil {
		httpext.JsonError(w, "Team not found", http.StatusNotFound)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, team)
}

// Delete removes a team.
// DELETE /api/v1/teams/{id}
func (h *TeamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil || identity.Account == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.repo.Delete(mux.Vars(r)["id"], identity.Account.ID); err != nil {
		httpext.JsonError(w, "Team not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notFoundOrUnprocessable maps repo errors to API statuses
func notFoundOrUnprocessable(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, teams.ErrNotFound):
		httpext.JsonError(w, "Team not found", http.StatusNotFound)
	case errors.Is(err, teams.ErrMembershipNotFound):
		httpext.JsonError(w, "Membership not found", http.StatusNotFound)
	default:
		httpext.JsonError(w, err.Error(), http.StatusUnprocessableEntity)
	}
}
