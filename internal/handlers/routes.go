package handlers

import (
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter assembles the API surface: open auth endpoints plus the guarded
// team and membership resources.
func NewRouter(authHandler *AuthHandler, teamsHandler *TeamsHandler, membershipsHandler *MembershipsHandler, guard *middleware.Guard) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodDelete)

	// Invited users hold a token, not a session, so acceptance is open
	api.HandleFunc("/invitations/accept", membershipsHandler.Accept).Methods(http.MethodPost)

	readScope := guard.RequireScope("teams:read")
	writeScope := guard.RequireScope("teams:write")

	protected := api.NewRoute().Subrouter()
	protected.Use(mux.MiddlewareFunc(guard.RequireAuth))

	protected.HandleFunc("/auth/logout_all", authHandler.LogoutAll).Methods(http.MethodDelete)

	protected.Handle("/teams", readScope(http.HandlerFunc(teamsHandler.List))).Methods(http.MethodGet)
	protected.Handle("/teams", writeScope(http.HandlerFunc(teamsHandler.Create))).Methods(http.MethodPost)
	protected.Handle("/teams/{id}", readScope(http.HandlerFunc(teamsHandler.Show))).Methods(http.MethodGet)
	protected.Handle("/teams/{id}", writeScope(http.HandlerFunc(teamsHandler.Update))).Methods(http.MethodPatch, http.MethodPut)
	protected.Handle("/teams/{id}", writeScope(http.HandlerFunc(teamsHandler.Delete))).Methods(http.MethodDelete)

	protected.Handle("/teams/{id}/memberships", readScope(http.HandlerFunc(membershipsHandler.List))).Methods(http.MethodGet)
	protected.Handle("/teams/{id}/memberships", writeScope(http.HandlerFunc(membershipsHandler.Create))).Methods(http.MethodPost)
	protected.Handle("/teams/{id}/memberships/{membership_id}", readScope(http.HandlerFunc(membershipsHandler.Show))).Methods(http.MethodGet)
	protected.Handle("/teams/{id}/memberships/{membership_id}", writeScope(http.HandlerFunc(membershipsHandler.Update))).Methods(http.MethodPatch, http.MethodPut)
	protected.Handle("/teams/{id}/memberships/{membership_id}", writeScope(http.HandlerFunc(membershipsHandler.Delete))).Methods(http.MethodDelete)

	return r
}
