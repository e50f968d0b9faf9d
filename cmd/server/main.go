package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/auth"
	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/blueskybroadcast/teams-api/internal/handlers"
	redisinfra "github.com/blueskybroadcast/teams-api/internal/infrastructure/redis"
	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/oauth"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/blueskybroadcast/teams-api/internal/teams"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	router := setupRouter(context.Background())

	addr := ":" + config.GetEnvOrDefault("PORT", "8080")
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

func setupRouter(ctx context.Context) http.Handler {
	store := selectStore()
	codec := token.NewCodec()
	sessions := session.NewManager(codec, store)

	dir := directory.NewService()
	if fixtures := config.GetEnvOrDefault("DIRECTORY_FIXTURES_FILE", ""); fixtures != "" {
		if err := dir.LoadFixtures(fixtures); err != nil {
			log.Fatal().Err(err).Str("path", fixtures).Msg("Failed to load directory fixtures")
		}
	}

	verifier := oauth.NewVerifier(ctx)
	authenticator := auth.NewAuthenticator(codec, sessions, dir, dir, verifier)
	guard := middleware.NewGuard(authenticator, sessions, dir, dir)

	repo := teams.NewRepo()
	authHandler := handlers.NewAuthHandler(sessions, dir)
	teamsHandler := handlers.NewTeamsHandler(repo)
	membershipsHandler := handlers.NewMembershipsHandler(repo, dir)

	return handlers.NewRouter(authHandler, teamsHandler, membershipsHandler, guard)
}

// selectStore prefers Redis when configured and reachable, falling back to
// the in-memory store otherwise
func selectStore() session.Store {
	redisService := redisinfra.NewService()
	if redisService != nil {
		log.Info().Msg("Using Redis session store")
		return session.NewRedisStore(redisService, config.GetTokenPrefix())
	}

	log.Warn().Msg("Using in-memory session store - namespace flush is unsupported")
	return session.NewMemoryStore()
}
