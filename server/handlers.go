package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"EchoFM/config"
	"EchoFM/core/auth"
	"EchoFM/core/playback"
	"EchoFM/logger"
	"EchoFM/repository"
	"EchoFM/storage"
)

// APIHandler bundles the handlers' dependencies.
type APIHandler struct {
	cfg          *config.Config
	trackRepo    repository.TrackRepository
	userRepo     repository.UserRepository
	playlistRepo repository.PlaylistRepository
	catalogRepo  repository.CatalogRepository
	socialRepo   repository.SocialRepository
	historyRepo  repository.HistoryRepository
	subsRepo     repository.SubscriptionRepository
	engine       *playback.Engine
	store        *storage.LocalStore
	hub          *playerHub
}

// NewAPIHandler creates the handler bundle.
func NewAPIHandler(
	cfg *config.Config,
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	playlistRepo repository.PlaylistRepository,
	catalogRepo repository.CatalogRepository,
	socialRepo repository.SocialRepository,
	historyRepo repository.HistoryRepository,
	subsRepo repository.SubscriptionRepository,
	engine *playback.Engine,
	store *storage.LocalStore,
) *APIHandler {
	return &APIHandler{
		cfg:          cfg,
		trackRepo:    trackRepo,
		userRepo:     userRepo,
		playlistRepo: playlistRepo,
		catalogRepo:  catalogRepo,
		socialRepo:   socialRepo,
		historyRepo:  historyRepo,
		subsRepo:     subsRepo,
		engine:       engine,
		store:        store,
		hub:          newPlayerHub(),
	}
}

// AuthMiddleware checks for a valid JWT bearer token and stores the
// authenticated identity in the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware additionally requires the caller to be a configured admin.
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		username, err := GetUsernameFromContext(r.Context())
		if err != nil || !h.isPrivileged(username) {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isPrivileged reports whether a username is in the configured admin list.
func (h *APIHandler) isPrivileged(username string) bool {
	for _, admin := range h.cfg.AdminUsers {
		if admin == username {
			return true
		}
	}
	return false
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writePlaybackError maps playback core errors onto HTTP statuses. Upstream
// failures become 503 so clients retry instead of mis-reporting access.
func writePlaybackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playback.ErrTrackNotFound):
		respondError(w, http.StatusNotFound, "track not found")
	case errors.Is(err, playback.ErrUpstreamUnavailable):
		respondError(w, http.StatusServiceUnavailable, "upstream unavailable, retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away before the decision committed; nothing to send.
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}
