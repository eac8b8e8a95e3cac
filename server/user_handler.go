package server

import (
	"net/http"

	"EchoFM/logger"
)

// ProfileHandler handles GET /api/me. It aggregates account data with
// listening stats: the user's ten most played tracks, their favorite artist,
// and whether they currently hold a paid subscription.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error("failed to get user", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	topTracks, err := h.historyRepo.TopTracksByUser(r.Context(), userID, 10)
	if err != nil {
		logger.Error("failed to load top tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load top tracks")
		return
	}

	favorite, err := h.historyRepo.FavoriteArtist(r.Context(), userID)
	if err != nil {
		logger.Error("failed to load favorite artist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load favorite artist")
		return
	}

	entitled, err := h.userRepo.IsEntitled(r.Context(), userID)
	if err != nil {
		logger.Error("failed to check entitlement", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to check entitlement")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":           user,
		"topTracks":      topTracks,
		"favoriteArtist": favorite,
		"premium":        entitled,
	})
}
