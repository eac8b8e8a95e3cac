package server

import (
	"net/http"
	"strconv"

	"EchoFM/logger"
)

// statsLimit reads an optional ?limit= query parameter, defaulting to 10 and
// capping at 100.
func statsLimit(r *http.Request) int {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// TopTracksHandler handles GET /api/stats/top-tracks, the caller's most
// played tracks.
func (h *APIHandler) TopTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rows, err := h.historyRepo.TopTracksByUser(r.Context(), userID, statsLimit(r))
	if err != nil {
		logger.Error("failed to load top tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load top tracks")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// GlobalTopTracksHandler handles GET /api/stats/global-top.
func (h *APIHandler) GlobalTopTracksHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := h.historyRepo.GlobalTopTracks(r.Context(), statsLimit(r))
	if err != nil {
		logger.Error("failed to load global top tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load global top tracks")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// FavoriteArtistHandler handles GET /api/stats/favorite-artist.
func (h *APIHandler) FavoriteArtistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	artist, err := h.historyRepo.FavoriteArtist(r.Context(), userID)
	if err != nil {
		logger.Error("failed to load favorite artist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load favorite artist")
		return
	}
	if artist == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"favoriteArtist": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"favoriteArtist": artist})
}

// RecentPlaysHandler handles GET /api/stats/recent, the caller's play history
// in reverse chronological order.
func (h *APIHandler) RecentPlaysHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	events, err := h.historyRepo.RecentByUser(r.Context(), userID, statsLimit(r))
	if err != nil {
		logger.Error("failed to load recent plays", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load recent plays")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
