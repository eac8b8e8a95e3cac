package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"EchoFM/logger"
)

// LikeTrackHandler handles POST /api/tracks/{id}/like.
func (h *APIHandler) LikeTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	trackID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		logger.Error("failed to get track", logger.Int64("trackId", trackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	if err := h.socialRepo.LikeTrack(r.Context(), userID, trackID); err != nil {
		logger.Error("failed to like track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to like track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

// UnlikeTrackHandler handles DELETE /api/tracks/{id}/like.
func (h *APIHandler) UnlikeTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	trackID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	if err := h.socialRepo.UnlikeTrack(r.Context(), userID, trackID); err != nil {
		logger.Error("failed to unlike track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to unlike track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unliked"})
}

// LikedTracksHandler handles GET /api/me/likes.
func (h *APIHandler) LikedTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ids, err := h.socialRepo.LikedTrackIDs(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list liked tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list liked tracks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"trackIds": ids})
}

// FollowArtistHandler handles POST /api/artists/{id}/follow.
func (h *APIHandler) FollowArtistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	artistID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid artist id")
		return
	}

	artist, err := h.catalogRepo.GetArtist(r.Context(), artistID)
	if err != nil {
		logger.Error("failed to get artist", logger.Int64("artistId", artistID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get artist")
		return
	}
	if artist == nil {
		respondError(w, http.StatusNotFound, "artist not found")
		return
	}

	if err := h.socialRepo.FollowArtist(r.Context(), userID, artistID); err != nil {
		logger.Error("failed to follow artist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to follow artist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

// UnfollowArtistHandler handles DELETE /api/artists/{id}/follow.
func (h *APIHandler) UnfollowArtistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	artistID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid artist id")
		return
	}

	if err := h.socialRepo.UnfollowArtist(r.Context(), userID, artistID); err != nil {
		logger.Error("failed to unfollow artist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to unfollow artist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}
