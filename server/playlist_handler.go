package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"EchoFM/logger"
	"EchoFM/model"
)

// ownedPlaylist loads a playlist and checks it belongs to the caller. It
// writes the error response itself and returns nil when the caller should
// stop.
func (h *APIHandler) ownedPlaylist(w http.ResponseWriter, r *http.Request) *model.Playlist {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid playlist id")
		return nil
	}

	playlist, err := h.playlistRepo.GetPlaylist(r.Context(), id)
	if err != nil {
		logger.Error("failed to get playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get playlist")
		return nil
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "playlist not found")
		return nil
	}
	if playlist.UserID != userID {
		respondError(w, http.StatusForbidden, "not your playlist")
		return nil
	}
	return playlist
}

// CreatePlaylistHandler handles POST /api/playlists.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "playlist name is required")
		return
	}

	playlist := &model.Playlist{Name: req.Name, UserID: userID}
	id, err := h.playlistRepo.CreatePlaylist(r.Context(), playlist)
	if err != nil {
		logger.Error("failed to create playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create playlist")
		return
	}
	playlist.ID = id

	logger.Info("playlist created",
		logger.Int64("playlistId", id), logger.Int64("userId", userID))
	respondJSON(w, http.StatusCreated, playlist)
}

// ListPlaylistsHandler handles GET /api/playlists, listing the caller's
// playlists.
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playlists, err := h.playlistRepo.ListPlaylistsByUser(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list playlists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list playlists")
		return
	}
	respondJSON(w, http.StatusOK, playlists)
}

// GetPlaylistHandler handles GET /api/playlists/{id}, returning the playlist
// with its tracks in order.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.ownedPlaylist(w, r)
	if playlist == nil {
		return
	}

	tracks, err := h.playlistRepo.ListTracks(r.Context(), playlist.ID)
	if err != nil {
		logger.Error("failed to list playlist tracks",
			logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list playlist tracks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"playlist": playlist,
		"tracks":   tracks,
	})
}

// DeletePlaylistHandler handles DELETE /api/playlists/{id}.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.ownedPlaylist(w, r)
	if playlist == nil {
		return
	}

	if err := h.playlistRepo.DeletePlaylist(r.Context(), playlist.ID); err != nil {
		logger.Error("failed to delete playlist",
			logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddPlaylistTrackHandler handles POST /api/playlists/{id}/tracks.
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.ownedPlaylist(w, r)
	if playlist == nil {
		return
	}

	var req struct {
		TrackID  int64 `json:"trackId"`
		Position int   `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID <= 0 {
		respondError(w, http.StatusBadRequest, "valid trackId is required")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), req.TrackID)
	if err != nil {
		logger.Error("failed to get track", logger.Int64("trackId", req.TrackID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	if err := h.playlistRepo.AddTrack(r.Context(), playlist.ID, req.TrackID, req.Position); err != nil {
		logger.Error("failed to add playlist track",
			logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to add track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// RemovePlaylistTrackHandler handles DELETE /api/playlists/{id}/tracks/{trackId}.
func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.ownedPlaylist(w, r)
	if playlist == nil {
		return
	}

	trackID, err := strconv.ParseInt(mux.Vars(r)["trackId"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	if err := h.playlistRepo.RemoveTrack(r.Context(), playlist.ID, trackID); err != nil {
		logger.Error("failed to remove playlist track",
			logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to remove track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
