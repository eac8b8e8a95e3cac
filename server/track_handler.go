package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"EchoFM/logger"
	"EchoFM/model"
)

// maxUploadSize caps audio uploads at 100 MiB.
const maxUploadSize = 100 << 20

// ListTracksHandler handles GET /api/tracks.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.trackRepo.ListTracks(r.Context())
	if err != nil {
		logger.Error("failed to list tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler handles GET /api/tracks/{id}.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), id)
	if err != nil {
		logger.Error("failed to get track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// UploadTrackHandler handles POST /api/tracks (admin only). The request is a
// multipart form: an "audio" file part plus metadata fields. The audio file is
// stored under a generated key so catalog renames never touch the file.
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "track name is required")
		return
	}

	artistID, err := strconv.ParseInt(r.FormValue("artistId"), 10, 64)
	if err != nil || artistID <= 0 {
		respondError(w, http.StatusBadRequest, "valid artistId is required")
		return
	}

	track := &model.Track{
		Name:      name,
		ArtistID:  artistID,
		IsPremium: r.FormValue("isPremium") == "true",
	}
	if v := r.FormValue("albumId"); v != "" {
		track.AlbumID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.FormValue("genreId"); v != "" {
		track.GenreID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.FormValue("durationSecs"); v != "" {
		track.DurationSecs, _ = strconv.Atoi(v)
	}

	if existing, err := h.trackRepo.GetTrackByName(r.Context(), name); err != nil {
		logger.Error("track name lookup failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to check track name")
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "track name already exists")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".mp3"
	}
	track.StorageKey = uuid.New().String() + ext

	size, err := h.store.Save(track.StorageKey, file)
	if err != nil {
		logger.Error("failed to store audio file",
			logger.String("key", track.StorageKey), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to store audio file")
		return
	}

	id, err := h.trackRepo.CreateTrack(r.Context(), track)
	if err != nil {
		// The file is orphaned without the catalog row, clean it up.
		if rmErr := h.store.Remove(track.StorageKey); rmErr != nil {
			logger.Warn("failed to remove orphaned audio file",
				logger.String("key", track.StorageKey), logger.ErrorField(rmErr))
		}
		logger.Error("failed to insert track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create track")
		return
	}
	track.ID = id

	logger.Info("track uploaded",
		logger.Int64("trackId", id),
		logger.String("name", name),
		logger.Int64("bytes", size))
	respondJSON(w, http.StatusCreated, track)
}

// UpdateTrackHandler handles PUT /api/tracks/{id} (admin only).
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), id)
	if err != nil {
		logger.Error("failed to get track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	var req struct {
		Name         *string `json:"name"`
		ArtistID     *int64  `json:"artistId"`
		AlbumID      *int64  `json:"albumId"`
		GenreID      *int64  `json:"genreId"`
		DurationSecs *int    `json:"durationSecs"`
		IsPremium    *bool   `json:"isPremium"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		track.Name = strings.TrimSpace(*req.Name)
		if track.Name == "" {
			respondError(w, http.StatusBadRequest, "track name cannot be empty")
			return
		}
	}
	if req.ArtistID != nil {
		track.ArtistID = *req.ArtistID
	}
	if req.AlbumID != nil {
		track.AlbumID = *req.AlbumID
	}
	if req.GenreID != nil {
		track.GenreID = *req.GenreID
	}
	if req.DurationSecs != nil {
		track.DurationSecs = *req.DurationSecs
	}
	if req.IsPremium != nil {
		track.IsPremium = *req.IsPremium
	}

	if err := h.trackRepo.UpdateTrack(r.Context(), track); err != nil {
		logger.Error("failed to update track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to update track")
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler handles DELETE /api/tracks/{id} (admin only). The audio
// file is removed after the catalog row so a failed delete never leaves a
// servable row without its file.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), id)
	if err != nil {
		logger.Error("failed to get track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}

	if err := h.trackRepo.DeleteTrack(r.Context(), id); err != nil {
		logger.Error("failed to delete track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete track")
		return
	}

	if track.StorageKey != "" {
		if err := h.store.Remove(track.StorageKey); err != nil {
			logger.Warn("failed to remove audio file",
				logger.String("key", track.StorageKey), logger.ErrorField(err))
		}
	}

	logger.Info("track deleted", logger.Int64("trackId", id))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
