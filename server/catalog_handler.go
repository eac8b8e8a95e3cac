package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"EchoFM/logger"
	"EchoFM/model"
	"EchoFM/storage"
)

// maxCoverSize caps cover art uploads at 10 MiB.
const maxCoverSize = 10 << 20

// ListArtistsHandler handles GET /api/artists.
func (h *APIHandler) ListArtistsHandler(w http.ResponseWriter, r *http.Request) {
	artists, err := h.catalogRepo.ListArtists(r.Context())
	if err != nil {
		logger.Error("failed to list artists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list artists")
		return
	}
	respondJSON(w, http.StatusOK, artists)
}

// GetArtistHandler handles GET /api/artists/{id}.
func (h *APIHandler) GetArtistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid artist id")
		return
	}

	artist, err := h.catalogRepo.GetArtist(r.Context(), id)
	if err != nil {
		logger.Error("failed to get artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to get artist")
		return
	}
	if artist == nil {
		respondError(w, http.StatusNotFound, "artist not found")
		return
	}
	respondJSON(w, http.StatusOK, artist)
}

// CreateArtistHandler handles POST /api/artists (admin only).
func (h *APIHandler) CreateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var artist model.Artist
	if err := json.NewDecoder(r.Body).Decode(&artist); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	artist.Name = strings.TrimSpace(artist.Name)
	if artist.Name == "" {
		respondError(w, http.StatusBadRequest, "artist name is required")
		return
	}

	id, err := h.catalogRepo.CreateArtist(r.Context(), &artist)
	if err != nil {
		logger.Error("failed to create artist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create artist")
		return
	}
	artist.ID = id
	respondJSON(w, http.StatusCreated, artist)
}

// DeleteArtistHandler handles DELETE /api/artists/{id} (admin only).
func (h *APIHandler) DeleteArtistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	if err := h.catalogRepo.DeleteArtist(r.Context(), id); err != nil {
		logger.Error("failed to delete artist", logger.Int64("artistId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete artist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListAlbumsHandler handles GET /api/albums.
func (h *APIHandler) ListAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.catalogRepo.ListAlbums(r.Context())
	if err != nil {
		logger.Error("failed to list albums", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list albums")
		return
	}
	respondJSON(w, http.StatusOK, albums)
}

// CreateAlbumHandler handles POST /api/albums (admin only).
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var album model.Album
	if err := json.NewDecoder(r.Body).Decode(&album); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	album.Name = strings.TrimSpace(album.Name)
	if album.Name == "" || album.ArtistID <= 0 {
		respondError(w, http.StatusBadRequest, "album name and artistId are required")
		return
	}

	id, err := h.catalogRepo.CreateAlbum(r.Context(), &album)
	if err != nil {
		logger.Error("failed to create album", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create album")
		return
	}
	album.ID = id
	respondJSON(w, http.StatusCreated, album)
}

// UploadAlbumCoverHandler handles POST /api/albums/{id}/cover (admin only).
// The image goes to object storage and the album row keeps the object path.
func (h *APIHandler) UploadAlbumCoverHandler(w http.ResponseWriter, r *http.Request) {
	albumID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid album id")
		return
	}

	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		respondError(w, http.StatusBadRequest, "cover file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusBadRequest, "cover must be an image")
		return
	}

	name := strconv.FormatInt(albumID, 10) + strings.ToLower(filepath.Ext(header.Filename))
	objectPath, err := storage.PutCoverArt(r.Context(), name, file, header.Size, contentType)
	if err != nil {
		logger.Error("failed to upload cover art",
			logger.Int64("albumId", albumID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to upload cover art")
		return
	}

	if err := h.catalogRepo.UpdateAlbumCover(r.Context(), albumID, objectPath); err != nil {
		logger.Error("failed to record cover path",
			logger.Int64("albumId", albumID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to update album")
		return
	}

	logger.Info("album cover uploaded",
		logger.Int64("albumId", albumID), logger.String("path", objectPath))
	respondJSON(w, http.StatusOK, map[string]string{"coverPath": objectPath})
}

// DeleteAlbumHandler handles DELETE /api/albums/{id} (admin only).
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid album id")
		return
	}
	if err := h.catalogRepo.DeleteAlbum(r.Context(), id); err != nil {
		logger.Error("failed to delete album", logger.Int64("albumId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete album")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListGenresHandler handles GET /api/genres.
func (h *APIHandler) ListGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalogRepo.ListGenres(r.Context())
	if err != nil {
		logger.Error("failed to list genres", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list genres")
		return
	}
	respondJSON(w, http.StatusOK, genres)
}

// CreateGenreHandler handles POST /api/genres (admin only).
func (h *APIHandler) CreateGenreHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "genre name is required")
		return
	}

	id, err := h.catalogRepo.CreateGenre(r.Context(), req.Name)
	if err != nil {
		logger.Error("failed to create genre", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create genre")
		return
	}
	respondJSON(w, http.StatusCreated, model.Genre{ID: id, Name: req.Name})
}

// DeleteGenreHandler handles DELETE /api/genres/{id} (admin only).
func (h *APIHandler) DeleteGenreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid genre id")
		return
	}
	if err := h.catalogRepo.DeleteGenre(r.Context(), id); err != nil {
		logger.Error("failed to delete genre", logger.Int64("genreId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete genre")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
