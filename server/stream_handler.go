package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"EchoFM/core/playback"
	"EchoFM/logger"
	"EchoFM/storage"

	"github.com/gorilla/mux"
)

// streamChunkSize is how much of the file is read per iteration. Large
// enough to amortize I/O; the file is never buffered whole.
const streamChunkSize = 1 << 20 // 1 MiB

// trackResolver resolves a track name to playback metadata.
type trackResolver interface {
	ResolveTrackByName(ctx context.Context, name string) (*playback.TrackInfo, error)
}

// entitlementChecker answers the premium entitlement question.
type entitlementChecker interface {
	IsEntitled(ctx context.Context, userID int64) (bool, error)
}

// audioOpener opens the audio file behind a storage key.
type audioOpener interface {
	Open(key string) (storage.AudioFile, int64, error)
}

// StreamHandler serves track audio with byte-range support. Access is
// re-validated on every request; a playback decision made earlier by the
// session engine is never trusted here. It holds no session lock, so
// concurrent streams never block each other.
type StreamHandler struct {
	catalog  trackResolver
	entitled entitlementChecker
	store    audioOpener
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(catalog trackResolver, entitled entitlementChecker, store audioOpener) *StreamHandler {
	return &StreamHandler{catalog: catalog, entitled: entitled, store: store}
}

// ServeTrack handles GET /songs/{name}. The name may carry the audio file
// extension; it is stripped before the catalog lookup.
func (h *StreamHandler) ServeTrack(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filename := mux.Vars(r)["name"]
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	info, err := h.catalog.ResolveTrackByName(r.Context(), name)
	if err != nil {
		logger.Error("catalog lookup failed", logger.String("track", name), logger.ErrorField(err))
		http.Error(w, "Catalog unavailable, retry later", http.StatusServiceUnavailable)
		return
	}
	if info == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	if info.IsPremium {
		entitled, err := h.entitled.IsEntitled(r.Context(), userID)
		if err != nil {
			logger.Error("entitlement check failed", logger.Int64("userId", userID), logger.ErrorField(err))
			http.Error(w, "Entitlement service unavailable, retry later", http.StatusServiceUnavailable)
			return
		}
		if !entitled {
			// 403 before any byte is written, zero-length body included.
			http.Error(w, "Premium subscription required", http.StatusForbidden)
			return
		}
	}

	f, size, err := h.store.Open(info.StorageKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Known track, missing file: distinct log line for operability,
			// same user-facing treatment as an unknown track.
			logger.Warn("audio file missing",
				logger.String("track", name),
				logger.String("storageKey", info.StorageKey))
			http.Error(w, "Audio file not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to open audio file", logger.String("track", name), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(info.StorageKey))
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		h.serveFull(w, r, f, size, contentType)
		return
	}

	rng, err := parseRange(rangeHeader, size)
	switch {
	case errors.Is(err, errRangeUnsatisfiable):
		w.Header().Set("Content-Range", unsatisfiableContentRange(size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	case err != nil:
		// Malformed or multi-range: serve the whole file instead of
		// erroring, for simple range-seeking clients.
		h.serveFull(w, r, f, size, contentType)
	default:
		h.servePartial(w, r, f, size, rng, contentType)
	}
}

func (h *StreamHandler) serveFull(w http.ResponseWriter, r *http.Request, f io.ReadSeeker, size int64, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)

	h.copyChunks(w, r, f, 0, size)
}

func (h *StreamHandler) servePartial(w http.ResponseWriter, r *http.Request, f io.ReadSeeker, size int64, rng byteRange, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	w.Header().Set("Content-Range", contentRange(rng, size))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusPartialContent)

	h.copyChunks(w, r, f, rng.Start, rng.Length())
}

// copyChunks streams length bytes from offset in fixed-size chunks. A client
// abort stops the transfer promptly; a read error aborts the response so a
// truncated range is never delivered as complete.
func (h *StreamHandler) copyChunks(w http.ResponseWriter, r *http.Request, f io.ReadSeeker, offset, length int64) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		logger.Error("seek failed", logger.ErrorField(err))
		return
	}

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamChunkSize)
	remaining := length

	for remaining > 0 {
		if err := r.Context().Err(); err != nil {
			logger.Debug("client aborted stream", logger.ErrorField(err))
			return
		}

		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}

		n, readErr := io.ReadFull(f, buf[:chunk])
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				logger.Debug("client aborted stream", logger.ErrorField(writeErr))
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			remaining -= int64(n)
		}
		if readErr != nil {
			if remaining > 0 {
				logger.Error("read failed mid-stream, aborting transfer",
					logger.Int64("remaining", remaining),
					logger.ErrorField(readErr))
			}
			return
		}
	}
}
