package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EchoFM/core/playback"
	"EchoFM/storage"
)

type stubResolver struct {
	tracks map[string]*playback.TrackInfo
	err    error
}

func (s *stubResolver) ResolveTrackByName(_ context.Context, name string) (*playback.TrackInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tracks[name], nil
}

type stubEntitlement struct {
	entitled bool
	err      error
}

func (s *stubEntitlement) IsEntitled(context.Context, int64) (bool, error) {
	return s.entitled, s.err
}

// memFile wraps an in-memory byte slice as an AudioFile.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

type stubStore struct {
	files map[string][]byte
}

func (s *stubStore) Open(key string) (storage.AudioFile, int64, error) {
	data, ok := s.files[key]
	if !ok {
		return nil, 0, os.ErrNotExist
	}
	return memFile{bytes.NewReader(data)}, int64(len(data)), nil
}

func streamTestServer(t *testing.T, resolver *stubResolver, ent *stubEntitlement, store *stubStore) http.Handler {
	t.Helper()
	sh := NewStreamHandler(resolver, ent, store)
	router := mux.NewRouter()
	router.HandleFunc("/songs/{name}", func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), "userID", int64(1))
		sh.ServeTrack(w, r.WithContext(ctx))
	})
	return router
}

func testAudio(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func defaultStreamFixture() (*stubResolver, *stubEntitlement, *stubStore, []byte) {
	audio := testAudio(5000)
	resolver := &stubResolver{tracks: map[string]*playback.TrackInfo{
		"alpha": {ID: 10, Name: "alpha", StorageKey: "alpha.mp3"},
		"delta": {ID: 40, Name: "delta", IsPremium: true, StorageKey: "delta.mp3"},
	}}
	store := &stubStore{files: map[string][]byte{
		"alpha.mp3": audio,
		"delta.mp3": audio,
	}}
	return resolver, &stubEntitlement{}, store, audio
}

func TestServeTrackFullContent(t *testing.T) {
	resolver, ent, store, audio := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "5000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Empty(t, rec.Header().Get("Content-Range"))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, audio, body)
}

func TestServeTrackPartialContent(t *testing.T) {
	resolver, ent, store, audio := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	tests := []struct {
		header    string
		wantRange string
		wantBody  []byte
	}{
		{"bytes=0-0", "bytes 0-0/5000", audio[0:1]},
		{"bytes=0-999", "bytes 0-999/5000", audio[0:1000]},
		{"bytes=4000-", "bytes 4000-4999/5000", audio[4000:]},
		{"bytes=4900-9999", "bytes 4900-4999/5000", audio[4900:]},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
			req.Header.Set("Range", tt.header)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusPartialContent, rec.Code)
			assert.Equal(t, tt.wantRange, rec.Header().Get("Content-Range"))
			assert.Equal(t, tt.wantBody, rec.Body.Bytes())
		})
	}
}

func TestServeTrackUnsatisfiableRange(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	for _, header := range []string{"bytes=5000-", "bytes=9999-10000"} {
		req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
		req.Header.Set("Range", header)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code, "header %q", header)
		assert.Equal(t, "bytes */5000", rec.Header().Get("Content-Range"))
		assert.Empty(t, rec.Body.Bytes())
	}
}

func TestServeTrackMalformedRangeServesFull(t *testing.T) {
	resolver, ent, store, audio := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	for _, header := range []string{"bytes=-500", "bytes=0-10,20-30", "chunks=0-10"} {
		req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
		req.Header.Set("Range", header)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "header %q", header)
		assert.Equal(t, audio, rec.Body.Bytes())
	}
}

func TestServeTrackUnknownTrack(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/nope.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeTrackMissingFile(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	delete(store.files, "alpha.mp3")
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Audio file not found")
}

func TestServeTrackPremiumDenied(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	// Denied before any audio byte, with or without a Range header.
	for _, withRange := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodGet, "/songs/delta.mp3", nil)
		if withRange {
			req.Header.Set("Range", "bytes=0-999")
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotContains(t, rec.Header(), "Content-Range")
	}
}

func TestServeTrackPremiumAllowed(t *testing.T) {
	resolver, ent, store, audio := defaultStreamFixture()
	ent.entitled = true
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/delta.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, audio, rec.Body.Bytes())
}

func TestServeTrackCatalogDown(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	resolver.err = errors.New("connection refused")
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeTrackEntitlementDown(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	ent.err = errors.New("connection refused")
	srv := streamTestServer(t, resolver, ent, store)

	req := httptest.NewRequest(http.MethodGet, "/songs/delta.mp3", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeTrackUnauthorized(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	sh := NewStreamHandler(resolver, ent, store)
	router := mux.NewRouter()
	router.HandleFunc("/songs/{name}", sh.ServeTrack)

	req := httptest.NewRequest(http.MethodGet, "/songs/alpha.mp3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeTrackExtensionStripped(t *testing.T) {
	resolver, ent, store, _ := defaultStreamFixture()
	srv := streamTestServer(t, resolver, ent, store)

	// Bare name without extension resolves the same track.
	req := httptest.NewRequest(http.MethodGet, "/songs/alpha", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
