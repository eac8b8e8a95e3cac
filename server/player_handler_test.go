package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EchoFM/core/playback"
)

// playerCatalog is a Catalog fake over a fixed two-track playlist.
type playerCatalog struct{}

var playerTracks = map[int64]*playback.TrackInfo{
	10: {ID: 10, Name: "alpha", StorageKey: "a.mp3"},
	20: {ID: 20, Name: "beta", StorageKey: "b.mp3"},
	40: {ID: 40, Name: "delta", IsPremium: true, StorageKey: "d.mp3"},
}

func (playerCatalog) ResolveTrackByName(_ context.Context, name string) (*playback.TrackInfo, error) {
	for _, t := range playerTracks {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (playerCatalog) TrackByID(_ context.Context, id int64) (*playback.TrackInfo, error) {
	return playerTracks[id], nil
}

func (playerCatalog) OrderedContext(_ context.Context, pc playback.Context) ([]int64, error) {
	if pc.Type == playback.ContextSingle {
		return []int64{pc.TrackID}, nil
	}
	return []int64{10, 20}, nil
}

func (playerCatalog) NextAfter(_ context.Context, pc playback.Context, current int64) (int64, bool, error) {
	if pc.Type == playback.ContextSingle {
		return 0, false, nil
	}
	if current == 10 {
		return 20, true, nil
	}
	return 0, false, nil
}

type playerHistory struct {
	events []int64
}

func (h *playerHistory) Append(_ context.Context, _, trackID int64, _ time.Time) error {
	h.events = append(h.events, trackID)
	return nil
}

func newPlayerTestHandler(entitled bool) (*APIHandler, *playerHistory) {
	hist := &playerHistory{}
	engine := playback.NewEngine(playerCatalog{}, &stubEntitlement{entitled: entitled}, hist,
		playback.NewManager(0))
	return &APIHandler{engine: engine, hub: newPlayerHub()}, hist
}

func doPlayerAction(t *testing.T, h *APIHandler, body string) (*httptest.ResponseRecorder, playerResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/player", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), "userID", int64(1)))
	rec := httptest.NewRecorder()
	h.PlayerActionHandler(rec, req)

	var resp playerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestPlayerActionPlay(t *testing.T) {
	h, hist := newPlayerTestHandler(false)

	rec, resp := doPlayerAction(t, h, `{"action":"play","trackId":10,"context":{"type":"playlist","playlistId":5}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Decision)
	assert.Equal(t, playback.OutcomeAccepted, resp.Decision.Outcome)
	assert.Equal(t, int64(10), resp.Session.CurrentTrack)
	assert.Equal(t, []int64{10}, hist.events)
}

func TestPlayerActionPlayDefaultsToSingleContext(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	rec, resp := doPlayerAction(t, h, `{"action":"play","trackId":10}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Session.Context)
	assert.Equal(t, playback.ContextSingle, resp.Session.Context.Type)
}

func TestPlayerActionNext(t *testing.T) {
	h, hist := newPlayerTestHandler(false)

	doPlayerAction(t, h, `{"action":"play","trackId":10,"context":{"type":"playlist","playlistId":5}}`)
	rec, resp := doPlayerAction(t, h, `{"action":"next"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, playback.OutcomeAccepted, resp.Decision.Outcome)
	assert.Equal(t, int64(20), resp.Decision.TrackID)
	assert.Equal(t, []int64{10, 20}, hist.events)

	// End of playlist.
	rec, resp = doPlayerAction(t, h, `{"action":"next"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, playback.OutcomeNoNext, resp.Decision.Outcome)
	assert.Equal(t, int64(20), resp.Session.CurrentTrack)
}

func TestPlayerActionPremiumDenied(t *testing.T) {
	h, hist := newPlayerTestHandler(false)

	rec, resp := doPlayerAction(t, h, `{"action":"play","trackId":40}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, playback.OutcomeDenied, resp.Decision.Outcome)
	assert.Equal(t, playback.ReasonPremiumRequired, resp.Decision.Reason)
	assert.NotNil(t, resp.Decision.Redirect)
	assert.Empty(t, hist.events)
	assert.Zero(t, resp.Session.CurrentTrack)
}

func TestPlayerActionToggles(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	rec, resp := doPlayerAction(t, h, `{"action":"toggle_shuffle"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Session.Shuffle)
	assert.Nil(t, resp.Decision)

	rec, resp = doPlayerAction(t, h, `{"action":"toggle_repeat"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Session.Shuffle)
	assert.True(t, resp.Session.Repeat)
}

func TestPlayerActionValidation(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	for _, body := range []string{
		`{"action":"dance"}`,
		`{"action":"play"}`,
		`{"action":"play","trackId":-3}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/player", strings.NewReader(body))
		req = req.WithContext(context.WithValue(req.Context(), "userID", int64(1)))
		rec := httptest.NewRecorder()
		h.PlayerActionHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestPlayerActionUnknownTrack(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	req := httptest.NewRequest(http.MethodPost, "/api/player", strings.NewReader(`{"action":"play","trackId":999}`))
	req = req.WithContext(context.WithValue(req.Context(), "userID", int64(1)))
	rec := httptest.NewRecorder()
	h.PlayerActionHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayerStateHandler(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	doPlayerAction(t, h, `{"action":"play","trackId":10}`)

	req := httptest.NewRequest(http.MethodGet, "/api/player", nil)
	req = req.WithContext(context.WithValue(req.Context(), "userID", int64(1)))
	rec := httptest.NewRecorder()
	h.PlayerStateHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp playerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(10), resp.Session.CurrentTrack)
}

func TestPlayerHandlersRequireAuth(t *testing.T) {
	h, _ := newPlayerTestHandler(false)

	req := httptest.NewRequest(http.MethodPost, "/api/player", strings.NewReader(`{"action":"next"}`))
	rec := httptest.NewRecorder()
	h.PlayerActionHandler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/player", nil)
	rec = httptest.NewRecorder()
	h.PlayerStateHandler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
