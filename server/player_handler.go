package server

import (
	"encoding/json"
	"net/http"

	"EchoFM/core/playback"
)

// playerActionRequest is the body of a playback action.
type playerActionRequest struct {
	Action  string            `json:"action"`
	TrackID int64             `json:"trackId,omitempty"`
	Context *playback.Context `json:"context,omitempty"`
}

// playerResponse pairs the decision with the resulting session view.
type playerResponse struct {
	Decision *playback.Decision `json:"decision,omitempty"`
	Session  playback.Snapshot  `json:"session"`
}

// PlayerActionHandler handles POST /api/player: play, next, toggle_shuffle,
// toggle_repeat.
func (h *APIHandler) PlayerActionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req playerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "play":
		if req.TrackID <= 0 {
			respondError(w, http.StatusBadRequest, "play requires a track id")
			return
		}
		pc := playback.Single(req.TrackID)
		if req.Context != nil {
			pc = *req.Context
		}
		decision, err := h.engine.Play(r.Context(), userID, req.TrackID, pc)
		if err != nil {
			writePlaybackError(w, err)
			return
		}
		h.writeDecision(w, userID, decision)

	case "next":
		decision, err := h.engine.Next(r.Context(), userID)
		if err != nil {
			writePlaybackError(w, err)
			return
		}
		h.writeDecision(w, userID, decision)

	case "toggle_shuffle":
		snap := h.engine.ToggleShuffle(userID)
		h.hub.Publish(userID, snap)
		respondJSON(w, http.StatusOK, playerResponse{Session: snap})

	case "toggle_repeat":
		snap := h.engine.ToggleRepeat(userID)
		h.hub.Publish(userID, snap)
		respondJSON(w, http.StatusOK, playerResponse{Session: snap})

	default:
		respondError(w, http.StatusBadRequest, "unknown action")
	}
}

// writeDecision maps a playback decision to a response. Premium denials use
// 403 so clients can show an upgrade prompt; a logging failure is a server
// fault.
func (h *APIHandler) writeDecision(w http.ResponseWriter, userID int64, decision playback.Decision) {
	snap := h.engine.Snapshot(userID)

	status := http.StatusOK
	if decision.Outcome == playback.OutcomeDenied {
		switch decision.Reason {
		case playback.ReasonPremiumRequired:
			status = http.StatusForbidden
		case playback.ReasonLoggingFailure:
			status = http.StatusInternalServerError
		}
	}

	if decision.Outcome == playback.OutcomeAccepted {
		h.hub.Publish(userID, snap)
	}

	respondJSON(w, status, playerResponse{Decision: &decision, Session: snap})
}

// PlayerStateHandler handles GET /api/player: the current session snapshot.
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, playerResponse{Session: h.engine.Snapshot(userID)})
}
