package playback

// Outcome classifies a playback decision.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeDenied   Outcome = "denied"
	OutcomeNoNext   Outcome = "no_next_track"
)

// DenyReason says why a decision was denied, machine-readable so the caller
// can distinguish an upgrade prompt from a generic failure.
type DenyReason string

const (
	ReasonPremiumRequired DenyReason = "premium_required"
	ReasonLoggingFailure  DenyReason = "logging_failure"
)

// Decision is the outcome of one transport action.
type Decision struct {
	Outcome  Outcome    `json:"outcome"`
	TrackID  int64      `json:"trackId,omitempty"`
	Reason   DenyReason `json:"reason,omitempty"`
	Redirect *Context   `json:"redirect,omitempty"` // where to send the caller after a premium denial
}

func accepted(trackID int64) Decision {
	return Decision{Outcome: OutcomeAccepted, TrackID: trackID}
}

func denied(reason DenyReason, redirect *Context) Decision {
	return Decision{Outcome: OutcomeDenied, Reason: reason, Redirect: redirect}
}

func noNext() Decision {
	return Decision{Outcome: OutcomeNoNext}
}
