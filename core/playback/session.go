package playback

import "time"

// Session is the server-held playback state for one user. It is ephemeral:
// created on the first playback action, discarded at logout or idle expiry,
// never persisted.
type Session struct {
	UserID       int64
	CurrentTrack int64 // 0 means no current track
	Context      *Context
	Shuffle      bool
	Repeat       bool

	// ContextTracks is the ordered playlist membership snapshot taken at
	// play time. Shuffle picks from this snapshot, not from live state.
	ContextTracks []int64

	LastActive time.Time
}

// Snapshot is the externally visible view of a session.
type Snapshot struct {
	CurrentTrack int64    `json:"currentTrack,omitempty"`
	Context      *Context `json:"context,omitempty"`
	Shuffle      bool     `json:"shuffle"`
	Repeat       bool     `json:"repeat"`
}

func (s *Session) snapshot() Snapshot {
	var pc *Context
	if s.Context != nil {
		c := *s.Context
		pc = &c
	}
	return Snapshot{
		CurrentTrack: s.CurrentTrack,
		Context:      pc,
		Shuffle:      s.Shuffle,
		Repeat:       s.Repeat,
	}
}
