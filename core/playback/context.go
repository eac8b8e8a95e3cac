package playback

import "fmt"

// ContextType tags the playback context variant.
type ContextType string

const (
	// ContextSingle plays one track with no follow-up.
	ContextSingle ContextType = "single"
	// ContextPlaylist walks a playlist in its stored order.
	ContextPlaylist ContextType = "playlist"
	// ContextGlobal walks the whole catalog alphabetically.
	ContextGlobal ContextType = "global"
)

// Context is the ordered universe of tracks that "next" resolves against.
type Context struct {
	Type       ContextType `json:"type"`
	TrackID    int64       `json:"trackId,omitempty"`    // set for single
	PlaylistID int64       `json:"playlistId,omitempty"` // set for playlist
}

// Single returns a single-track context.
func Single(trackID int64) Context {
	return Context{Type: ContextSingle, TrackID: trackID}
}

// Playlist returns a playlist context.
func Playlist(playlistID int64) Context {
	return Context{Type: ContextPlaylist, PlaylistID: playlistID}
}

// Global returns the whole-catalog context.
func Global() Context {
	return Context{Type: ContextGlobal}
}

// Validate checks that the variant carries the id it needs.
func (c Context) Validate() error {
	switch c.Type {
	case ContextSingle:
		if c.TrackID <= 0 {
			return fmt.Errorf("single context requires a track id")
		}
	case ContextPlaylist:
		if c.PlaylistID <= 0 {
			return fmt.Errorf("playlist context requires a playlist id")
		}
	case ContextGlobal:
	default:
		return fmt.Errorf("unknown context type: %q", c.Type)
	}
	return nil
}
