package model

import "time"

// Playlist represents a user-owned playlist.
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaylistTrack is a playlist membership row. Position drives the sequential
// "next" ordering inside a playlist context.
type PlaylistTrack struct {
	PlaylistID int64 `json:"playlistId"`
	TrackID    int64 `json:"trackId"`
	Position   int   `json:"position"`
}
