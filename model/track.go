package model

import "time"

// Track represents an audio track in the catalog.
// The storage key maps to a file in the songs directory; it is assigned at
// upload time and never changes afterwards.
type Track struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ArtistID     int64     `json:"artistId"`
	AlbumID      int64     `json:"albumId,omitempty"`
	GenreID      int64     `json:"genreId,omitempty"`
	DurationSecs int       `json:"durationSecs"`
	IsPremium    bool      `json:"isPremium"`
	StorageKey   string    `json:"-"` // file name under the songs dir, not exposed
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TrackPlays is a play-count aggregation row read from the play history.
type TrackPlays struct {
	TrackID    int64  `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName,omitempty"`
	PlayCount  int64  `json:"playCount"`
}
