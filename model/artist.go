package model

import "time"

// Artist represents a catalog artist.
type Artist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GenreID   int64     `json:"genreId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArtistPlays is a per-artist play-count aggregation row.
type ArtistPlays struct {
	ArtistID   int64  `json:"artistId"`
	ArtistName string `json:"artistName"`
	PlayCount  int64  `json:"playCount"`
}

// Genre represents a catalog genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
