package model

import (
	"database/sql"
	"time"
)

// Album represents a catalog album.
type Album struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	ArtistID     int64        `json:"artistId"`
	ReleaseDate  sql.NullTime `json:"releaseDate,omitempty"`
	CoverArtPath string       `json:"coverArtPath,omitempty"` // object key in MinIO
	CreatedAt    time.Time    `json:"createdAt"`
}
