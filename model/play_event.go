package model

import "time"

// PlayEvent is one immutable record that a track was dispatched to a user.
// Rows are append-only: the application never updates or deletes them.
// Insertion order (the auto-increment id) breaks ties between equal
// timestamps.
type PlayEvent struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	TrackID  int64     `json:"trackId"`
	PlayedAt time.Time `json:"playedAt"`
}
