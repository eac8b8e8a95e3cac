package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"EchoFM/model"
)

// HistoryRepository is the append-only play history log. Append is the only
// mutation; rows are never updated or deleted. The read paths aggregate over
// everything appended so far (read-your-writes is the database's SELECT
// visibility of committed INSERTs).
type HistoryRepository interface {
	Append(ctx context.Context, userID, trackID int64, playedAt time.Time) error
	TopTracksByUser(ctx context.Context, userID int64, limit int) ([]*model.TrackPlays, error)
	GlobalTopTracks(ctx context.Context, limit int) ([]*model.TrackPlays, error)
	FavoriteArtist(ctx context.Context, userID int64) (*model.ArtistPlays, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]*model.PlayEvent, error)
}

// mysqlHistoryRepository implements HistoryRepository for MySQL.
type mysqlHistoryRepository struct {
	DB *sql.DB
}

// NewMySQLHistoryRepository creates a new instance of mysqlHistoryRepository.
func NewMySQLHistoryRepository(db *sql.DB) HistoryRepository {
	return &mysqlHistoryRepository{DB: db}
}

// Append records one play event. A single INSERT, so the append is atomic:
// either the row exists afterwards or the error propagates to the caller.
func (r *mysqlHistoryRepository) Append(ctx context.Context, userID, trackID int64, playedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO play_events (user_id, track_id, played_at) VALUES (?, ?, ?)`,
		userID, trackID, playedAt)
	if err != nil {
		return fmt.Errorf("failed to append play event: %w", err)
	}
	return nil
}

// TopTracksByUser returns the user's most played tracks. Ties break on track
// name for a stable listing.
func (r *mysqlHistoryRepository) TopTracksByUser(ctx context.Context, userID int64, limit int) ([]*model.TrackPlays, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name, a.name, COUNT(*) AS play_count
		FROM play_events e
		JOIN tracks t ON t.id = e.track_id
		JOIN artists a ON a.id = t.artist_id
		WHERE e.user_id = ?
		GROUP BY t.id, t.name, a.name
		ORDER BY play_count DESC, t.name ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	defer rows.Close()
	return scanTrackPlays(rows)
}

// GlobalTopTracks returns the most played tracks across all users.
func (r *mysqlHistoryRepository) GlobalTopTracks(ctx context.Context, limit int) ([]*model.TrackPlays, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name, a.name, COUNT(e.id) AS play_count
		FROM tracks t
		JOIN artists a ON a.id = t.artist_id
		LEFT JOIN play_events e ON e.track_id = t.id
		GROUP BY t.id, t.name, a.name
		ORDER BY play_count DESC, t.name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query global top tracks: %w", err)
	}
	defer rows.Close()
	return scanTrackPlays(rows)
}

func scanTrackPlays(rows *sql.Rows) ([]*model.TrackPlays, error) {
	var out []*model.TrackPlays
	for rows.Next() {
		tp := &model.TrackPlays{}
		if err := rows.Scan(&tp.TrackID, &tp.TrackName, &tp.ArtistName, &tp.PlayCount); err != nil {
			return nil, fmt.Errorf("failed to scan play count row: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// FavoriteArtist returns the artist the user has played most, or (nil, nil)
// when the user has no history yet.
func (r *mysqlHistoryRepository) FavoriteArtist(ctx context.Context, userID int64) (*model.ArtistPlays, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT a.id, a.name, COUNT(*) AS play_count
		FROM play_events e
		JOIN tracks t ON t.id = e.track_id
		JOIN artists a ON a.id = t.artist_id
		WHERE e.user_id = ?
		GROUP BY a.id, a.name
		ORDER BY play_count DESC, a.name ASC
		LIMIT 1`, userID)

	ap := &model.ArtistPlays{}
	err := row.Scan(&ap.ArtistID, &ap.ArtistName, &ap.PlayCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query favorite artist: %w", err)
	}
	return ap, nil
}

// RecentByUser returns the user's latest play events, newest first.
// Timestamp ties break on insertion order (the auto-increment id).
func (r *mysqlHistoryRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]*model.PlayEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, track_id, played_at
		FROM play_events
		WHERE user_id = ?
		ORDER BY played_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent plays: %w", err)
	}
	defer rows.Close()

	var out []*model.PlayEvent
	for rows.Next() {
		e := &model.PlayEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.TrackID, &e.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
