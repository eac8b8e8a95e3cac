package repository

import (
	"context"
	"database/sql"
	"fmt"

	"EchoFM/cache"
	"EchoFM/model"
)

// PlaylistRepository defines playlist data operations. Mutations invalidate
// the cached context ordering so the playback core never advances along a
// stale playlist.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error)
	GetPlaylist(ctx context.Context, id int64) (*model.Playlist, error)
	ListPlaylistsByUser(ctx context.Context, userID int64) ([]*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
	AddTrack(ctx context.Context, playlistID, trackID int64, position int) error
	RemoveTrack(ctx context.Context, playlistID, trackID int64) error
	ListTracks(ctx context.Context, playlistID int64) ([]*model.Track, error)
}

// mysqlPlaylistRepository implements PlaylistRepository for MySQL.
type mysqlPlaylistRepository struct {
	DB *sql.DB
}

// NewMySQLPlaylistRepository creates a new instance of mysqlPlaylistRepository.
func NewMySQLPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &mysqlPlaylistRepository{DB: db}
}

// CreatePlaylist inserts a new playlist.
func (r *mysqlPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO playlists (name, user_id) VALUES (?, ?)`,
		playlist.Name, playlist.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert playlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for playlist: %w", err)
	}
	return id, nil
}

// GetPlaylist retrieves a playlist by ID. Returns (nil, nil) if not found.
func (r *mysqlPlaylistRepository) GetPlaylist(ctx context.Context, id int64) (*model.Playlist, error) {
	p := &model.Playlist{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at FROM playlists WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	return p, nil
}

// ListPlaylistsByUser returns all playlists owned by a user.
func (r *mysqlPlaylistRepository) ListPlaylistsByUser(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, user_id, created_at FROM playlists WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*model.Playlist
	for rows.Next() {
		p := &model.Playlist{}
		if err := rows.Scan(&p.ID, &p.Name, &p.UserID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// DeletePlaylist removes a playlist and its membership rows.
func (r *mysqlPlaylistRepository) DeletePlaylist(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	cache.InvalidatePlaylist(ctx, id)
	return nil
}

// AddTrack adds a track to a playlist at the given position.
func (r *mysqlPlaylistRepository) AddTrack(ctx context.Context, playlistID, trackID int64, position int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`,
		playlistID, trackID, position)
	if err != nil {
		return fmt.Errorf("failed to add track to playlist: %w", err)
	}
	cache.InvalidatePlaylist(ctx, playlistID)
	return nil
}

// RemoveTrack removes a track from a playlist.
func (r *mysqlPlaylistRepository) RemoveTrack(ctx context.Context, playlistID, trackID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)
	if err != nil {
		return fmt.Errorf("failed to remove track from playlist: %w", err)
	}
	cache.InvalidatePlaylist(ctx, playlistID)
	return nil
}

// ListTracks returns the playlist's tracks in playback order.
func (r *mysqlPlaylistRepository) ListTracks(ctx context.Context, playlistID int64) ([]*model.Track, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name, t.artist_id, COALESCE(t.album_id, 0), COALESCE(t.genre_id, 0),
		       t.duration_secs, t.is_premium, t.storage_key, t.created_at, t.updated_at
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC, pt.track_id ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
