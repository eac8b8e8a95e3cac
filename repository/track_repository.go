package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"EchoFM/cache"
	"EchoFM/core/playback"
	"EchoFM/logger"
	"EchoFM/model"
)

// TrackRepository defines track data operations. It also backs the playback
// core's catalog boundary: ResolveTrackByName, TrackByID, OrderedContext and
// NextAfter satisfy playback.Catalog.
type TrackRepository interface {
	playback.Catalog

	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	GetTrackByName(ctx context.Context, name string) (*model.Track, error)
	ListTracks(ctx context.Context) ([]*model.Track, error)
	UpdateTrack(ctx context.Context, track *model.Track) error
	DeleteTrack(ctx context.Context, id int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: db}
}

const trackColumns = `id, name, artist_id, COALESCE(album_id, 0), COALESCE(genre_id, 0), duration_secs, is_premium, storage_key, created_at, updated_at`

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	t := &model.Track{}
	err := row.Scan(&t.ID, &t.Name, &t.ArtistID, &t.AlbumID, &t.GenreID,
		&t.DurationSecs, &t.IsPremium, &t.StorageKey, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTrack adds a new track to the catalog.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (name, artist_id, album_id, genre_id, duration_secs, is_premium, storage_key, created_at, updated_at)
	           VALUES (?, ?, NULLIF(?, 0), NULLIF(?, 0), ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := r.DB.ExecContext(ctx, query, track.Name, track.ArtistID, track.AlbumID, track.GenreID,
		track.DurationSecs, track.IsPremium, track.StorageKey, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert track: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for track: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID. Returns (nil, nil) if not found.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track by id: %w", err)
	}
	return t, nil
}

// GetTrackByName retrieves a track by its unique name. Returns (nil, nil) if not found.
func (r *mysqlTrackRepository) GetTrackByName(ctx context.Context, name string) (*model.Track, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE name = ?`, name)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track by name: %w", err)
	}
	return t, nil
}

// ListTracks returns the whole catalog in global playback order
// (alphabetical by name, id as tie-break).
func (r *mysqlTrackRepository) ListTracks(ctx context.Context) ([]*model.Track, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// UpdateTrack updates mutable track metadata (name, relations, premium flag).
// The storage key is never rewritten.
func (r *mysqlTrackRepository) UpdateTrack(ctx context.Context, track *model.Track) error {
	query := `UPDATE tracks SET name = ?, artist_id = ?, album_id = NULLIF(?, 0), genre_id = NULLIF(?, 0),
	           duration_secs = ?, is_premium = ?, updated_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, track.Name, track.ArtistID, track.AlbumID, track.GenreID,
		track.DurationSecs, track.IsPremium, time.Now(), track.ID)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTrack removes a track from the catalog.
func (r *mysqlTrackRepository) DeleteTrack(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return nil
}

// --- playback.Catalog ---

func toTrackInfo(t *model.Track) *playback.TrackInfo {
	if t == nil {
		return nil
	}
	return &playback.TrackInfo{
		ID:         t.ID,
		Name:       t.Name,
		IsPremium:  t.IsPremium,
		StorageKey: t.StorageKey,
	}
}

// ResolveTrackByName resolves a track name to playback metadata.
func (r *mysqlTrackRepository) ResolveTrackByName(ctx context.Context, name string) (*playback.TrackInfo, error) {
	t, err := r.GetTrackByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return toTrackInfo(t), nil
}

// TrackByID resolves a track id to playback metadata.
func (r *mysqlTrackRepository) TrackByID(ctx context.Context, id int64) (*playback.TrackInfo, error) {
	t, err := r.GetTrackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTrackInfo(t), nil
}

// OrderedContext returns the ordered track ids of a playback context.
// Playlist orderings go through the Redis cache; a miss falls back to the
// database and refills the cache.
func (r *mysqlTrackRepository) OrderedContext(ctx context.Context, pc playback.Context) ([]int64, error) {
	switch pc.Type {
	case playback.ContextSingle:
		return []int64{pc.TrackID}, nil

	case playback.ContextPlaylist:
		if ids, ok := cache.GetPlaylistOrder(ctx, pc.PlaylistID); ok {
			return ids, nil
		}
		ids, err := r.playlistOrder(ctx, pc.PlaylistID)
		if err != nil {
			return nil, err
		}
		if err := cache.SetPlaylistOrder(ctx, pc.PlaylistID, ids); err != nil {
			logger.Warn("failed to cache playlist order",
				logger.Int64("playlistId", pc.PlaylistID),
				logger.ErrorField(err))
		}
		return ids, nil

	case playback.ContextGlobal:
		return r.queryIDs(ctx, `SELECT id FROM tracks ORDER BY name ASC, id ASC`)

	default:
		return nil, fmt.Errorf("unknown context type: %q", pc.Type)
	}
}

func (r *mysqlTrackRepository) playlistOrder(ctx context.Context, playlistID int64) ([]int64, error) {
	return r.queryIDs(ctx,
		`SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position ASC, track_id ASC`,
		playlistID)
}

func (r *mysqlTrackRepository) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ordered context: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NextAfter returns the track strictly after the current one in the
// context's ordering. Playlist order is position ASC, track_id ASC; global
// order is name ASC, id ASC. A single-track context has no successor.
func (r *mysqlTrackRepository) NextAfter(ctx context.Context, pc playback.Context, currentTrackID int64) (int64, bool, error) {
	var row *sql.Row
	switch pc.Type {
	case playback.ContextSingle:
		return 0, false, nil

	case playback.ContextPlaylist:
		row = r.DB.QueryRowContext(ctx, `
			SELECT pt.track_id
			FROM playlist_tracks pt
			JOIN playlist_tracks cur
			  ON cur.playlist_id = pt.playlist_id AND cur.track_id = ?
			WHERE pt.playlist_id = ?
			  AND (pt.position > cur.position
			       OR (pt.position = cur.position AND pt.track_id > cur.track_id))
			ORDER BY pt.position ASC, pt.track_id ASC
			LIMIT 1`,
			currentTrackID, pc.PlaylistID)

	case playback.ContextGlobal:
		row = r.DB.QueryRowContext(ctx, `
			SELECT t.id
			FROM tracks t
			JOIN tracks cur ON cur.id = ?
			WHERE t.name > cur.name OR (t.name = cur.name AND t.id > cur.id)
			ORDER BY t.name ASC, t.id ASC
			LIMIT 1`,
			currentTrackID)

	default:
		return 0, false, fmt.Errorf("unknown context type: %q", pc.Type)
	}

	var nextID int64
	err := row.Scan(&nextID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query next track: %w", err)
	}
	return nextID, true, nil
}
