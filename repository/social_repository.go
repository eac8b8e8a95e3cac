package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// SocialRepository manages track likes and artist follows.
type SocialRepository interface {
	LikeTrack(ctx context.Context, userID, trackID int64) error
	UnlikeTrack(ctx context.Context, userID, trackID int64) error
	IsLiked(ctx context.Context, userID, trackID int64) (bool, error)
	LikedTrackIDs(ctx context.Context, userID int64) ([]int64, error)

	FollowArtist(ctx context.Context, userID, artistID int64) error
	UnfollowArtist(ctx context.Context, userID, artistID int64) error
	IsFollowing(ctx context.Context, userID, artistID int64) (bool, error)
}

// mysqlSocialRepository implements SocialRepository for MySQL.
type mysqlSocialRepository struct {
	DB *sql.DB
}

// NewMySQLSocialRepository creates a new instance of mysqlSocialRepository.
func NewMySQLSocialRepository(db *sql.DB) SocialRepository {
	return &mysqlSocialRepository{DB: db}
}

// LikeTrack records a like. Liking twice is a no-op.
func (r *mysqlSocialRepository) LikeTrack(ctx context.Context, userID, trackID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT IGNORE INTO likes (user_id, track_id) VALUES (?, ?)`, userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to like track: %w", err)
	}
	return nil
}

// UnlikeTrack removes a like.
func (r *mysqlSocialRepository) UnlikeTrack(ctx context.Context, userID, trackID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND track_id = ?`, userID, trackID)
	if err != nil {
		return fmt.Errorf("failed to unlike track: %w", err)
	}
	return nil
}

// IsLiked reports whether the user has liked the track.
func (r *mysqlSocialRepository) IsLiked(ctx context.Context, userID, trackID int64) (bool, error) {
	var liked bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = ? AND track_id = ?)`,
		userID, trackID).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("failed to query like: %w", err)
	}
	return liked, nil
}

// LikedTrackIDs returns the user's liked tracks, most recent first.
func (r *mysqlSocialRepository) LikedTrackIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT track_id FROM likes WHERE user_id = ? ORDER BY liked_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FollowArtist records a follow. Following twice is a no-op.
func (r *mysqlSocialRepository) FollowArtist(ctx context.Context, userID, artistID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT IGNORE INTO follows (user_id, artist_id) VALUES (?, ?)`, userID, artistID)
	if err != nil {
		return fmt.Errorf("failed to follow artist: %w", err)
	}
	return nil
}

// UnfollowArtist removes a follow.
func (r *mysqlSocialRepository) UnfollowArtist(ctx context.Context, userID, artistID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = ? AND artist_id = ?`, userID, artistID)
	if err != nil {
		return fmt.Errorf("failed to unfollow artist: %w", err)
	}
	return nil
}

// IsFollowing reports whether the user follows the artist.
func (r *mysqlSocialRepository) IsFollowing(ctx context.Context, userID, artistID int64) (bool, error) {
	var following bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = ? AND artist_id = ?)`,
		userID, artistID).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("failed to query follow: %w", err)
	}
	return following, nil
}
