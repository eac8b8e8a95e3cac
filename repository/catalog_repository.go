package repository

import (
	"context"
	"database/sql"
	"fmt"

	"EchoFM/model"
)

// CatalogRepository manages artists, albums and genres.
type CatalogRepository interface {
	CreateArtist(ctx context.Context, artist *model.Artist) (int64, error)
	GetArtist(ctx context.Context, id int64) (*model.Artist, error)
	ListArtists(ctx context.Context) ([]*model.Artist, error)
	DeleteArtist(ctx context.Context, id int64) error

	CreateAlbum(ctx context.Context, album *model.Album) (int64, error)
	ListAlbums(ctx context.Context) ([]*model.Album, error)
	UpdateAlbumCover(ctx context.Context, albumID int64, coverPath string) error
	DeleteAlbum(ctx context.Context, id int64) error

	CreateGenre(ctx context.Context, name string) (int64, error)
	ListGenres(ctx context.Context) ([]*model.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error
}

// mysqlCatalogRepository implements CatalogRepository for MySQL.
type mysqlCatalogRepository struct {
	DB *sql.DB
}

// NewMySQLCatalogRepository creates a new instance of mysqlCatalogRepository.
func NewMySQLCatalogRepository(db *sql.DB) CatalogRepository {
	return &mysqlCatalogRepository{DB: db}
}

func (r *mysqlCatalogRepository) CreateArtist(ctx context.Context, artist *model.Artist) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO artists (name, genre_id) VALUES (?, NULLIF(?, 0))`,
		artist.Name, artist.GenreID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artist: %w", err)
	}
	return res.LastInsertId()
}

func (r *mysqlCatalogRepository) GetArtist(ctx context.Context, id int64) (*model.Artist, error) {
	a := &model.Artist{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(genre_id, 0), created_at FROM artists WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.GenreID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	return a, nil
}

func (r *mysqlCatalogRepository) ListArtists(ctx context.Context) ([]*model.Artist, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, COALESCE(genre_id, 0), created_at FROM artists ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*model.Artist
	for rows.Next() {
		a := &model.Artist{}
		if err := rows.Scan(&a.ID, &a.Name, &a.GenreID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (r *mysqlCatalogRepository) DeleteArtist(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}
	return nil
}

func (r *mysqlCatalogRepository) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO albums (name, artist_id, release_date, cover_art_path) VALUES (?, ?, ?, ?)`,
		album.Name, album.ArtistID, album.ReleaseDate, album.CoverArtPath)
	if err != nil {
		return 0, fmt.Errorf("failed to insert album: %w", err)
	}
	return res.LastInsertId()
}

func (r *mysqlCatalogRepository) ListAlbums(ctx context.Context) ([]*model.Album, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, artist_id, release_date, COALESCE(cover_art_path, ''), created_at FROM albums ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*model.Album
	for rows.Next() {
		a := &model.Album{}
		if err := rows.Scan(&a.ID, &a.Name, &a.ArtistID, &a.ReleaseDate, &a.CoverArtPath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (r *mysqlCatalogRepository) UpdateAlbumCover(ctx context.Context, albumID int64, coverPath string) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE albums SET cover_art_path = ? WHERE id = ?`, coverPath, albumID); err != nil {
		return fmt.Errorf("failed to update album cover: %w", err)
	}
	return nil
}

func (r *mysqlCatalogRepository) DeleteAlbum(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	return nil
}

func (r *mysqlCatalogRepository) CreateGenre(ctx context.Context, name string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert genre: %w", err)
	}
	return res.LastInsertId()
}

func (r *mysqlCatalogRepository) ListGenres(ctx context.Context) ([]*model.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	var genres []*model.Genre
	for rows.Next() {
		g := &model.Genre{}
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (r *mysqlCatalogRepository) DeleteGenre(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM genres WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}
	return nil
}
