package db

import (
	"database/sql"
	"fmt"
	"log"

	"EchoFM/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	statements := []struct {
		name  string
		query string
	}{
		{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		date_of_birth DATE,
		phone VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);`},
		{"genres", `
	CREATE TABLE IF NOT EXISTS genres (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE
	);`},
		{"artists", `
	CREATE TABLE IF NOT EXISTS artists (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		genre_id INT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_artist_genre FOREIGN KEY (genre_id) REFERENCES genres(id)
	);`},
		{"albums", `
	CREATE TABLE IF NOT EXISTS albums (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		artist_id INT NOT NULL,
		release_date DATE,
		cover_art_path VARCHAR(767),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_album_artist FOREIGN KEY (artist_id) REFERENCES artists(id)
	);`},
		{"tracks", `
	CREATE TABLE IF NOT EXISTS tracks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		artist_id INT NOT NULL,
		album_id INT,
		genre_id INT,
		duration_secs INT NOT NULL DEFAULT 0,
		is_premium TINYINT(1) NOT NULL DEFAULT 0,
		storage_key VARCHAR(767) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_track_artist FOREIGN KEY (artist_id) REFERENCES artists(id),
		CONSTRAINT fk_track_album FOREIGN KEY (album_id) REFERENCES albums(id),
		CONSTRAINT fk_track_genre FOREIGN KEY (genre_id) REFERENCES genres(id)
	);`},
		{"playlists", `
	CREATE TABLE IF NOT EXISTS playlists (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		user_id INT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_playlist_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`},
		{"playlist_tracks", `
	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id INT NOT NULL,
		track_id INT NOT NULL,
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (playlist_id, track_id),
		CONSTRAINT fk_pt_playlist FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		CONSTRAINT fk_pt_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);`},
		{"likes", `
	CREATE TABLE IF NOT EXISTS likes (
		user_id INT NOT NULL,
		track_id INT NOT NULL,
		liked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, track_id),
		CONSTRAINT fk_like_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_like_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);`},
		{"follows", `
	CREATE TABLE IF NOT EXISTS follows (
		user_id INT NOT NULL,
		artist_id INT NOT NULL,
		followed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, artist_id),
		CONSTRAINT fk_follow_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_follow_artist FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE
	);`},
		{"play_events", `
	CREATE TABLE IF NOT EXISTS play_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		track_id INT NOT NULL,
		played_at TIMESTAMP(6) NOT NULL,
		INDEX idx_play_events_user (user_id, played_at),
		INDEX idx_play_events_track (track_id),
		CONSTRAINT fk_event_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_event_track FOREIGN KEY (track_id) REFERENCES tracks(id)
	);`},
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	log.Println("Database schema initialized.")
	return nil
}
