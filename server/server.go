package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"EchoFM/cache"
	"EchoFM/config"
	"EchoFM/core/auth"
	"EchoFM/core/playback"
	"EchoFM/db"
	"EchoFM/logger"
	"EchoFM/repository"
	"EchoFM/storage"
)

// Start initializes dependencies and runs the HTTP server until SIGINT or
// SIGTERM, then shuts down gracefully.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect gorm handle", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	// Redis and MinIO are soft dependencies. Without Redis the playlist order
	// cache is skipped; without MinIO cover art endpoints return errors.
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, playlist order cache disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		cache.Init(db.RedisClient)
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("minio unavailable, cover art disabled", logger.ErrorField(err))
	}

	store, err := storage.NewLocalStore(cfg.SongsDir)
	if err != nil {
		logger.Fatal("failed to open songs directory", logger.ErrorField(err))
	}
	defer store.Close()
	if err := store.Watch(); err != nil {
		logger.Warn("songs directory watcher unavailable", logger.ErrorField(err))
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)
	catalogRepo := repository.NewMySQLCatalogRepository(db.DB)
	socialRepo := repository.NewMySQLSocialRepository(db.DB)
	historyRepo := repository.NewMySQLHistoryRepository(db.DB)
	subsRepo := repository.NewGormSubscriptionRepository(db.GormDB)

	sessions := playback.NewManager(playback.DefaultSessionTTL)
	sessions.StartSweeper(rootCtx, time.Hour)
	engine := playback.NewEngine(trackRepo, userRepo, historyRepo, sessions)

	apiHandler := NewAPIHandler(cfg, trackRepo, userRepo, playlistRepo,
		catalogRepo, socialRepo, historyRepo, subsRepo, engine, store)
	streamHandler := NewStreamHandler(trackRepo, userRepo, store)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Audio delivery
	router.HandleFunc("/songs/{name}", apiHandler.AuthMiddleware(streamHandler.ServeTrack)).Methods(http.MethodGet, http.MethodHead)

	// Playback control
	router.HandleFunc("/api/player", apiHandler.AuthMiddleware(apiHandler.PlayerActionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player", apiHandler.AuthMiddleware(apiHandler.PlayerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/ws/player", apiHandler.PlayerWSHandler).Methods(http.MethodGet)

	// Authentication
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", apiHandler.AuthMiddleware(apiHandler.LogoutHandler)).Methods(http.MethodPost)

	// Profile and stats
	router.HandleFunc("/api/me", apiHandler.AuthMiddleware(apiHandler.ProfileHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/me/likes", apiHandler.AuthMiddleware(apiHandler.LikedTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/top-tracks", apiHandler.AuthMiddleware(apiHandler.TopTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/global-top", apiHandler.GlobalTopTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/favorite-artist", apiHandler.AuthMiddleware(apiHandler.FavoriteArtistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/recent", apiHandler.AuthMiddleware(apiHandler.RecentPlaysHandler)).Methods(http.MethodGet)

	// Catalog
	router.HandleFunc("/api/tracks", apiHandler.ListTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AdminMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AdminMiddleware(apiHandler.UpdateTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/artists", apiHandler.ListArtistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists", apiHandler.AdminMiddleware(apiHandler.CreateArtistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{id}", apiHandler.GetArtistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteArtistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/albums", apiHandler.ListAlbumsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/albums", apiHandler.AdminMiddleware(apiHandler.CreateAlbumHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/albums/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteAlbumHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/albums/{id}/cover", apiHandler.AdminMiddleware(apiHandler.UploadAlbumCoverHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/genres", apiHandler.ListGenresHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/genres", apiHandler.AdminMiddleware(apiHandler.CreateGenreHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/genres/{id}", apiHandler.AdminMiddleware(apiHandler.DeleteGenreHandler)).Methods(http.MethodDelete)

	// Playlists
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks", apiHandler.AuthMiddleware(apiHandler.AddPlaylistTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", apiHandler.AuthMiddleware(apiHandler.RemovePlaylistTrackHandler)).Methods(http.MethodDelete)

	// Social
	router.HandleFunc("/api/tracks/{id}/like", apiHandler.AuthMiddleware(apiHandler.LikeTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/like", apiHandler.AuthMiddleware(apiHandler.UnlikeTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/artists/{id}/follow", apiHandler.AuthMiddleware(apiHandler.FollowArtistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{id}/follow", apiHandler.AuthMiddleware(apiHandler.UnfollowArtistHandler)).Methods(http.MethodDelete)

	// Subscription
	router.HandleFunc("/api/subscription/plans", apiHandler.ListPlansHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/subscription", apiHandler.AuthMiddleware(apiHandler.SubscribeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/subscription", apiHandler.AuthMiddleware(apiHandler.CancelSubscriptionHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/subscription/history", apiHandler.AuthMiddleware(apiHandler.SubscriptionHistoryHandler)).Methods(http.MethodGet)

	// Cover art and other static objects are proxied from MinIO.
	router.PathPrefix("/static/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/static/")

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		object, err := storage.GetObject(ctx, objectPath)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		var contentType string
		if strings.HasPrefix(objectPath, "covers/") {
			contentType = "image/jpeg"
		} else {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000")

		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("failed to serve static object",
				logger.String("path", objectPath), logger.ErrorField(err))
		}
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
