// Package httpapi exposes the music catalogue and playlist services over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"openmusic/internal/store"
)

// AlbumService exposes album and album-like workflows.
type AlbumService interface {
	Create(ctx context.Context, in store.AlbumInput) (string, error)
	Get(ctx context.Context, id string) (store.Album, store.Source, error)
	Update(ctx context.Context, id string, in store.AlbumInput) error
	UpdateCover(ctx context.Context, id, coverURL string) error
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, userID, albumID string) error
	Unlike(ctx context.Context, userID, albumID string) error
	Likes(ctx context.Context, albumID string) (int, store.Source, error)
}

// SongService coordinates song catalogue operations.
type SongService interface {
	Create(ctx context.Context, in store.SongInput) (string, error)
	List(ctx context.Context, filter store.SongFilter) ([]store.SongSummary, store.Source, error)
	Get(ctx context.Context, id string) (store.Song, store.Source, error)
	Update(ctx context.Context, id string, in store.SongInput) error
	Delete(ctx context.Context, id string) error
}

// UserService captures account and login workflows.
type UserService interface {
	Signup(ctx context.Context, in store.UserInput) (string, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Get(ctx context.Context, id string) (store.User, store.Source, error)
	Search(ctx context.Context, username string) ([]store.User, error)
}

// PlaylistService coordinates playlists, their songs, activity trail and
// collaborators.
type PlaylistService interface {
	Create(ctx context.Context, userID, name string) (string, error)
	List(ctx context.Context, userID string) ([]store.PlaylistSummary, store.Source, error)
	Delete(ctx context.Context, userID, playlistID string) error
	AddSong(ctx context.Context, userID, playlistID, songID string) error
	Songs(ctx context.Context, userID, playlistID string) (store.PlaylistDetail, store.Source, error)
	RemoveSong(ctx context.Context, userID, playlistID, songID string) error
	Activities(ctx context.Context, userID, playlistID string) ([]store.Activity, store.Source, error)
	AddCollaborator(ctx context.Context, ownerID, playlistID, userID string) (string, error)
	RemoveCollaborator(ctx context.Context, ownerID, playlistID, userID string) error
}

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps lists everything the handlers call into.
type Deps struct {
	Albums    AlbumService
	Songs     SongService
	Users     UserService
	Playlists PlaylistService
	Tokens    TokenVerifier

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// Options tunes the middleware chain.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	albums    AlbumService
	songs     SongService
	users     UserService
	playlists PlaylistService
	tokens    TokenVerifier
	metrics   http.Handler
	checks    map[string]HealthCheck
}

// New constructs a Server.
func New(deps Deps) *Server {
	return &Server{
		albums:    deps.Albums,
		songs:     deps.Songs,
		users:     deps.Users,
		playlists: deps.Playlists,
		tokens:    deps.Tokens,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
	}
}

// Routes returns the bare route table.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	router.HandleFunc("/albums", s.handleCreateAlbum).Methods(http.MethodPost)
	router.HandleFunc("/albums/{id}", s.handleGetAlbum).Methods(http.MethodGet)
	router.HandleFunc("/albums/{id}", s.handleUpdateAlbum).Methods(http.MethodPut)
	router.HandleFunc("/albums/{id}", s.handleDeleteAlbum).Methods(http.MethodDelete)
	router.HandleFunc("/albums/{id}/covers", s.handleUpdateAlbumCover).Methods(http.MethodPut)
	router.HandleFunc("/albums/{id}/likes", s.requireAuth(s.handleLikeAlbum)).Methods(http.MethodPost)
	router.HandleFunc("/albums/{id}/likes", s.requireAuth(s.handleUnlikeAlbum)).Methods(http.MethodDelete)
	router.HandleFunc("/albums/{id}/likes", s.handleAlbumLikes).Methods(http.MethodGet)

	router.HandleFunc("/songs", s.handleCreateSong).Methods(http.MethodPost)
	router.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", s.handleGetSong).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", s.handleUpdateSong).Methods(http.MethodPut)
	router.HandleFunc("/songs/{id}", s.handleDeleteSong).Methods(http.MethodDelete)

	router.HandleFunc("/users", s.handleSignup).Methods(http.MethodPost)
	router.HandleFunc("/users", s.handleSearchUsers).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	router.HandleFunc("/authentications", s.handleLogin).Methods(http.MethodPost)

	router.HandleFunc("/playlists", s.requireAuth(s.handleCreatePlaylist)).Methods(http.MethodPost)
	router.HandleFunc("/playlists", s.requireAuth(s.handleListPlaylists)).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id}", s.requireAuth(s.handleDeletePlaylist)).Methods(http.MethodDelete)
	router.HandleFunc("/playlists/{id}/songs", s.requireAuth(s.handleAddPlaylistSong)).Methods(http.MethodPost)
	router.HandleFunc("/playlists/{id}/songs", s.requireAuth(s.handlePlaylistSongs)).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id}/songs", s.requireAuth(s.handleRemovePlaylistSong)).Methods(http.MethodDelete)
	router.HandleFunc("/playlists/{id}/activities", s.requireAuth(s.handlePlaylistActivities)).Methods(http.MethodGet)

	router.HandleFunc("/collaborations", s.requireAuth(s.handleAddCollaborator)).Methods(http.MethodPost)
	router.HandleFunc("/collaborations", s.requireAuth(s.handleRemoveCollaborator)).Methods(http.MethodDelete)

	return router
}

// Handler returns the route table behind the full middleware chain. CORS wraps
// the router so preflight requests never reach method matching. Recovery sits
// inside logging so a recovered panic is still logged with its status.
func (s *Server) Handler(opts Options) http.Handler {
	var h http.Handler = s.Routes()
	h = Timeout(opts.RequestTimeout)(h)
	h = CORS(opts.AllowedOrigins)(h)
	h = Recovery()(h)
	h = RequestLogging()(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			components[name] = "down"
			continue
		}
		components[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
	})
}
