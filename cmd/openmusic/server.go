package main

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"openmusic/internal/app/albums"
	"openmusic/internal/app/playlists"
	"openmusic/internal/app/songs"
	"openmusic/internal/app/users"
	"openmusic/internal/config"
	"openmusic/internal/httpapi"
	"openmusic/internal/store"
	"openmusic/internal/tokens"
)

func newHTTPHandler(cfg *config.Config, db *sql.DB, dataStore *store.Store, backend cacheBackend, registry *prometheus.Registry) http.Handler {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "openmusic"),
	)

	tokenManager := tokens.NewManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	albumSvc := albums.New(dataStore.Albums, dataStore.Likes)
	songSvc := songs.New(dataStore.Songs)
	userSvc := users.New(dataStore.Users, tokenManager)
	playlistSvc := playlists.New(playlists.Deps{
		Playlists:      dataStore.Playlists,
		Activities:     dataStore.Activities,
		Collaborations: dataStore.Collaborations,
		Access:         dataStore.Access,
		Users:          dataStore.Users,
	})

	server := httpapi.New(httpapi.Deps{
		Albums:    albumSvc,
		Songs:     songSvc,
		Users:     userSvc,
		Playlists: playlistSvc,
		Tokens:    tokenManager,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Checks: map[string]httpapi.HealthCheck{
			"database": db.PingContext,
			"cache":    backend.ping,
		},
	})

	return server.Handler(httpapi.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
}
