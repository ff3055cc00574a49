package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"openmusic/internal/apperr"
	"openmusic/internal/store"
)

type seedAlbum struct {
	Name      string
	Year      int
	Performer string
	Genre     string
	Tracks    []seedTrack
}

type seedTrack struct {
	Title    string
	Duration int
}

var demoAlbums = []seedAlbum{
	{
		Name:      "Music Has the Right to Children",
		Year:      1998,
		Performer: "Boards of Canada",
		Genre:     "Electronic",
		Tracks:    []seedTrack{{"Turquoise Hexagon Sun", 307}, {"Roygbiv", 151}, {"Aquarius", 353}},
	},
	{
		Name:      "Mezzanine",
		Year:      1998,
		Performer: "Massive Attack",
		Genre:     "Trip Hop",
		Tracks:    []seedTrack{{"Angel", 379}, {"Teardrop", 330}, {"Inertia Creeps", 356}},
	},
	{
		Name:      "OK Computer",
		Year:      1997,
		Performer: "Radiohead",
		Genre:     "Alternative Rock",
		Tracks:    []seedTrack{{"Airbag", 284}, {"Paranoid Android", 383}, {"No Surprises", 229}},
	},
}

// bootstrapDemoData creates a demo account and a small catalogue with one
// playlist. It is a no-op once any album exists.
func bootstrapDemoData(ctx context.Context, db *sql.DB, dataStore *store.Store) error {
	userID, err := ensureDemoUser(ctx, dataStore)
	if err != nil {
		return err
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums`).Scan(&count); err != nil {
		return fmt.Errorf("count albums: %w", err)
	}
	if count > 0 {
		return nil
	}

	var songIDs []string
	for _, album := range demoAlbums {
		albumID, err := dataStore.Albums.Add(ctx, store.AlbumInput{Name: album.Name, Year: album.Year})
		if err != nil {
			return fmt.Errorf("seed album %q: %w", album.Name, err)
		}
		for _, track := range album.Tracks {
			duration := track.Duration
			songID, err := dataStore.Songs.Add(ctx, store.SongInput{
				Title:     track.Title,
				Year:      album.Year,
				Performer: album.Performer,
				Genre:     album.Genre,
				Duration:  &duration,
				AlbumID:   &albumID,
			})
			if err != nil {
				return fmt.Errorf("seed song %q: %w", track.Title, err)
			}
			songIDs = append(songIDs, songID)
		}
	}

	if userID == "" {
		return nil
	}
	playlistID, err := dataStore.Playlists.Add(ctx, "Late night", userID)
	if err != nil {
		return fmt.Errorf("seed playlist: %w", err)
	}
	for _, songID := range songIDs[:3] {
		if _, err := dataStore.Playlists.AddSong(ctx, playlistID, songID, userID); err != nil {
			return fmt.Errorf("seed playlist song: %w", err)
		}
	}

	zerolog.Ctx(ctx).Info().
		Int("albums", len(demoAlbums)).
		Int("songs", len(songIDs)).
		Msg("seeded demo catalogue")
	return nil
}

// ensureDemoUser returns the new demo user's id, or "" when it already exists.
func ensureDemoUser(ctx context.Context, dataStore *store.Store) (string, error) {
	id, err := dataStore.Users.Add(ctx, store.UserInput{
		Username: "demo",
		Password: "demo123",
		Fullname: "Demo Listener",
	})
	if errors.Is(err, apperr.ErrInvariant) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("bootstrap demo user: %w", err)
	}
	return id, nil
}
