package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// PlaylistSummary is one entry of a user's playlist listing.
type PlaylistSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PlaylistDetail is a playlist with its songs.
type PlaylistDetail struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Username string        `json:"username"`
	Songs    []SongSummary `json:"songs"`
}

// PlaylistRepository persists playlists and their songs. Every song mutation
// is recorded in the activity log within the same transaction.
type PlaylistRepository struct {
	db         *sql.DB
	cache      cache.Client
	activities *ActivityLog
}

// NewPlaylistRepository builds a PlaylistRepository.
func NewPlaylistRepository(db *sql.DB, c cache.Client, activities *ActivityLog) *PlaylistRepository {
	return &PlaylistRepository{db: db, cache: c, activities: activities}
}

// Add creates a playlist owned by owner and returns its id.
func (r *PlaylistRepository) Add(ctx context.Context, name, owner string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO playlists (id, name, owner)
		VALUES ($1, $2, $3)
		RETURNING id
	`, newID("playlist"), name, owner).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.Invariant("failed to add playlist")
		}
		if isForeignKeyViolation(err) {
			return "", apperr.Wrap(apperr.KindInvariant, "failed to add playlist. owner not found", err)
		}
		return "", fmt.Errorf("insert playlist: %w", err)
	}

	invalidate(ctx, r.cache, playlistsKey(owner))
	return id, nil
}

// List returns the playlists userID owns or collaborates on.
func (r *PlaylistRepository) List(ctx context.Context, userID string) ([]PlaylistSummary, Source, error) {
	return readThrough(ctx, r.cache, playlistsKey(userID), func(ctx context.Context) ([]PlaylistSummary, error) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT p.id, p.name, u.username
			FROM playlists p
			JOIN users u ON u.id = p.owner
			WHERE p.owner = $1
			   OR EXISTS (
				SELECT 1 FROM collaborations c
				WHERE c.playlist_id = p.id AND c.user_id = $1
			   )
		`, userID)
		if err != nil {
			return nil, fmt.Errorf("select playlists: %w", err)
		}
		defer rows.Close()

		playlists := []PlaylistSummary{}
		for rows.Next() {
			var p PlaylistSummary
			if err := rows.Scan(&p.ID, &p.Name, &p.Username); err != nil {
				return nil, fmt.Errorf("scan playlist: %w", err)
			}
			playlists = append(playlists, p)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate playlists: %w", err)
		}
		return playlists, nil
	})
}

// Owner returns the owner id of a playlist.
func (r *PlaylistRepository) Owner(ctx context.Context, playlistID string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT owner FROM playlists WHERE id = $1`, playlistID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("playlist not found")
		}
		return "", fmt.Errorf("select playlist owner: %w", err)
	}
	return owner, nil
}

func playlistExists(ctx context.Context, q Querier, id string) (bool, error) {
	found, err := exists(ctx, q, `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check playlist: %w", err)
	}
	return found, nil
}

// Songs returns the playlist with its songs.
func (r *PlaylistRepository) Songs(ctx context.Context, playlistID string) (PlaylistDetail, Source, error) {
	return readThrough(ctx, r.cache, playlistKey(playlistID), func(ctx context.Context) (PlaylistDetail, error) {
		var p PlaylistDetail
		err := r.db.QueryRowContext(ctx, `
			SELECT p.id, p.name, u.username
			FROM playlists p
			JOIN users u ON u.id = p.owner
			WHERE p.id = $1
		`, playlistID).Scan(&p.ID, &p.Name, &p.Username)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return PlaylistDetail{}, apperr.NotFound("playlist not found")
			}
			return PlaylistDetail{}, fmt.Errorf("select playlist: %w", err)
		}

		rows, err := r.db.QueryContext(ctx, `
			SELECT s.id, s.title, s.performer
			FROM playlistsongs ps
			JOIN songs s ON s.id = ps.song_id
			WHERE ps.playlist_id = $1
		`, playlistID)
		if err != nil {
			return PlaylistDetail{}, fmt.Errorf("select playlist songs: %w", err)
		}
		p.Songs, err = scanSongSummaries(rows)
		if err != nil {
			return PlaylistDetail{}, err
		}
		return p, nil
	})
}

// Delete removes a playlist together with its songs, grants and activity.
func (r *PlaylistRepository) Delete(ctx context.Context, playlistID string) error {
	var stale []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT user_id FROM collaborations WHERE playlist_id = $1`, playlistID)
		if err != nil {
			return fmt.Errorf("select collaborators: %w", err)
		}
		collaborators, err := collectStrings(rows)
		if err != nil {
			return fmt.Errorf("scan collaborators: %w", err)
		}

		var owner string
		err = tx.QueryRowContext(ctx, `
			DELETE FROM playlists
			WHERE id = $1
			RETURNING owner
		`, playlistID).Scan(&owner)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("failed to delete playlist. id not found")
			}
			return fmt.Errorf("delete playlist: %w", err)
		}

		stale = append(stale, playlistKey(playlistID), activitiesKey(playlistID), playlistsKey(owner))
		for _, userID := range collaborators {
			stale = append(stale, playlistsKey(userID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidate(ctx, r.cache, stale...)
	return nil
}

// AddSong puts songID on the playlist and records the addition as userID's
// activity. It returns the id of the playlist entry.
func (r *PlaylistRepository) AddSong(ctx context.Context, playlistID, songID, userID string) (string, error) {
	var entryID string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO playlistsongs (id, playlist_id, song_id)
			SELECT $1, $2, id
			FROM songs
			WHERE id = $3
			RETURNING id
		`, newID("playlistsongs"), playlistID, songID).Scan(&entryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("failed to add song to playlist. song not found")
			}
			if isForeignKeyViolation(err) {
				return apperr.Wrap(apperr.KindNotFound, "playlist not found", err)
			}
			return fmt.Errorf("insert playlist song: %w", err)
		}

		return r.activities.record(ctx, tx, playlistID, songID, userID, ActionAdd)
	})
	if err != nil {
		return "", err
	}

	invalidate(ctx, r.cache, playlistKey(playlistID), activitiesKey(playlistID))
	return entryID, nil
}

// DeleteSong takes songID off the playlist and records the removal as
// userID's activity.
func (r *PlaylistRepository) DeleteSong(ctx context.Context, playlistID, songID, userID string) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM playlistsongs
			WHERE playlist_id = $1 AND song_id = $2
		`, playlistID, songID)
		if err != nil {
			return fmt.Errorf("delete playlist song: %w", err)
		}
		affected, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound("failed to delete song from playlist. song not found")
		}

		return r.activities.record(ctx, tx, playlistID, songID, userID, ActionDelete)
	})
	if err != nil {
		return err
	}

	invalidate(ctx, r.cache, playlistKey(playlistID), activitiesKey(playlistID))
	return nil
}

// playlistKeysFor runs query, which must select playlist ids, and returns the
// playlist and activity keys of every row.
func playlistKeysFor(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select affected playlists: %w", err)
	}
	ids, err := collectStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan affected playlists: %w", err)
	}

	keys := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		keys = append(keys, playlistKey(id), activitiesKey(id))
	}
	return keys, nil
}
