package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// Album is the album payload. CoverURL is null until a cover is uploaded and
// Songs is never null.
type Album struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Year     int           `json:"year"`
	CoverURL *string       `json:"coverUrl"`
	Songs    []SongSummary `json:"songs"`
}

// AlbumInput carries the writable album fields.
type AlbumInput struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

// AlbumRepository persists albums.
type AlbumRepository struct {
	db    *sql.DB
	cache cache.Client
}

// NewAlbumRepository builds an AlbumRepository.
func NewAlbumRepository(db *sql.DB, c cache.Client) *AlbumRepository {
	return &AlbumRepository{db: db, cache: c}
}

// Add inserts an album and returns its id.
func (r *AlbumRepository) Add(ctx context.Context, in AlbumInput) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO albums (id, name, year)
		VALUES ($1, $2, $3)
		RETURNING id
	`, newID("album"), in.Name, in.Year).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.Invariant("failed to add album")
		}
		return "", fmt.Errorf("insert album: %w", err)
	}
	return id, nil
}

// Get returns the album with the summaries of its songs.
func (r *AlbumRepository) Get(ctx context.Context, id string) (Album, Source, error) {
	return readThrough(ctx, r.cache, albumKey(id), func(ctx context.Context) (Album, error) {
		return r.fetch(ctx, id)
	})
}

func (r *AlbumRepository) fetch(ctx context.Context, id string) (Album, error) {
	var (
		album Album
		cover sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, year, cover_url
		FROM albums
		WHERE id = $1
	`, id).Scan(&album.ID, &album.Name, &album.Year, &cover)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, apperr.NotFound("album not found")
		}
		return Album{}, fmt.Errorf("select album: %w", err)
	}
	if cover.Valid {
		album.CoverURL = &cover.String
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, performer
		FROM songs
		WHERE album_id = $1
	`, id)
	if err != nil {
		return Album{}, fmt.Errorf("select album songs: %w", err)
	}
	album.Songs, err = scanSongSummaries(rows)
	if err != nil {
		return Album{}, err
	}

	return album, nil
}

func albumExists(ctx context.Context, q Querier, id string) (bool, error) {
	found, err := exists(ctx, q, `SELECT EXISTS (SELECT 1 FROM albums WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check album: %w", err)
	}
	return found, nil
}

// Edit replaces name and year.
func (r *AlbumRepository) Edit(ctx context.Context, id string, in AlbumInput) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE albums
		SET name = $1, year = $2
		WHERE id = $3
	`, in.Name, in.Year, id)
	if err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	affected, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("failed to update album. id not found")
	}

	invalidate(ctx, r.cache, albumKey(id), likesKey(id))
	return nil
}

// EditCover sets the cover URL of an existing album.
func (r *AlbumRepository) EditCover(ctx context.Context, id, coverURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE albums
		SET cover_url = $1
		WHERE id = $2
	`, coverURL, id)
	if err != nil {
		return fmt.Errorf("update album cover: %w", err)
	}
	affected, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("failed to update album cover. id not found")
	}

	invalidate(ctx, r.cache, albumKey(id), likesKey(id))
	return nil
}

// Delete removes the album. Its songs go with it through the foreign key, so
// their cached payloads, the playlists holding them and the activity trails
// naming them are invalidated too.
func (r *AlbumRepository) Delete(ctx context.Context, id string) error {
	var stale []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM songs WHERE album_id = $1`, id)
		if err != nil {
			return fmt.Errorf("select album songs: %w", err)
		}
		songIDs, err := collectStrings(rows)
		if err != nil {
			return fmt.Errorf("scan album songs: %w", err)
		}

		playlistKeys, err := playlistKeysFor(ctx, tx, `
			SELECT ps.playlist_id
			FROM playlistsongs ps
			JOIN songs s ON s.id = ps.song_id
			WHERE s.album_id = $1
			UNION
			SELECT a.playlist_id
			FROM playlist_song_activities a
			JOIN songs s ON s.id = a.song_id
			WHERE s.album_id = $1
		`, id)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete album: %w", err)
		}
		affected, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound("failed to delete album. id not found")
		}

		stale = append(stale, albumKey(id), likesKey(id))
		if len(songIDs) > 0 {
			stale = append(stale, songsAllKey)
			for _, songID := range songIDs {
				stale = append(stale, songKey(songID))
			}
		}
		stale = append(stale, playlistKeys...)
		return nil
	})
	if err != nil {
		return err
	}

	invalidate(ctx, r.cache, stale...)
	return nil
}
