package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// Song is the full song payload.
type Song struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Year      int     `json:"year"`
	Performer string  `json:"performer"`
	Genre     string  `json:"genre"`
	Duration  *int    `json:"duration"`
	AlbumID   *string `json:"albumId"`
}

// SongSummary is the song shape embedded in album and playlist payloads and
// returned by song listings.
type SongSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Performer string `json:"performer"`
}

// SongInput carries the writable song fields.
type SongInput struct {
	Title     string  `json:"title"`
	Year      int     `json:"year"`
	Performer string  `json:"performer"`
	Genre     string  `json:"genre"`
	Duration  *int    `json:"duration"`
	AlbumID   *string `json:"albumId"`
}

// SongFilter narrows List by case-insensitive substring. The zero value lists
// every song and is the only cached listing.
type SongFilter struct {
	Title     string
	Performer string
}

func (f SongFilter) empty() bool {
	return strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Performer) == ""
}

// SongRepository persists songs.
type SongRepository struct {
	db    *sql.DB
	cache cache.Client
}

// NewSongRepository builds a SongRepository.
func NewSongRepository(db *sql.DB, c cache.Client) *SongRepository {
	return &SongRepository{db: db, cache: c}
}

// Add inserts a song and returns its id. A dangling album reference fails
// with an invariant error.
func (r *SongRepository) Add(ctx context.Context, in SongInput) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO songs (id, title, year, performer, genre, duration, album_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, newID("song"), in.Title, in.Year, in.Performer, in.Genre, nullableInt(in.Duration), nullableString(in.AlbumID)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.Invariant("failed to add song")
		}
		if isForeignKeyViolation(err) {
			return "", apperr.Wrap(apperr.KindInvariant, "failed to add song. album not found", err)
		}
		return "", fmt.Errorf("insert song: %w", err)
	}

	stale := []string{songsAllKey}
	if in.AlbumID != nil {
		stale = append(stale, albumKey(*in.AlbumID))
	}
	invalidate(ctx, r.cache, stale...)

	return id, nil
}

// List returns song summaries. Only the unfiltered listing goes through the
// cache; filtered listings are always read from the store.
func (r *SongRepository) List(ctx context.Context, filter SongFilter) ([]SongSummary, Source, error) {
	if filter.empty() {
		return readThrough(ctx, r.cache, songsAllKey, func(ctx context.Context) ([]SongSummary, error) {
			return r.search(ctx, SongFilter{})
		})
	}

	songs, err := r.search(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	return songs, SourceServer, nil
}

func (r *SongRepository) search(ctx context.Context, filter SongFilter) ([]SongSummary, error) {
	query := `SELECT id, title, performer FROM songs`

	var (
		clauses []string
		args    []any
	)
	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if performer := strings.TrimSpace(filter.Performer); performer != "" {
		args = append(args, "%"+performer+"%")
		clauses = append(clauses, fmt.Sprintf("performer ILIKE $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	return scanSongSummaries(rows)
}

// Get returns a single song.
func (r *SongRepository) Get(ctx context.Context, id string) (Song, Source, error) {
	return readThrough(ctx, r.cache, songKey(id), func(ctx context.Context) (Song, error) {
		var (
			song     Song
			duration sql.NullInt64
			albumID  sql.NullString
		)
		err := r.db.QueryRowContext(ctx, `
			SELECT id, title, year, performer, genre, duration, album_id
			FROM songs
			WHERE id = $1
		`, id).Scan(&song.ID, &song.Title, &song.Year, &song.Performer, &song.Genre, &duration, &albumID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Song{}, apperr.NotFound("song not found")
			}
			return Song{}, fmt.Errorf("select song: %w", err)
		}
		if duration.Valid {
			d := int(duration.Int64)
			song.Duration = &d
		}
		if albumID.Valid {
			song.AlbumID = &albumID.String
		}
		return song, nil
	})
}

// Edit replaces every writable field of the song.
func (r *SongRepository) Edit(ctx context.Context, id string, in SongInput) error {
	var stale []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		keys, err := songFanout(ctx, tx, id)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE songs
			SET title = $1, year = $2, genre = $3, performer = $4, duration = $5, album_id = $6
			WHERE id = $7
		`, in.Title, in.Year, in.Genre, in.Performer, nullableInt(in.Duration), nullableString(in.AlbumID), id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperr.Wrap(apperr.KindInvariant, "failed to update song. album not found", err)
			}
			return fmt.Errorf("update song: %w", err)
		}
		if _, err := rowsAffected(res); err != nil {
			return err
		}

		stale = keys
		if in.AlbumID != nil {
			stale = append(stale, albumKey(*in.AlbumID))
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("failed to update song. id not found")
		}
		return err
	}

	invalidate(ctx, r.cache, stale...)
	return nil
}

// Delete removes the song and, through the foreign key, its playlist entries.
func (r *SongRepository) Delete(ctx context.Context, id string) error {
	var stale []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		keys, err := songFanout(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete song: %w", err)
		}

		stale = keys
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("failed to delete song. id not found")
		}
		return err
	}

	invalidate(ctx, r.cache, stale...)
	return nil
}

// songFanout collects the cache keys a change to song id makes stale: the
// song itself, the unfiltered listing, its album, every playlist holding it,
// and every playlist whose activity trail names it. It fails with NotFound
// when the song does not exist.
func songFanout(ctx context.Context, q Querier, id string) ([]string, error) {
	var albumID sql.NullString
	err := q.QueryRowContext(ctx, `SELECT album_id FROM songs WHERE id = $1`, id).Scan(&albumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("song not found")
		}
		return nil, fmt.Errorf("select song album: %w", err)
	}

	keys := []string{songKey(id), songsAllKey}
	if albumID.Valid {
		keys = append(keys, albumKey(albumID.String))
	}

	playlistKeys, err := playlistKeysFor(ctx, q, `
		SELECT playlist_id FROM playlistsongs WHERE song_id = $1
		UNION
		SELECT playlist_id FROM playlist_song_activities WHERE song_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return append(keys, playlistKeys...), nil
}

func scanSongSummaries(rows *sql.Rows) ([]SongSummary, error) {
	defer rows.Close()

	songs := []SongSummary{}
	for rows.Next() {
		var s SongSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Performer); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
