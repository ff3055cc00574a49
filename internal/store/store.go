// Package store is the data-access layer: repositories that read through the
// cache to Postgres and invalidate cache keys after every committed write.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"openmusic/internal/cache"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles every repository over one database handle and one cache.
type Store struct {
	Albums         *AlbumRepository
	Songs          *SongRepository
	Users          *UserRepository
	Playlists      *PlaylistRepository
	Activities     *ActivityLog
	Collaborations *CollaborationRepository
	Likes          *LikeLedger
	Access         *AccessResolver
}

// New wires the repositories. db and c are shared, both are safe for
// concurrent use.
func New(db *sql.DB, c cache.Client) *Store {
	activities := NewActivityLog(db, c)
	playlists := NewPlaylistRepository(db, c, activities)
	collaborations := NewCollaborationRepository(db, c)

	return &Store{
		Albums:         NewAlbumRepository(db, c),
		Songs:          NewSongRepository(db, c),
		Users:          NewUserRepository(db, c),
		Playlists:      playlists,
		Activities:     activities,
		Collaborations: collaborations,
		Likes:          NewLikeLedger(db, c),
		Access:         NewAccessResolver(playlists, collaborations),
	}
}

// newID returns a prefixed random identifier such as "album-<uuid>".
var newID = func(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return nil
}

func rowsAffected(res sql.Result) (int64, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func exists(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == "23503"
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
