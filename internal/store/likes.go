package store

import (
	"context"
	"database/sql"
	"fmt"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// LikeLedger records which users like which albums. A user likes an album at
// most once.
type LikeLedger struct {
	db    *sql.DB
	cache cache.Client
}

// NewLikeLedger builds a LikeLedger.
func NewLikeLedger(db *sql.DB, c cache.Client) *LikeLedger {
	return &LikeLedger{db: db, cache: c}
}

// HasLiked reports whether userID already likes albumID.
func (l *LikeLedger) HasLiked(ctx context.Context, userID, albumID string) (bool, error) {
	found, err := exists(ctx, l.db, `
		SELECT EXISTS (
			SELECT 1 FROM user_album_likes
			WHERE user_id = $1 AND album_id = $2
		)
	`, userID, albumID)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return found, nil
}

// Add records userID's like of albumID. Liking an unknown album fails with
// NotFound; liking twice fails with an invariant error.
func (l *LikeLedger) Add(ctx context.Context, userID, albumID string) error {
	found, err := albumExists(ctx, l.db, albumID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("album not found")
	}

	liked, err := l.HasLiked(ctx, userID, albumID)
	if err != nil {
		return err
	}
	if liked {
		return apperr.Invariant("you can only like the album once")
	}

	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO user_album_likes (id, user_id, album_id)
		VALUES ($1, $2, $3)
	`, newID("like"), userID, albumID); err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindInvariant, "you can only like the album once", err)
		}
		if isForeignKeyViolation(err) {
			return apperr.Wrap(apperr.KindInvariant, "failed to like album", err)
		}
		return fmt.Errorf("insert like: %w", err)
	}

	invalidate(ctx, l.cache, likesKey(albumID))
	return nil
}

// Remove withdraws userID's like of albumID.
func (l *LikeLedger) Remove(ctx context.Context, userID, albumID string) error {
	res, err := l.db.ExecContext(ctx, `
		DELETE FROM user_album_likes
		WHERE user_id = $1 AND album_id = $2
	`, userID, albumID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	affected, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("like not found")
	}

	invalidate(ctx, l.cache, likesKey(albumID))
	return nil
}

// Count returns how many users like albumID. An unknown album fails with
// NotFound and is never cached.
func (l *LikeLedger) Count(ctx context.Context, albumID string) (int, Source, error) {
	return readThrough(ctx, l.cache, likesKey(albumID), func(ctx context.Context) (int, error) {
		found, err := albumExists(ctx, l.db, albumID)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, apperr.NotFound("album not found")
		}

		var count int
		if err := l.db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM user_album_likes
			WHERE album_id = $1
		`, albumID).Scan(&count); err != nil {
			return 0, fmt.Errorf("count likes: %w", err)
		}
		return count, nil
	})
}
