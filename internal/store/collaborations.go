package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// CollaborationRepository persists collaborator grants on playlists.
type CollaborationRepository struct {
	db    *sql.DB
	cache cache.Client
}

// NewCollaborationRepository builds a CollaborationRepository.
func NewCollaborationRepository(db *sql.DB, c cache.Client) *CollaborationRepository {
	return &CollaborationRepository{db: db, cache: c}
}

// Add grants userID access to playlistID and returns the grant id.
func (r *CollaborationRepository) Add(ctx context.Context, playlistID, userID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO collaborations (id, playlist_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, newID("collab"), playlistID, userID).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", apperr.Invariant("failed to add collaboration")
		case isUniqueViolation(err):
			return "", apperr.Wrap(apperr.KindInvariant, "collaboration already exists", err)
		case isForeignKeyViolation(err):
			return "", apperr.Wrap(apperr.KindNotFound, "user or playlist not found", err)
		}
		return "", fmt.Errorf("insert collaboration: %w", err)
	}

	invalidate(ctx, r.cache, playlistsKey(userID))
	return id, nil
}

// Delete revokes userID's grant on playlistID.
func (r *CollaborationRepository) Delete(ctx context.Context, playlistID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM collaborations
		WHERE playlist_id = $1 AND user_id = $2
	`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("delete collaboration: %w", err)
	}
	affected, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound("collaboration not found")
	}

	invalidate(ctx, r.cache, playlistsKey(userID))
	return nil
}

// Exists reports whether userID holds a grant on playlistID.
func (r *CollaborationRepository) Exists(ctx context.Context, playlistID, userID string) (bool, error) {
	found, err := exists(ctx, r.db, `
		SELECT EXISTS (
			SELECT 1 FROM collaborations
			WHERE playlist_id = $1 AND user_id = $2
		)
	`, playlistID, userID)
	if err != nil {
		return false, fmt.Errorf("check collaboration: %w", err)
	}
	return found, nil
}
