package store

import (
	"context"

	"openmusic/internal/apperr"
)

// PlaylistOwners looks up playlist ownership. It must fail with a NotFound
// error for unknown playlists.
type PlaylistOwners interface {
	Owner(ctx context.Context, playlistID string) (string, error)
}

// CollaborationGrants reports collaborator grants.
type CollaborationGrants interface {
	Exists(ctx context.Context, playlistID, userID string) (bool, error)
}

// AccessResolver decides whether a user may act on a playlist as its owner
// or as a collaborator.
type AccessResolver struct {
	owners PlaylistOwners
	grants CollaborationGrants
}

// NewAccessResolver builds an AccessResolver.
func NewAccessResolver(owners PlaylistOwners, grants CollaborationGrants) *AccessResolver {
	return &AccessResolver{owners: owners, grants: grants}
}

// VerifyOwner succeeds only for the playlist's owner.
func (a *AccessResolver) VerifyOwner(ctx context.Context, playlistID, userID string) error {
	owner, err := a.owners.Owner(ctx, playlistID)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperr.Authorization("you have no access to this playlist")
	}
	return nil
}

// VerifyAccess succeeds for the owner and for collaborators. A missing
// playlist is reported as NotFound before any permission is considered.
func (a *AccessResolver) VerifyAccess(ctx context.Context, playlistID, userID string) error {
	err := a.VerifyOwner(ctx, playlistID, userID)
	if err == nil {
		return nil
	}

	switch apperr.KindOf(err) {
	case apperr.KindAuthorization:
		granted, gerr := a.grants.Exists(ctx, playlistID, userID)
		if gerr != nil {
			return gerr
		}
		if !granted {
			return err
		}
		return nil
	default:
		return err
	}
}
