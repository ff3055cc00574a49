package playlists

import (
	"context"

	"openmusic/internal/store"
)

// Store captures the persistence needs for playlist workflows.
type Store interface {
	Add(ctx context.Context, name, owner string) (string, error)
	List(ctx context.Context, userID string) ([]store.PlaylistSummary, store.Source, error)
	Songs(ctx context.Context, playlistID string) (store.PlaylistDetail, store.Source, error)
	Delete(ctx context.Context, playlistID string) error
	AddSong(ctx context.Context, playlistID, songID, userID string) (string, error)
	DeleteSong(ctx context.Context, playlistID, songID, userID string) error
}

// ActivityStore reads the playlist audit trail.
type ActivityStore interface {
	Activities(ctx context.Context, playlistID string) ([]store.Activity, store.Source, error)
}

// CollaborationStore manages collaborator grants.
type CollaborationStore interface {
	Add(ctx context.Context, playlistID, userID string) (string, error)
	Delete(ctx context.Context, playlistID, userID string) error
}

// Access decides who may act on a playlist.
type Access interface {
	VerifyOwner(ctx context.Context, playlistID, userID string) error
	VerifyAccess(ctx context.Context, playlistID, userID string) error
}

// UserLookup resolves users named as collaborators.
type UserLookup interface {
	Get(ctx context.Context, id string) (store.User, store.Source, error)
}

// Service coordinates playlist-related operations. Every operation on an
// existing playlist checks the caller's permission before touching it.
type Service interface {
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

// Deps groups the collaborators of the playlist service.
type Deps struct {
	Playlists      Store
	Activities     ActivityStore
	Collaborations CollaborationStore
	Access         Access
	Users          UserLookup
}

type service struct {
	deps Deps
}

// New constructs a Service from deps.
func New(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) Create(ctx context.Context, userID, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.deps.Playlists.Add(ctx, name, userID)
}

func (s *service) List(ctx context.Context, userID string) ([]store.PlaylistSummary, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return s.deps.Playlists.List(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID, playlistID string) error {
	if err := s.deps.Access.VerifyOwner(ctx, playlistID, userID); err != nil {
		return err
	}
	return s.deps.Playlists.Delete(ctx, playlistID)
}

func (s *service) AddSong(ctx context.Context, userID, playlistID, songID string) error {
	if err := s.deps.Access.VerifyAccess(ctx, playlistID, userID); err != nil {
		return err
	}
	_, err := s.deps.Playlists.AddSong(ctx, playlistID, songID, userID)
	return err
}

func (s *service) Songs(ctx context.Context, userID, playlistID string) (store.PlaylistDetail, store.Source, error) {
	if err := s.deps.Access.VerifyAccess(ctx, playlistID, userID); err != nil {
		return store.PlaylistDetail{}, "", err
	}
	return s.deps.Playlists.Songs(ctx, playlistID)
}

func (s *service) RemoveSong(ctx context.Context, userID, playlistID, songID string) error {
	if err := s.deps.Access.VerifyAccess(ctx, playlistID, userID); err != nil {
		return err
	}
	return s.deps.Playlists.DeleteSong(ctx, playlistID, songID, userID)
}

func (s *service) Activities(ctx context.Context, userID, playlistID string) ([]store.Activity, store.Source, error) {
	if err := s.deps.Access.VerifyAccess(ctx, playlistID, userID); err != nil {
		return nil, "", err
	}
	return s.deps.Activities.Activities(ctx, playlistID)
}

// AddCollaborator lets the owner grant userID access. The collaborator must
// be a registered user.
func (s *service) AddCollaborator(ctx context.Context, ownerID, playlistID, userID string) (string, error) {
	if err := s.deps.Access.VerifyOwner(ctx, playlistID, ownerID); err != nil {
		return "", err
	}
	if _, _, err := s.deps.Users.Get(ctx, userID); err != nil {
		return "", err
	}
	return s.deps.Collaborations.Add(ctx, playlistID, userID)
}

func (s *service) RemoveCollaborator(ctx context.Context, ownerID, playlistID, userID string) error {
	if err := s.deps.Access.VerifyOwner(ctx, playlistID, ownerID); err != nil {
		return err
	}
	return s.deps.Collaborations.Delete(ctx, playlistID, userID)
}
