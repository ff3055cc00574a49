package albums

import (
	"context"

	"openmusic/internal/store"
)

// AlbumStore captures the persistence needs for album workflows.
type AlbumStore interface {
	Add(ctx context.Context, in store.AlbumInput) (string, error)
	Get(ctx context.Context, id string) (store.Album, store.Source, error)
	Edit(ctx context.Context, id string, in store.AlbumInput) error
	EditCover(ctx context.Context, id, coverURL string) error
	Delete(ctx context.Context, id string) error
}

// LikeStore captures the persistence needs for album likes.
type LikeStore interface {
	Add(ctx context.Context, userID, albumID string) error
	Remove(ctx context.Context, userID, albumID string) error
	Count(ctx context.Context, albumID string) (int, store.Source, error)
}

// Service coordinates album-related operations.
type Service interface {
	Create(ctx context.Context, in store.AlbumInput) (string, error)
	Get(ctx context.Context, id string) (store.Album, store.Source, error)
	Update(ctx context.Context, id string, in store.AlbumInput) error
	UpdateCover(ctx context.Context, id, coverURL string) error
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, userID, albumID string) error
	Unlike(ctx context.Context, userID, albumID string) error
	Likes(ctx context.Context, albumID string) (int, store.Source, error)
}

type service struct {
	albums AlbumStore
	likes  LikeStore
}

// New constructs a Service backed by the provided stores.
func New(albums AlbumStore, likes LikeStore) Service {
	return &service{albums: albums, likes: likes}
}

func (s *service) Create(ctx context.Context, in store.AlbumInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.albums.Add(ctx, in)
}

func (s *service) Get(ctx context.Context, id string) (store.Album, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, "", err
	}
	return s.albums.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, in store.AlbumInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.albums.Edit(ctx, id, in)
}

func (s *service) UpdateCover(ctx context.Context, id, coverURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.albums.EditCover(ctx, id, coverURL)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.albums.Delete(ctx, id)
}

func (s *service) Like(ctx context.Context, userID, albumID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.likes.Add(ctx, userID, albumID)
}

func (s *service) Unlike(ctx context.Context, userID, albumID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.likes.Remove(ctx, userID, albumID)
}

func (s *service) Likes(ctx context.Context, albumID string) (int, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	return s.likes.Count(ctx, albumID)
}
