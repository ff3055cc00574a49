package songs

import (
	"context"

	"openmusic/internal/store"
)

// Store captures the persistence needs for song workflows.
type Store interface {
	Add(ctx context.Context, in store.SongInput) (string, error)
	List(ctx context.Context, filter store.SongFilter) ([]store.SongSummary, store.Source, error)
	Get(ctx context.Context, id string) (store.Song, store.Source, error)
	Edit(ctx context.Context, id string, in store.SongInput) error
	Delete(ctx context.Context, id string) error
}

// Service coordinates song-related operations.
type Service interface {
	Create(ctx context.Context, in store.SongInput) (string, error)
	List(ctx context.Context, filter store.SongFilter) ([]store.SongSummary, store.Source, error)
	Get(ctx context.Context, id string) (store.Song, store.Source, error)
	Update(ctx context.Context, id string, in store.SongInput) error
	Delete(ctx context.Context, id string) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, in store.SongInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.store.Add(ctx, in)
}

func (s *service) List(ctx context.Context, filter store.SongFilter) ([]store.SongSummary, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return s.store.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id string) (store.Song, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, "", err
	}
	return s.store.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, in store.SongInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Edit(ctx, id, in)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
