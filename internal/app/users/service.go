package users

import (
	"context"
	"strings"

	"openmusic/internal/apperr"
	"openmusic/internal/store"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	Add(ctx context.Context, in store.UserInput) (string, error)
	Get(ctx context.Context, id string) (store.User, store.Source, error)
	SearchByUsername(ctx context.Context, fragment string) ([]store.User, error)
	VerifyCredential(ctx context.Context, username, password string) (string, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Service exposes user-related workflows.
type Service interface {
	Signup(ctx context.Context, in store.UserInput) (string, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Get(ctx context.Context, id string) (store.User, store.Source, error)
	Search(ctx context.Context, username string) ([]store.User, error)
}

type service struct {
	store  Store
	tokens TokenIssuer
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens TokenIssuer) Service {
	return &service{store: store, tokens: tokens}
}

func (s *service) Signup(ctx context.Context, in store.UserInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return "", apperr.Invariant("username and password are required")
	}
	return s.store.Add(ctx, in)
}

// Authenticate verifies the credentials and returns a fresh access token.
func (s *service) Authenticate(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userID, err := s.store.VerifyCredential(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(userID)
}

func (s *service) Get(ctx context.Context, id string) (store.User, store.Source, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, "", err
	}
	return s.store.Get(ctx, id)
}

func (s *service) Search(ctx context.Context, username string) ([]store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchByUsername(ctx, username)
}
