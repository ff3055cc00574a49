package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"openmusic/internal/apperr"
)

type stubOwners map[string]string

func (s stubOwners) Owner(_ context.Context, playlistID string) (string, error) {
	owner, ok := s[playlistID]
	if !ok {
		return "", apperr.NotFound("playlist not found")
	}
	return owner, nil
}

type stubGrants struct {
	granted map[string]bool
	err     error
	calls   int
}

func (s *stubGrants) Exists(_ context.Context, playlistID, userID string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.granted[playlistID+"/"+userID], nil
}

type failingOwners struct{ err error }

func (f failingOwners) Owner(context.Context, string) (string, error) { return "", f.err }

func TestAccessResolverVerifyOwner(t *testing.T) {
	resolver := NewAccessResolver(stubOwners{"playlist-1": "user-1"}, &stubGrants{})
	ctx := context.Background()

	if err := resolver.VerifyOwner(ctx, "playlist-1", "user-1"); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := resolver.VerifyOwner(ctx, "playlist-1", "user-2"); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("stranger: %v, want authorization", err)
	}
	if err := resolver.VerifyOwner(ctx, "playlist-x", "user-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing playlist: %v, want not found", err)
	}
}

func TestAccessResolverVerifyAccess(t *testing.T) {
	dbDown := errors.New("connection refused")

	tests := []struct {
		name       string
		owners     PlaylistOwners
		grants     *stubGrants
		playlistID string
		userID     string
		wantErr    error
		wantGrants int
	}{
		{
			name:       "owner",
			owners:     stubOwners{"playlist-1": "user-1"},
			grants:     &stubGrants{},
			playlistID: "playlist-1",
			userID:     "user-1",
		},
		{
			name:       "collaborator",
			owners:     stubOwners{"playlist-1": "user-1"},
			grants:     &stubGrants{granted: map[string]bool{"playlist-1/user-2": true}},
			playlistID: "playlist-1",
			userID:     "user-2",
			wantGrants: 1,
		},
		{
			name:       "stranger",
			owners:     stubOwners{"playlist-1": "user-1"},
			grants:     &stubGrants{},
			playlistID: "playlist-1",
			userID:     "user-3",
			wantErr:    apperr.ErrAuthorization,
			wantGrants: 1,
		},
		{
			name:       "missing playlist short-circuits",
			owners:     stubOwners{},
			grants:     &stubGrants{granted: map[string]bool{"playlist-x/user-2": true}},
			playlistID: "playlist-x",
			userID:     "user-2",
			wantErr:    apperr.ErrNotFound,
		},
		{
			name:       "owner lookup failure propagates",
			owners:     failingOwners{err: dbDown},
			grants:     &stubGrants{},
			playlistID: "playlist-1",
			userID:     "user-2",
			wantErr:    dbDown,
		},
		{
			name:       "grant lookup failure propagates",
			owners:     stubOwners{"playlist-1": "user-1"},
			grants:     &stubGrants{err: dbDown},
			playlistID: "playlist-1",
			userID:     "user-2",
			wantErr:    dbDown,
			wantGrants: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := NewAccessResolver(tc.owners, tc.grants)
			err := resolver.VerifyAccess(context.Background(), tc.playlistID, tc.userID)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("VerifyAccess: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if tc.grants.calls != tc.wantGrants {
				t.Fatalf("grant lookups = %d, want %d", tc.grants.calls, tc.wantGrants)
			}
		})
	}
}

func TestCollaborationRepository(t *testing.T) {
	db, mock := newMockDB(t)
	stubIDs(t)
	c := newMemoryCache(t)
	repo := NewCollaborationRepository(db, c)
	primeCache(t, c, playlistsKey("user-2"))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO collaborations (id, playlist_id, user_id) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs("collab-1", "playlist-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("collab-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO collaborations`)).
		WithArgs("collab-2", "playlist-1", "user-2").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO collaborations`)).
		WithArgs("collab-3", "playlist-1", "user-x").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS ( SELECT 1 FROM collaborations WHERE playlist_id = $1 AND user_id = $2 )`)).
		WithArgs("playlist-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM collaborations WHERE playlist_id = $1 AND user_id = $2`)).
		WithArgs("playlist-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM collaborations WHERE playlist_id = $1 AND user_id = $2`)).
		WithArgs("playlist-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	id, err := repo.Add(ctx, "playlist-1", "user-2")
	if err != nil || id != "collab-1" {
		t.Fatalf("Add = %q, %v", id, err)
	}
	assertCached(t, c, playlistsKey("user-2"), false)

	if _, err := repo.Add(ctx, "playlist-1", "user-2"); !errors.Is(err, apperr.ErrInvariant) {
		t.Fatalf("duplicate Add: %v, want invariant", err)
	}
	if _, err := repo.Add(ctx, "playlist-1", "user-x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown user Add: %v, want not found", err)
	}

	found, err := repo.Exists(ctx, "playlist-1", "user-2")
	if err != nil || !found {
		t.Fatalf("Exists = %v, %v", found, err)
	}

	primeCache(t, c, playlistsKey("user-2"))
	if err := repo.Delete(ctx, "playlist-1", "user-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertCached(t, c, playlistsKey("user-2"), false)

	if err := repo.Delete(ctx, "playlist-1", "user-2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second Delete: %v, want not found", err)
	}
	assertExpectations(t, mock)
}
