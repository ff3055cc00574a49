package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"openmusic/internal/apperr"
)

func newTestUserRepository(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	repo := NewUserRepository(db, newMemoryCache(t))
	repo.bcryptCost = bcrypt.MinCost
	return repo, mock
}

func TestUserRepositoryAdd(t *testing.T) {
	repo, mock := newTestUserRepository(t)
	stubIDs(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT username FROM users WHERE username = $1`)).
		WithArgs("dicoding").
		WillReturnRows(sqlmock.NewRows([]string{"username"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, username, password, fullname) VALUES ($1, $2, $3, $4) RETURNING id`)).
		WithArgs("user-1", "dicoding", sqlmock.AnyArg(), "Dicoding Indonesia").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))

	id, err := repo.Add(context.Background(), UserInput{Username: "dicoding", Password: "secret", Fullname: "Dicoding Indonesia"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("id = %q, want user-1", id)
	}
	assertExpectations(t, mock)
}

func TestUserRepositoryUsernameMatchesAsRegistered(t *testing.T) {
	repo, mock := newTestUserRepository(t)
	stubIDs(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT username FROM users WHERE username = $1`)).
		WithArgs(" alice ").
		WillReturnRows(sqlmock.NewRows([]string{"username"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("user-1", " alice ", sqlmock.AnyArg(), "Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))

	ctx := context.Background()
	if _, err := repo.Add(ctx, UserInput{Username: " alice ", Password: "secret", Fullname: "Alice"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password FROM users WHERE username = $1`)).
		WithArgs(" alice ").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).AddRow("user-1", string(hash)))

	id, err := repo.VerifyCredential(ctx, " alice ", "secret")
	if err != nil || id != "user-1" {
		t.Fatalf("VerifyCredential = %q, %v", id, err)
	}
	assertExpectations(t, mock)
}

func TestUserRepositoryAddTakenUsername(t *testing.T) {
	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
	}{
		{
			name: "found by lookup",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT username FROM users WHERE username = $1`)).
					WithArgs("dicoding").
					WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("dicoding"))
			},
		},
		{
			name: "lost insert race",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT username FROM users WHERE username = $1`)).
					WithArgs("dicoding").
					WillReturnRows(sqlmock.NewRows([]string{"username"}))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newTestUserRepository(t)
			tc.expect(mock)

			_, err := repo.Add(context.Background(), UserInput{Username: "dicoding", Password: "secret", Fullname: "Dicoding"})
			if !errors.Is(err, apperr.ErrInvariant) {
				t.Fatalf("error = %v, want invariant", err)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestUserRepositoryGet(t *testing.T) {
	repo, mock := newTestUserRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, fullname FROM users WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "fullname"}).AddRow("user-1", "dicoding", "Dicoding Indonesia"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, fullname FROM users WHERE id = $1`)).
		WithArgs("user-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "fullname"}))

	ctx := context.Background()
	user, source, err := repo.Get(ctx, "user-1")
	if err != nil || source != SourceServer || user.Username != "dicoding" {
		t.Fatalf("Get = %+v, %q, %v", user, source, err)
	}
	if _, source, _ := repo.Get(ctx, "user-1"); source != SourceCache {
		t.Fatalf("second Get source = %q, want cache", source)
	}
	if _, _, err := repo.Get(ctx, "user-x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing user: %v, want not found", err)
	}
	assertExpectations(t, mock)
}

func TestUserRepositorySearchByUsername(t *testing.T) {
	repo, mock := newTestUserRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, fullname FROM users WHERE username LIKE $1`)).
		WithArgs("%dico%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "fullname"}).AddRow("user-1", "dicoding", "Dicoding Indonesia"))

	users, err := repo.SearchByUsername(context.Background(), "dico")
	if err != nil {
		t.Fatalf("SearchByUsername: %v", err)
	}
	if len(users) != 1 || users[0].ID != "user-1" {
		t.Fatalf("users = %+v", users)
	}
	assertExpectations(t, mock)
}

func TestUserRepositoryVerifyCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		password string
		wantID   string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			rows:     sqlmock.NewRows([]string{"id", "password"}).AddRow("user-1", string(hash)),
			password: "secret",
			wantID:   "user-1",
		},
		{
			name:     "wrong password",
			rows:     sqlmock.NewRows([]string{"id", "password"}).AddRow("user-1", string(hash)),
			password: "guess",
			wantErr:  apperr.ErrAuthentication,
		},
		{
			name:     "unknown username",
			rows:     sqlmock.NewRows([]string{"id", "password"}),
			password: "secret",
			wantErr:  apperr.ErrAuthentication,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newTestUserRepository(t)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, password FROM users WHERE username = $1`)).
				WithArgs("dicoding").
				WillReturnRows(tc.rows)

			id, err := repo.VerifyCredential(context.Background(), "dicoding", tc.password)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("VerifyCredential: %v", err)
			}
			if id != tc.wantID {
				t.Fatalf("id = %q, want %q", id, tc.wantID)
			}
			assertExpectations(t, mock)
		})
	}
}
