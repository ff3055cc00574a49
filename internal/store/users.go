package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// dummyPasswordHash keeps credential checks for unknown usernames as slow as
// for known ones.
var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// User is the public user payload.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

// UserInput carries registration data. Password is plain text and is hashed
// before it is stored.
type UserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// UserRepository persists users and checks credentials.
type UserRepository struct {
	db         *sql.DB
	cache      cache.Client
	bcryptCost int
}

// NewUserRepository builds a UserRepository.
func NewUserRepository(db *sql.DB, c cache.Client) *UserRepository {
	return &UserRepository{db: db, cache: c, bcryptCost: bcrypt.DefaultCost}
}

// VerifyNewUsername fails with an invariant error when username is taken.
func (r *UserRepository) VerifyNewUsername(ctx context.Context, username string) error {
	var existing string
	err := r.db.QueryRowContext(ctx, `
		SELECT username
		FROM users
		WHERE username = $1
	`, username).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup username: %w", err)
	}
	return apperr.Invariant("failed to add user. username has already been used")
}

// Add registers a user and returns its id. The username is stored exactly as
// given, the same form VerifyCredential looks it up by.
func (r *UserRepository) Add(ctx context.Context, in UserInput) (string, error) {
	if err := r.VerifyNewUsername(ctx, in.Username); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password, fullname)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, newID("user"), in.Username, string(hash), in.Fullname).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperr.Wrap(apperr.KindInvariant, "failed to add user. username has already been used", err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.Invariant("failed to add user")
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// Get returns the public profile of a user.
func (r *UserRepository) Get(ctx context.Context, id string) (User, Source, error) {
	return readThrough(ctx, r.cache, userKey(id), func(ctx context.Context) (User, error) {
		var u User
		err := r.db.QueryRowContext(ctx, `
			SELECT id, username, fullname
			FROM users
			WHERE id = $1
		`, id).Scan(&u.ID, &u.Username, &u.Fullname)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return User{}, apperr.NotFound("user not found")
			}
			return User{}, fmt.Errorf("select user: %w", err)
		}
		return u, nil
	})
}

// SearchByUsername lists users whose username contains fragment.
func (r *UserRepository) SearchByUsername(ctx context.Context, fragment string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, fullname
		FROM users
		WHERE username LIKE $1
	`, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Fullname); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// VerifyCredential returns the id of the user identified by username and
// password.
func (r *UserRepository) VerifyCredential(ctx context.Context, username, password string) (string, error) {
	var (
		id   string
		hash string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, password
		FROM users
		WHERE username = $1
	`, username).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", apperr.Authentication("the credentials you provided are incorrect")
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", apperr.Authentication("the credentials you provided are incorrect")
	}
	return id, nil
}
