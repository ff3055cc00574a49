package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

func newTestPlaylistRepository(t *testing.T, c cache.Client) (*PlaylistRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	return NewPlaylistRepository(db, c, NewActivityLog(db, c)), mock
}

func TestPlaylistRepositoryAdd(t *testing.T) {
	c := newMemoryCache(t)
	repo, mock := newTestPlaylistRepository(t, c)
	stubIDs(t)
	primeCache(t, c, playlistsKey("user-1"))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlists (id, name, owner) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs("playlist-1", "Radiohead classics", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("playlist-1"))

	id, err := repo.Add(context.Background(), "Radiohead classics", "user-1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "playlist-1" {
		t.Fatalf("id = %q, want playlist-1", id)
	}
	assertCached(t, c, playlistsKey("user-1"), false)
	assertExpectations(t, mock)
}

func TestPlaylistRepositoryListIncludesCollaborations(t *testing.T) {
	repo, mock := newTestPlaylistRepository(t, newMemoryCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.name, u.username FROM playlists p JOIN users u ON u.id = p.owner WHERE p.owner = $1 OR EXISTS`)).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username"}).
			AddRow("playlist-1", "Radiohead classics", "alice").
			AddRow("playlist-2", "Mine", "bob"))

	ctx := context.Background()
	playlists, source, err := repo.List(ctx, "user-2")
	if err != nil || source != SourceServer {
		t.Fatalf("List: %q, %v", source, err)
	}
	if len(playlists) != 2 || playlists[0].Username != "alice" {
		t.Fatalf("playlists = %+v", playlists)
	}

	cached, source, err := repo.List(ctx, "user-2")
	if err != nil || source != SourceCache || len(cached) != 2 {
		t.Fatalf("cached List = %+v, %q, %v", cached, source, err)
	}
	assertExpectations(t, mock)
}

func TestPlaylistRepositoryOwner(t *testing.T) {
	repo, mock := newTestPlaylistRepository(t, newMemoryCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT owner FROM playlists WHERE id = $1`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow("user-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT owner FROM playlists WHERE id = $1`)).
		WithArgs("playlist-x").
		WillReturnRows(sqlmock.NewRows([]string{"owner"}))

	ctx := context.Background()
	owner, err := repo.Owner(ctx, "playlist-1")
	if err != nil || owner != "user-1" {
		t.Fatalf("Owner = %q, %v", owner, err)
	}
	if _, err := repo.Owner(ctx, "playlist-x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing playlist: %v, want not found", err)
	}
	assertExpectations(t, mock)
}

func TestPlaylistRepositorySongs(t *testing.T) {
	repo, mock := newTestPlaylistRepository(t, newMemoryCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.name, u.username FROM playlists p JOIN users u ON u.id = p.owner WHERE p.id = $1`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username"}).AddRow("playlist-1", "Radiohead classics", "alice"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT s.id, s.title, s.performer FROM playlistsongs ps JOIN songs s ON s.id = ps.song_id WHERE ps.playlist_id = $1`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "performer"}).AddRow("song-1", "Airbag", "Radiohead"))

	ctx := context.Background()
	detail, source, err := repo.Songs(ctx, "playlist-1")
	if err != nil || source != SourceServer {
		t.Fatalf("Songs: %q, %v", source, err)
	}
	if detail.Username != "alice" || len(detail.Songs) != 1 || detail.Songs[0].ID != "song-1" {
		t.Fatalf("detail = %+v", detail)
	}
	if _, source, _ := repo.Songs(ctx, "playlist-1"); source != SourceCache {
		t.Fatalf("second Songs source = %q, want cache", source)
	}
	assertExpectations(t, mock)
}

func TestPlaylistRepositoryAddSongRecordsActivity(t *testing.T) {
	c := newMemoryCache(t)
	repo, mock := newTestPlaylistRepository(t, c)
	stubIDs(t)
	primeCache(t, c, playlistKey("playlist-1"), activitiesKey("playlist-1"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlistsongs (id, playlist_id, song_id) SELECT $1, $2, id FROM songs WHERE id = $3 RETURNING id`)).
		WithArgs("playlistsongs-1", "playlist-1", "song-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("playlistsongs-1"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO playlist_song_activities (id, playlist_id, song_id, user_id, action, time) VALUES ($1, $2, $3, $4, $5, $6)`)).
		WithArgs("activity-2", "playlist-1", "song-1", "user-2", "add", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.AddSong(context.Background(), "playlist-1", "song-1", "user-2")
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	if id != "playlistsongs-1" {
		t.Fatalf("id = %q, want playlistsongs-1", id)
	}
	assertCached(t, c, playlistKey("playlist-1"), false)
	assertCached(t, c, activitiesKey("playlist-1"), false)
	assertExpectations(t, mock)
}

func TestPlaylistRepositoryAddSongFailures(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "unknown song",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlistsongs`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectRollback()
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "unknown playlist",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlistsongs`)).
					WillReturnError(&pgconn.PgError{Code: "23503"})
				mock.ExpectRollback()
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "activity write fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlistsongs`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("playlistsongs-1"))
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO playlist_song_activities`)).
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newMemoryCache(t)
			repo, mock := newTestPlaylistRepository(t, c)
			primeCache(t, c, playlistKey("playlist-1"))
			tc.expect(mock)

			_, err := repo.AddSong(context.Background(), "playlist-1", "song-1", "user-1")
			if err == nil {
				t.Fatalf("AddSong succeeded, want error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			assertCached(t, c, playlistKey("playlist-1"), true)
			assertExpectations(t, mock)
		})
	}
}

func TestPlaylistRepositoryDeleteSong(t *testing.T) {
	c := newMemoryCache(t)
	repo, mock := newTestPlaylistRepository(t, c)
	stubIDs(t)
	primeCache(t, c, playlistKey("playlist-1"), activitiesKey("playlist-1"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM playlistsongs WHERE playlist_id = $1 AND song_id = $2`)).
		WithArgs("playlist-1", "song-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO playlist_song_activities`)).
		WithArgs("activity-1", "playlist-1", "song-1", "user-1", "delete", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM playlistsongs WHERE playlist_id = $1 AND song_id = $2`)).
		WithArgs("playlist-1", "song-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ctx := context.Background()
	if err := repo.DeleteSong(ctx, "playlist-1", "song-1", "user-1"); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	assertCached(t, c, playlistKey("playlist-1"), false)
	assertCached(t, c, activitiesKey("playlist-1"), false)

	if err := repo.DeleteSong(ctx, "playlist-1", "song-1", "user-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second DeleteSong: %v, want not found", err)
	}
	assertExpectations(t, mock)
}

func TestPlaylistRepositoryDeleteInvalidatesCollaborators(t *testing.T) {
	c := newMemoryCache(t)
	repo, mock := newTestPlaylistRepository(t, c)

	stale := []string{
		playlistKey("playlist-1"), activitiesKey("playlist-1"),
		playlistsKey("user-1"), playlistsKey("user-2"),
	}
	primeCache(t, c, stale...)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM collaborations WHERE playlist_id = $1`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-2"))
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM playlists WHERE id = $1 RETURNING owner`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow("user-1"))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), "playlist-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, key := range stale {
		assertCached(t, c, key, false)
	}
	assertExpectations(t, mock)
}

func TestActivityLogActivities(t *testing.T) {
	db, mock := newMockDB(t)
	log := NewActivityLog(db, newMemoryCache(t))

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM playlist_song_activities a LEFT JOIN users u ON u.id = a.user_id LEFT JOIN songs s ON s.id = a.song_id WHERE a.playlist_id = $1 ORDER BY a.time ASC, a.seq ASC`)).
		WithArgs("playlist-1").
		WillReturnRows(sqlmock.NewRows([]string{"song_id", "user_id", "username", "title", "action", "time"}).
			AddRow("song-1", "user-1", "alice", "Airbag", "add", first).
			AddRow("song-1", "user-2", "bob", "Airbag", "delete", first.Add(time.Microsecond)))

	ctx := context.Background()
	activities, source, err := log.Activities(ctx, "playlist-1")
	if err != nil || source != SourceServer {
		t.Fatalf("Activities: %q, %v", source, err)
	}
	if len(activities) != 2 {
		t.Fatalf("activities = %+v", activities)
	}
	if activities[0].Action != ActionAdd || activities[1].Action != ActionDelete || activities[1].Username != "bob" {
		t.Fatalf("activities = %+v", activities)
	}

	cached, source, err := log.Activities(ctx, "playlist-1")
	if err != nil || source != SourceCache {
		t.Fatalf("cached Activities: %q, %v", source, err)
	}
	if !cached[0].Time.Equal(first) || !cached[1].Time.After(cached[0].Time) {
		t.Fatalf("cached times = %v, %v", cached[0].Time, cached[1].Time)
	}
	assertExpectations(t, mock)
}

func TestActivityLogActivitiesUnknownPlaylist(t *testing.T) {
	db, mock := newMockDB(t)
	log := NewActivityLog(db, newMemoryCache(t))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`)).
		WithArgs("playlist-x").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if _, _, err := log.Activities(context.Background(), "playlist-x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	assertExpectations(t, mock)
}

func TestActivityClockIsStrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	clock := newActivityClock(func() time.Time { return frozen })

	prev := clock.next()
	if !prev.Equal(frozen.Truncate(time.Microsecond)) {
		t.Fatalf("first tick = %v", prev)
	}
	for i := 0; i < 100; i++ {
		next := clock.next()
		if !next.After(prev) {
			t.Fatalf("tick %d = %v, not after %v", i, next, prev)
		}
		if next.Sub(prev) != time.Microsecond {
			t.Fatalf("tick %d advanced by %v", i, next.Sub(prev))
		}
		prev = next
	}
}
