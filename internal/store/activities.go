package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"openmusic/internal/apperr"
	"openmusic/internal/cache"
)

// Action is what happened to a song on a playlist.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
)

// Activity is one entry of a playlist's audit trail.
type Activity struct {
	SongID   string    `json:"songId"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Title    string    `json:"title"`
	Action   Action    `json:"action"`
	Time     time.Time `json:"time"`
}

// ActivityLog is the append-only audit trail of playlist song mutations.
// Entries are written only by PlaylistRepository, inside the transaction of
// the mutation they describe.
type ActivityLog struct {
	db    *sql.DB
	cache cache.Client
	clock *activityClock
}

// NewActivityLog builds an ActivityLog.
func NewActivityLog(db *sql.DB, c cache.Client) *ActivityLog {
	return &ActivityLog{db: db, cache: c, clock: newActivityClock(time.Now)}
}

func (l *ActivityLog) record(ctx context.Context, q Querier, playlistID, songID, userID string, action Action) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO playlist_song_activities (id, playlist_id, song_id, user_id, action, time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, newID("activity"), playlistID, songID, userID, string(action), l.clock.next()); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Activities returns the playlist's trail, oldest first.
func (l *ActivityLog) Activities(ctx context.Context, playlistID string) ([]Activity, Source, error) {
	return readThrough(ctx, l.cache, activitiesKey(playlistID), func(ctx context.Context) ([]Activity, error) {
		found, err := playlistExists(ctx, l.db, playlistID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperr.NotFound("playlist not found")
		}

		rows, err := l.db.QueryContext(ctx, `
			SELECT a.song_id, a.user_id, COALESCE(u.username, ''), COALESCE(s.title, ''), a.action, a.time
			FROM playlist_song_activities a
			LEFT JOIN users u ON u.id = a.user_id
			LEFT JOIN songs s ON s.id = a.song_id
			WHERE a.playlist_id = $1
			ORDER BY a.time ASC, a.seq ASC
		`, playlistID)
		if err != nil {
			return nil, fmt.Errorf("select activities: %w", err)
		}
		defer rows.Close()

		activities := []Activity{}
		for rows.Next() {
			var (
				a      Activity
				action string
			)
			if err := rows.Scan(&a.SongID, &a.UserID, &a.Username, &a.Title, &action, &a.Time); err != nil {
				return nil, fmt.Errorf("scan activity: %w", err)
			}
			a.Action = Action(action)
			a.Time = a.Time.UTC()
			activities = append(activities, a)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate activities: %w", err)
		}
		return activities, nil
	})
}

// activityClock hands out strictly increasing microsecond timestamps within
// one process. Entries from different processes can share a timestamp; the
// seq column breaks those ties in insertion order.
type activityClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newActivityClock(now func() time.Time) *activityClock {
	return &activityClock{now: now}
}

func (c *activityClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
