// Package incident records completion failures for later inspection.
// Records go to SQLite when a database path is configured. The database is
// opened lazily on first use; if opening it or any query fails, records are
// kept in memory instead. Conversation content is never stored.
package incident

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/chatrooms/internal/logger"
)

// Incident is one failed completion.
type Incident struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder accepts incidents. Implementations must not block for long.
type Recorder interface {
	Record(ctx context.Context, inc Incident)
}

// Store is a Recorder backed by SQLite with an in-memory fallback.
type Store struct {
	path string

	mu      sync.Mutex
	memory  []Incident
	nextID  int64
	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// NewStore returns a store writing to the SQLite file at path.
// An empty path keeps everything in memory.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) initDB() {
	if s.path == "" {
		return
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?_busy_timeout=10000")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory incidents", "error", err)
		return
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS incidents (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        room_id TEXT,
        kind TEXT,
        detail TEXT,
        created_at INTEGER
    );`); err != nil {
		s.initErr = err
		_ = db.Close()
		logger.L.Warn("sqlite table creation failed; using in-memory incidents", "error", err)
		return
	}
	s.db = db
	logger.L.Info("sqlite incident DB initialized", "path", s.path)
}

func (s *Store) useDB() bool {
	s.dbOnce.Do(s.initDB)
	return s.initErr == nil && s.db != nil
}

// Record persists inc, stamping CreatedAt when it is zero.
func (s *Store) Record(ctx context.Context, inc Incident) {
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now()
	}

	if s.useDB() {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO incidents (room_id, kind, detail, created_at) VALUES (?,?,?,?);`,
			inc.RoomID, inc.Kind, inc.Detail, inc.CreatedAt.UnixNano())
		if err == nil {
			return
		}
		logger.L.Error("failed to store incident in sqlite; falling back to memory", "error", err)
	}

	s.mu.Lock()
	s.nextID++
	inc.ID = s.nextID
	s.memory = append(s.memory, inc)
	s.mu.Unlock()
}

// List returns up to limit incidents, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Incident, error) {
	var out []Incident
	if s.useDB() {
		q := `SELECT id, room_id, kind, detail, created_at FROM incidents ORDER BY id DESC`
		args := []any{}
		if limit > 0 {
			q += ` LIMIT ?`
			args = append(args, limit)
		}
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var inc Incident
			var createdAt int64
			if err := rows.Scan(&inc.ID, &inc.RoomID, &inc.Kind, &inc.Detail, &createdAt); err != nil {
				return nil, err
			}
			inc.CreatedAt = time.Unix(0, createdAt)
			out = append(out, inc)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	for i := len(s.memory) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.memory[i])
	}
	s.mu.Unlock()
	return out, nil
}

// Close releases the database handle, if one was opened.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
