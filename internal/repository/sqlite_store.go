package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore is an embedded single-file store used for local development and
// tests. It hands out user, session and prospect repositories over one
// database and, since SQLite has no LISTEN/NOTIFY, reports its own prospect
// writes through OnChange.
type SQLiteStore struct {
	db *sql.DB

	mu       sync.RWMutex
	onChange func(userID string)
}

var (
	_ UserRepository     = sqliteUsers{}
	_ SessionRepository  = sqliteSessions{}
	_ ProspectRepository = sqliteProspects{}
)

// OpenSQLite opens (creating when needed) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prospects (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			company TEXT NOT NULL,
			industry TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT,
			website TEXT NOT NULL DEFAULT '',
			online_presence TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			last_contacted TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prospects_user ON prospects(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection (DB interface).
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// OnChange registers the callback invoked with the owner's id after every
// committed prospect write.
func (s *SQLiteStore) OnChange(fn func(userID string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *SQLiteStore) changed(userID string) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(userID)
	}
}

// Fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Users returns the user repository view of the store.
func (s *SQLiteStore) Users() UserRepository { return sqliteUsers{s} }

// Sessions returns the session repository view of the store.
func (s *SQLiteStore) Sessions() SessionRepository { return sqliteSessions{s} }

// Prospects returns the prospect repository view of the store.
func (s *SQLiteStore) Prospects() ProspectRepository { return sqliteProspects{s} }

type sqliteUsers struct{ s *SQLiteStore }

func (r sqliteUsers) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var u model.UserProfile
	var created string
	err := r.s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r sqliteUsers) Create(ctx context.Context, user *model.UserProfile) error {
	user.CreatedAt = time.Now().UTC()
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, formatTime(user.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

type sqliteSessions struct{ s *SQLiteStore }

func (r sqliteSessions) Create(ctx context.Context, sess *model.Session) error {
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt))
	return err
}

func (r sqliteSessions) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	var created, expires string
	err := r.s.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.UserID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r sqliteSessions) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (r sqliteSessions) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

type sqliteProspects struct{ s *SQLiteStore }

const sqliteProspectCols = `id, user_id, name, company, industry, location,
	email, COALESCE(phone, ''), website, online_presence, avatar,
	status, last_contacted, created_at, updated_at`

func scanSQLiteProspect(scan func(...any) error) (*model.Prospect, error) {
	var p model.Prospect
	var lastContacted sql.NullString
	var created, updated string
	if err := scan(
		&p.ID, &p.UserID, &p.Name, &p.Company, &p.Industry, &p.Location,
		&p.Contact.Email, &p.Contact.Phone, &p.Contact.Website, &p.OnlinePresence, &p.Avatar,
		&p.Status, &lastContacted, &created, &updated,
	); err != nil {
		return nil, err
	}
	var err error
	if lastContacted.Valid {
		t, err := parseTime(lastContacted.String)
		if err != nil {
			return nil, err
		}
		p.LastContacted = &t
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r sqliteProspects) Create(ctx context.Context, p *model.Prospect) error {
	now := time.Now().UTC()
	_, err := r.s.db.ExecContext(ctx,
		`INSERT INTO prospects (id, user_id, name, company, industry, location,
		                        email, phone, website, online_presence, avatar,
		                        status, last_contacted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Company, string(p.Industry), p.Location,
		p.Contact.Email, nullableString(p.Contact.Phone), p.Contact.Website, p.OnlinePresence, p.Avatar,
		string(p.Status), nullableTime(p.LastContacted), formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.changed(p.UserID)
	return nil
}

func (r sqliteProspects) FindByID(ctx context.Context, userID, id string) (*model.Prospect, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+sqliteProspectCols+` FROM prospects WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanSQLiteProspect(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r sqliteProspects) ListByUser(ctx context.Context, userID string) ([]*model.Prospect, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT `+sqliteProspectCols+` FROM prospects WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prospects []*model.Prospect
	for rows.Next() {
		p, err := scanSQLiteProspect(rows.Scan)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

func (r sqliteProspects) UpdateStatus(ctx context.Context, userID, id string, status model.Status, at time.Time) (*model.Prospect, error) {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE prospects SET status = ?, last_contacted = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(status), formatTime(at), formatTime(time.Now()), id, userID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	r.s.changed(userID)
	return r.FindByID(ctx, userID, id)
}
