package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/sqlveil/pkg/mask"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite session store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database, creating parent
// directories as needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	} else {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSession upserts a session together with its full mapping table.
// Mappings are replaced wholesale so the stored table always mirrors the
// session's current store.
func (s *SQLiteStore) SaveSession(rec *SessionRecord, records []mask.MappingRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, mode, domain, source, masked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   mode = excluded.mode,
		   domain = excluded.domain,
		   source = excluded.source,
		   masked = excluded.masked,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.Mode, rec.Domain, rec.Source, rec.Masked, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM mappings WHERE session_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO mappings (session_id, role, original, quoted, synthetic, enabled) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare mapping insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		if _, err := stmt.Exec(rec.ID, m.Role.String(), m.Original, m.Quoted, m.Synthetic, m.Enabled); err != nil {
			return fmt.Errorf("failed to save mapping %s: %w", m.Original, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(id string) (*SessionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec := &SessionRecord{}
	err := s.db.QueryRow(
		`SELECT id, mode, domain, source, masked, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Mode, &rec.Domain, &rec.Source, &rec.Masked, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return rec, nil
}

// ListSessions returns sessions ordered newest first. A limit of 0 means
// no limit.
func (s *SQLiteStore) ListSessions(limit int) ([]*SessionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT id, mode, domain, source, masked, created_at, updated_at
	          FROM sessions ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionRecord
	for rows.Next() {
		rec := &SessionRecord{}
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Domain, &rec.Source, &rec.Masked, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its mappings.
func (s *SQLiteStore) DeleteSession(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// LoadMappings reconstructs a mapping store from a stored session.
func (s *SQLiteStore) LoadMappings(sessionID string) (*mask.Store, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT role, original, quoted, synthetic, enabled FROM mappings WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	defer rows.Close()

	store := mask.NewStore()
	for rows.Next() {
		var roleName string
		var rec mask.MappingRecord
		if err := rows.Scan(&roleName, &rec.Original, &rec.Quoted, &rec.Synthetic, &rec.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		role, err := mask.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("invalid stored role %q: %w", roleName, err)
		}
		rec.Role = role
		if err := store.Add(rec); err != nil {
			return nil, fmt.Errorf("inconsistent stored mapping: %w", err)
		}
	}
	return store, rows.Err()
}

// SetMappingEnabled toggles one mapping of a stored session by its
// synthetic name.
func (s *SQLiteStore) SetMappingEnabled(sessionID, synthetic string, enabled bool) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE mappings SET enabled = ? WHERE session_id = ? AND synthetic = ?`,
		enabled, sessionID, synthetic,
	)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mapping not found: %s", synthetic)
	}
	return nil
}
