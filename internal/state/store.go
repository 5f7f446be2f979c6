// Package state persists masking sessions and their mapping tables in a
// local SQLite database, so a masked query can be unmasked in a later
// invocation without carrying a mapping file around.
package state

import (
	"time"

	"github.com/leapstack-labs/sqlveil/pkg/mask"
)

// SessionRecord is one stored masking session.
type SessionRecord struct {
	ID        string
	Mode      string
	Domain    string
	Source    string
	Masked    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore is the persistence contract used by the CLI and server.
type SessionStore interface {
	Open(path string) error
	Close() error
	Migrate() error

	SaveSession(rec *SessionRecord, records []mask.MappingRecord) error
	GetSession(id string) (*SessionRecord, error)
	ListSessions(limit int) ([]*SessionRecord, error)
	DeleteSession(id string) error

	LoadMappings(sessionID string) (*mask.Store, error)
	SetMappingEnabled(sessionID, synthetic string, enabled bool) error
}
