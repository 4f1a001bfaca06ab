// Package store keeps conversation sessions for the lifetime of the process
// and persists them to the local state database.
package store

import (
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robobook/bookchat/internal/db"
	"github.com/robobook/bookchat/internal/logging"
	"github.com/robobook/bookchat/pkg/models"
)

// sessionsKey is the single namespaced entry holding the persisted session
// list as a JSON array, most recently touched first.
const sessionsKey = "bookchat.sessions"

// MaxSessions caps the persisted session list; the least recently touched
// session is evicted once the cap is exceeded.
const MaxSessions = 10

// Store owns the active session and the persisted session list. It is
// constructed once at startup and passed by reference to whoever needs it.
// The in-memory state stays authoritative even when persistence fails:
// storage errors are logged and swallowed, degrading to session loss at
// worst.
type Store struct {
	mu       sync.Mutex
	database *sql.DB
	current  *models.Session
	now      func() time.Time
}

// New creates a Store backed by database. A nil database keeps the store
// fully functional in memory only.
func New(database *sql.DB) *Store {
	return &Store{database: database, now: time.Now}
}

// Create allocates a new session with an empty message list, merges
// initialMetadata in, makes it the active session, and persists it.
func (s *Store) Create(initialMetadata map[string]string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := &models.Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		LastActivityAt: now,
		Messages:       []models.Message{},
		Metadata:       map[string]string{},
	}
	for k, v := range initialMetadata {
		session.Metadata[k] = v
	}

	s.current = session
	s.persist()
	return clone(session)
}

// Current returns the active session, falling back to the most recently
// touched persisted session. Returns nil when neither exists.
func (s *Store) Current() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		sessions := s.load()
		if len(sessions) > 0 {
			first := sessions[0]
			s.current = &first
		}
	}
	if s.current == nil {
		return nil
	}
	return clone(s.current)
}

// AddMessage appends msg to the active session, creating one first if
// needed. The message is stamped with the current time, the session's
// LastActivityAt is updated, and the session list is persisted. The updated
// session is returned as a read copy.
func (s *Store) AddMessage(msg models.Message) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureCurrent()

	now := s.now()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = now
	s.current.Messages = append(s.current.Messages, msg)
	s.current.LastActivityAt = now
	s.persist()
	return clone(s.current)
}

// UpdateMetadata shallow-merges partial into the active session's metadata.
// No-op when there is no active session.
func (s *Store) UpdateMetadata(partial map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	if s.current.Metadata == nil {
		s.current.Metadata = map[string]string{}
	}
	for k, v := range partial {
		s.current.Metadata[k] = v
	}
	s.current.LastActivityAt = s.now()
	s.persist()
}

// Clear drops the active session and erases every persisted session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if s.database == nil {
		return
	}
	if err := db.Delete(s.database, sessionsKey); err != nil {
		logging.Warnf("failed to clear persisted sessions: %v", err)
	}
}

// List returns all persisted sessions, most recently touched first.
func (s *Store) List() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) ensureCurrent() {
	if s.current != nil {
		return
	}
	sessions := s.load()
	if len(sessions) > 0 {
		first := sessions[0]
		s.current = &first
		return
	}
	now := s.now()
	s.current = &models.Session{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		LastActivityAt: now,
		Messages:       []models.Message{},
		Metadata:       map[string]string{},
	}
}

// persist writes the session list back to storage with the active session
// upserted, ordered by recency and capped at MaxSessions. Callers hold s.mu.
func (s *Store) persist() {
	if s.database == nil || s.current == nil {
		return
	}

	sessions := s.load()
	replaced := false
	for i := range sessions {
		if sessions[i].ID == s.current.ID {
			sessions[i] = *clone(s.current)
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, *clone(s.current))
	}

	// Order by last activity rather than trusting storage insertion order.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	if len(sessions) > MaxSessions {
		sessions = sessions[:MaxSessions]
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		logging.Warnf("failed to encode sessions: %v", err)
		return
	}
	if err := db.Put(s.database, sessionsKey, string(data)); err != nil {
		logging.Warnf("failed to persist sessions: %v", err)
	}
}

// load reads the persisted session list. Callers hold s.mu. Any storage or
// decode failure degrades to an empty list.
func (s *Store) load() []models.Session {
	if s.database == nil {
		return nil
	}
	value, ok, err := db.Get(s.database, sessionsKey)
	if err != nil {
		logging.Warnf("failed to load persisted sessions: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	var sessions []models.Session
	if err := json.Unmarshal([]byte(value), &sessions); err != nil {
		logging.Warnf("failed to decode persisted sessions: %v", err)
		return nil
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	return sessions
}

// clone returns a read copy so callers cannot mutate store-owned state.
func clone(session *models.Session) *models.Session {
	copied := *session
	copied.Messages = make([]models.Message, len(session.Messages))
	copy(copied.Messages, session.Messages)
	if session.Metadata != nil {
		copied.Metadata = make(map[string]string, len(session.Metadata))
		for k, v := range session.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}
