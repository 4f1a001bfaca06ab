package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/robobook/bookchat/internal/db"
	"github.com/robobook/bookchat/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// fakeClock hands out strictly increasing timestamps so recency ordering is
// deterministic.
func fakeClock() func() time.Time {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// TestCreateSetsActiveSession tests that Create yields a usable session
func TestCreateSetsActiveSession(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()

	session := s.Create(map[string]string{"page_url": "/docs/ch1"})

	if session.ID == "" {
		t.Error("Created session should have an id")
	}
	if len(session.Messages) != 0 {
		t.Errorf("New session should have no messages, got %d", len(session.Messages))
	}
	if session.Metadata["page_url"] != "/docs/ch1" {
		t.Error("Initial metadata should be merged in")
	}

	current := s.Current()
	if current == nil || current.ID != session.ID {
		t.Error("Create should make the new session current")
	}
}

// TestMessageRoundTrip tests that appended messages come back in insertion
// order
func TestMessageRoundTrip(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()
	s.Create(nil)

	const n = 7
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		s.AddMessage(models.Message{Role: role, Content: fmt.Sprintf("message %d", i)})
	}

	session := s.Current()
	if session == nil {
		t.Fatal("Current session should exist")
	}
	if len(session.Messages) != n {
		t.Fatalf("Expected %d messages, got %d", n, len(session.Messages))
	}
	for i, msg := range session.Messages {
		if msg.Content != fmt.Sprintf("message %d", i) {
			t.Errorf("Message %d out of order: %q", i, msg.Content)
		}
		if msg.ID == "" {
			t.Errorf("Message %d should have an id", i)
		}
	}
}

// TestCurrentLoadsPersistedSession tests the fallback to storage
func TestCurrentLoadsPersistedSession(t *testing.T) {
	database := openTestDB(t)

	s := New(database)
	s.now = fakeClock()
	s.Create(nil)
	created := s.AddMessage(models.Message{Role: models.RoleUser, Content: "hello"})

	// A fresh store over the same database sees the persisted session.
	fresh := New(database)
	session := fresh.Current()
	if session == nil {
		t.Fatal("Fresh store should load the persisted session")
	}
	if session.ID != created.ID {
		t.Errorf("Expected session %s, got %s", created.ID, session.ID)
	}
	if len(session.Messages) != 1 || session.Messages[0].Content != "hello" {
		t.Error("Persisted messages should survive the round trip")
	}
}

// TestCurrentPrefersMostRecentlyTouched tests recency ordering on load
func TestCurrentPrefersMostRecentlyTouched(t *testing.T) {
	database := openTestDB(t)

	s := New(database)
	s.now = fakeClock()
	s.Create(nil)
	older := s.AddMessage(models.Message{Role: models.RoleUser, Content: "first conversation"})

	s.Create(nil)
	newer := s.AddMessage(models.Message{Role: models.RoleUser, Content: "second conversation"})

	if older.ID == newer.ID {
		t.Fatal("Sessions should be distinct")
	}

	fresh := New(database)
	session := fresh.Current()
	if session == nil {
		t.Fatal("Fresh store should load a session")
	}
	if session.ID != newer.ID {
		t.Error("Current should return the most recently touched session")
	}
}

// TestSessionCap tests that an 11th session evicts the least recently
// touched one
func TestSessionCap(t *testing.T) {
	database := openTestDB(t)
	s := New(database)
	s.now = fakeClock()

	var firstID string
	for i := 0; i < MaxSessions+1; i++ {
		session := s.Create(nil)
		if i == 0 {
			firstID = session.ID
		}
	}

	sessions := s.List()
	if len(sessions) != MaxSessions {
		t.Fatalf("Expected %d sessions after cap, got %d", MaxSessions, len(sessions))
	}
	for _, session := range sessions {
		if session.ID == firstID {
			t.Error("Least recently touched session should have been evicted")
		}
	}
}

// TestListOrdering tests most-recently-touched-first ordering
func TestListOrdering(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()

	for i := 0; i < 3; i++ {
		s.Create(nil)
	}

	sessions := s.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].LastActivityAt.After(sessions[i-1].LastActivityAt) {
			t.Error("Sessions should be ordered most recently touched first")
		}
	}
}

// TestClearErasesEverything tests that Clear drops memory and storage
func TestClearErasesEverything(t *testing.T) {
	database := openTestDB(t)
	s := New(database)
	s.now = fakeClock()

	s.Create(nil)
	s.Create(nil)
	s.Clear()

	if s.Current() != nil {
		t.Error("Current should be nil after Clear")
	}
	if got := len(s.List()); got != 0 {
		t.Errorf("Expected no persisted sessions after Clear, got %d", got)
	}
}

// TestUpdateMetadata tests the shallow merge and the no-session no-op
func TestUpdateMetadata(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()

	// No active session: must not panic, must not create one.
	s.UpdateMetadata(map[string]string{"page_url": "/docs/ch2"})
	if s.Current() != nil {
		t.Error("UpdateMetadata should be a no-op without an active session")
	}

	s.Create(map[string]string{"page_url": "/docs/ch1", "client": "bookchat"})
	s.UpdateMetadata(map[string]string{"page_url": "/docs/ch2"})

	session := s.Current()
	if session.Metadata["page_url"] != "/docs/ch2" {
		t.Error("UpdateMetadata should overwrite existing keys")
	}
	if session.Metadata["client"] != "bookchat" {
		t.Error("UpdateMetadata should keep untouched keys")
	}
}

// TestAddMessageCreatesSessionWhenMissing tests the implicit session
func TestAddMessageCreatesSessionWhenMissing(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()

	session := s.AddMessage(models.Message{Role: models.RoleUser, Content: "hi"})
	if session == nil || session.ID == "" {
		t.Fatal("AddMessage should create a session when none exists")
	}
	if len(session.Messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(session.Messages))
	}
}

// TestInMemoryOnlyStore tests that a nil database degrades gracefully
func TestInMemoryOnlyStore(t *testing.T) {
	s := New(nil)
	s.now = fakeClock()

	s.Create(nil)
	session := s.AddMessage(models.Message{Role: models.RoleUser, Content: "hello"})
	if len(session.Messages) != 1 {
		t.Error("In-memory store should still record messages")
	}
	if got := s.List(); len(got) != 0 {
		t.Error("In-memory store has nothing persisted to list")
	}
	s.Clear()
	if s.Current() != nil {
		t.Error("Clear should drop the in-memory session")
	}
}

// TestReadCopyIsolation tests that callers cannot mutate store state
func TestReadCopyIsolation(t *testing.T) {
	s := New(openTestDB(t))
	s.now = fakeClock()

	s.Create(nil)
	s.AddMessage(models.Message{Role: models.RoleUser, Content: "original"})

	copy1 := s.Current()
	copy1.Messages[0].Content = "mutated"
	copy1.Metadata["injected"] = "yes"

	copy2 := s.Current()
	if copy2.Messages[0].Content != "original" {
		t.Error("Mutating a returned session should not affect the store")
	}
	if _, ok := copy2.Metadata["injected"]; ok {
		t.Error("Mutating returned metadata should not affect the store")
	}
}
