// Package session tracks per-session conversation context: the ordered
// (query, answer) turns used to rewrite follow-up questions and to build the
// chat-history portion of the generation prompt.
//
// History is the only state a session keeps between turns. Each session
// holds at most a fixed window of turns; appending beyond the window evicts
// the oldest turn first. Appends are serialized so concurrent turns for the
// same session cannot lose updates.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultWindow is the default number of retained (query, answer) turns.
const DefaultWindow = 5

// Turn is one completed (query, answer) exchange.
type Turn struct {
	Query  string    `json:"query"`
	Answer string    `json:"answer"`
	At     time.Time `json:"at"`
}

// Store holds conversation context per session.
type Store struct {
	window int

	mu       sync.Mutex
	sessions map[string][]Turn
}

// NewStore creates a session store with the given sliding-window size.
// A non-positive window falls back to DefaultWindow.
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window:   window,
		sessions: make(map[string][]Turn),
	}
}

// Resolve returns the session ID (generating a fresh UUID when empty) and a
// copy of its turn history. Unknown sessions resolve to an empty history.
func (s *Store) Resolve(id string) (string, []Turn) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return id, copyTurns(s.sessions[id])
}

// History returns a copy of the session's turns, oldest first.
func (s *Store) History(id string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTurns(s.sessions[id])
}

// Append records a completed turn, evicting the oldest turn when the window
// is full. Eviction is strictly FIFO and the retained count never exceeds
// the configured window.
func (s *Store) Append(id string, turn Turn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[id], turn)
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	s.sessions[id] = turns
}

// Window returns the configured sliding-window size.
func (s *Store) Window() int {
	return s.window
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
