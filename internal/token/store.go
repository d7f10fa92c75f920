// Package token keeps the daemon's OAuth credentials, one record per
// client id.
package token

import (
	"sync"
	"time"

	"github.com/udisondev/galaxyd/internal/model"
)

// GalaxyClientID is the bootstrap client id of the desktop client itself.
// Its refresh token mints every per-game token; the entry stays in the
// store for the daemon's lifetime.
const GalaxyClientID = "46899977096215655"

// Store is a mutex-guarded map client id -> Token. The lock is held only
// across map operations — callers clone the token out and do their
// network I/O without it.
type Store struct {
	mu     sync.Mutex
	tokens map[string]model.Token
}

// NewStore создаёт пустое хранилище токенов.
func NewStore() *Store {
	return &Store{tokens: make(map[string]model.Token)}
}

// Get returns a copy of the token for clientID.
func (s *Store) Get(clientID string) (model.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[clientID]
	return t, ok
}

// Insert stores a token, stamping ObtainedAt if the caller did not.
func (s *Store) Insert(clientID string, t model.Token) {
	if t.ObtainedAt.IsZero() {
		t.ObtainedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[clientID] = t
}

// Replace overwrites the token for clientID. Same semantics as Insert;
// kept separate so call sites read as refresh rather than first store.
func (s *Store) Replace(clientID string, t model.Token) {
	s.Insert(clientID, t)
}
