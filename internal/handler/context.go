package handler

import (
	"sync"

	"github.com/udisondev/galaxyd/internal/gameplay"
)

// Context is the shared state of one game connection. Both handler
// sub-tasks hold it; the mutex is never held across socket or HTTPS
// awaits — callers copy fields out, do their I/O, then write back.
type Context struct {
	mu sync.Mutex

	clientID     string
	clientSecret string
	identified   bool
	online       bool

	gamePID uint32
	topics  map[string]struct{}

	dirtyAchievements bool
	dirtyStats        bool
	dirtyLeaderboards bool

	db *gameplay.Database
}

// NewContext создаёт состояние для нового подключения.
func NewContext() *Context {
	return &Context{topics: make(map[string]struct{})}
}

// Identify records the game's credentials from auth_info_request.
func (c *Context) Identify(clientID, clientSecret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientID = clientID
	c.clientSecret = clientSecret
	c.identified = true
}

// Identified reports whether auth_info_request was seen.
func (c *Context) Identified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identified
}

// Credentials returns the captured client id and secret.
func (c *Context) Credentials() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID, c.clientSecret
}

// ClientID возвращает идентификатор игры.
func (c *Context) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// SetOnline flips the connectivity flag.
func (c *Context) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
}

// Online reports the current connectivity flag.
func (c *Context) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SetGamePID records the pid from start_game_session.
func (c *Context) SetGamePID(pid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gamePID = pid
}

// GamePID returns the recorded game pid (0 before start_game_session).
func (c *Context) GamePID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gamePID
}

// SubscribeTopic records a webbroker topic this game asked for.
func (c *Context) SubscribeTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

// SubscribedTo reports whether the game subscribed to topic.
func (c *Context) SubscribedTo(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.topics[topic]
	return ok
}

// SetDB attaches the lazily opened gameplay cache.
func (c *Context) SetDB(db *gameplay.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
}

// DB returns the gameplay cache, nil before auth_info_request.
func (c *Context) DB() *gameplay.Database {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// MarkDirty raises a per-kind dirty flag for the sync engine.
func (c *Context) MarkDirty(kind SyncKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case SyncAchievements:
		c.dirtyAchievements = true
	case SyncStats:
		c.dirtyStats = true
	case SyncLeaderboards:
		c.dirtyLeaderboards = true
	}
}

// ClearDirty drops a per-kind dirty flag after a complete push.
func (c *Context) ClearDirty(kind SyncKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case SyncAchievements:
		c.dirtyAchievements = false
	case SyncStats:
		c.dirtyStats = false
	case SyncLeaderboards:
		c.dirtyLeaderboards = false
	}
}

// Dirty reports a per-kind dirty flag.
func (c *Context) Dirty(kind SyncKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case SyncAchievements:
		return c.dirtyAchievements
	case SyncStats:
		return c.dirtyStats
	case SyncLeaderboards:
		return c.dirtyLeaderboards
	}
	return false
}

// SyncKind names the three locally mutable row families.
type SyncKind int

const (
	SyncAchievements SyncKind = iota
	SyncStats
	SyncLeaderboards
)
