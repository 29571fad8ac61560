package rtmpproxy

import (
	"sync"

	"go.uber.org/multierr"
)

// SessionStore keeps track of the sessions a server is running.
type SessionStore interface {
	RegisterSession(session *Session)
	DestroySession(sessionID string)
	NumberOfSessions() int
	CloseAll() error
}

type InMemoryContext struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ SessionStore = (*InMemoryContext)(nil)

func NewInMemoryContext() *InMemoryContext {
	return &InMemoryContext{
		sessions: make(map[string]*Session),
	}
}

func (c *InMemoryContext) RegisterSession(session *Session) {
	c.mu.Lock()
	c.sessions[session.ID()] = session
	c.mu.Unlock()
}

func (c *InMemoryContext) DestroySession(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

func (c *InMemoryContext) NumberOfSessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// CloseAll closes every registered session. Sessions remove themselves once Run returns.
func (c *InMemoryContext) CloseAll() error {
	c.mu.RLock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.RUnlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.Close())
	}
	return err
}
