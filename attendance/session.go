package attendance

import (
	"sync"

	"github.com/google/uuid"

	"attendance-backend/identity"
)

// SessionContext holds the identity a tracker acts for. It only changes
// through HandleAuthEvent.
type SessionContext struct {
	mu        sync.RWMutex
	sessionID uuid.UUID
	user      *identity.User
}

func NewSessionContext(sess identity.Session) *SessionContext {
	u := sess.User
	return &SessionContext{sessionID: sess.ID, user: &u}
}

func (s *SessionContext) SessionID() uuid.UUID {
	return s.sessionID
}

// User returns the signed-in user, or false after sign-out.
func (s *SessionContext) User() (identity.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return identity.User{}, false
	}
	return *s.user, true
}

// HandleAuthEvent applies an identity change notification. Events for
// other sessions are ignored.
func (s *SessionContext) HandleAuthEvent(ev identity.Event) {
	if ev.Session.ID != s.sessionID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case identity.SignedOut:
		s.user = nil
	case identity.SignedIn:
		u := ev.Session.User
		s.user = &u
	}
}
