package attendance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-backend/identity"
)

type registryEntry struct {
	tracker   *Tracker
	expiresAt time.Time
}

// Registry keeps one Tracker per identity session. Subscribe HandleAuthEvent
// to the identity provider so signed-out sessions are dropped.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	trackers map[uuid.UUID]registryEntry
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{cfg: cfg, trackers: make(map[uuid.UUID]registryEntry)}
}

// ForSession returns the session's tracker, creating it on first use.
func (r *Registry) ForSession(sess identity.Session) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	for id, e := range r.trackers {
		if !now.Before(e.expiresAt) {
			delete(r.trackers, id)
		}
	}

	if e, ok := r.trackers[sess.ID]; ok {
		return e.tracker
	}
	t := NewTracker(NewSessionContext(sess), r.cfg)
	r.trackers[sess.ID] = registryEntry{tracker: t, expiresAt: sess.ExpiresAt}
	return t
}

func (r *Registry) HandleAuthEvent(ev identity.Event) {
	if ev.Type != identity.SignedOut {
		return
	}
	r.mu.Lock()
	e, ok := r.trackers[ev.Session.ID]
	delete(r.trackers, ev.Session.ID)
	r.mu.Unlock()

	if ok {
		e.tracker.Session().HandleAuthEvent(ev)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
