package attendance_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"attendance-backend/attendance"
	"attendance-backend/identity"
	"attendance-backend/store"
)

func TestRegistryReusesTrackerPerSession(t *testing.T) {
	clk := &clock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemory()
	reg := attendance.NewRegistry(attendance.Config{Store: st, Settings: st, Now: clk.Now})

	user := identity.User{ID: uuid.New(), Email: "a@example.com"}
	s1 := identity.Session{ID: uuid.New(), User: user, ExpiresAt: clk.Now().Add(time.Hour)}
	s2 := identity.Session{ID: uuid.New(), User: user, ExpiresAt: clk.Now().Add(2 * time.Hour)}

	if reg.ForSession(s1) != reg.ForSession(s1) {
		t.Fatalf("expected the same tracker for the same session")
	}
	if reg.ForSession(s1) == reg.ForSession(s2) {
		t.Fatalf("expected distinct trackers for distinct sessions")
	}
	if reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", reg.Len())
	}

	tr := reg.ForSession(s1)
	reg.HandleAuthEvent(identity.Event{Type: identity.SignedOut, Session: s1})
	if reg.Len() != 1 {
		t.Fatalf("len after sign-out = %d, want 1", reg.Len())
	}
	if _, ok := tr.Session().User(); ok {
		t.Fatalf("signed-out tracker still has a user")
	}

	reg.HandleAuthEvent(identity.Event{Type: identity.SignedIn, Session: s2})
	if reg.Len() != 1 {
		t.Fatalf("sign-in event should not change the registry")
	}

	clk.Advance(3 * time.Hour)
	s3 := identity.Session{ID: uuid.New(), User: user, ExpiresAt: clk.Now().Add(time.Hour)}
	reg.ForSession(s3)
	if reg.Len() != 1 {
		t.Fatalf("expired sessions were not dropped, len = %d", reg.Len())
	}
}
