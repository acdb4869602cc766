package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/identity"
	"attendance-backend/models"
)

// Memory is an in-process store with the same contracts as Postgres. It is
// used for local runs (STORE_DRIVER=memory) and tests.
type Memory struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]models.AttendanceRecord
	open     map[uuid.UUID]uuid.UUID // user -> open record
	fence    *geo.Fence
	users    map[uuid.UUID]models.User
	accounts map[uuid.UUID]identity.Account
	sessions map[uuid.UUID]identity.SessionRecord
}

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[uuid.UUID]models.AttendanceRecord),
		open:     make(map[uuid.UUID]uuid.UUID),
		users:    make(map[uuid.UUID]models.User),
		accounts: make(map[uuid.UUID]identity.Account),
		sessions: make(map[uuid.UUID]identity.SessionRecord),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) InsertRecord(_ context.Context, rec models.AttendanceRecord) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.open[rec.UserID]; ok && rec.IsOpen() {
		return uuid.Nil, attendance.ErrDuplicateOpenRecord
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.records[rec.ID] = rec
	if rec.IsOpen() {
		m.open[rec.UserID] = rec.ID
	}
	return rec.ID, nil
}

func (m *Memory) CloseRecord(_ context.Context, id uuid.UUID, at time.Time, pos geo.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || !rec.IsOpen() {
		return attendance.ErrNoOpenRecord
	}
	lat, lon := pos.Latitude, pos.Longitude
	rec.CheckOutTime = &at
	rec.CheckOutLatitude = &lat
	rec.CheckOutLongitude = &lon
	m.records[id] = rec
	delete(m.open, rec.UserID)
	return nil
}

func (m *Memory) FindOpenRecord(_ context.Context, userID uuid.UUID) (*models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.open[userID]
	if !ok {
		return nil, nil
	}
	rec := m.records[id]
	return &rec, nil
}

func (m *Memory) FindRecordsForDay(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.AttendanceRecord
	for _, r := range m.records {
		if r.UserID == userID && !r.CheckInTime.Before(from) && r.CheckInTime.Before(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.Before(out[j].CheckInTime) })
	return out, nil
}

func (m *Memory) Geofence(context.Context) (geo.Fence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fence == nil {
		return geo.Fence{}, attendance.ErrNotConfigured
	}
	return *m.fence, nil
}

func (m *Memory) SaveGeofence(_ context.Context, f geo.Fence) error {
	if err := f.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.fence = &f
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrUserExists
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrUserExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) CreateAccount(_ context.Context, a identity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return identity.ErrEmailTaken
		}
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) AccountByEmail(_ context.Context, email string) (identity.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return identity.Account{}, identity.ErrAccountNotFound
}

func (m *Memory) CreateSession(_ context.Context, s identity.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) SessionByID(_ context.Context, id uuid.UUID) (identity.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return identity.SessionRecord{}, identity.ErrSessionNotFound
	}
	return s, nil
}

func (m *Memory) RevokeSession(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return identity.ErrSessionNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &at
		m.sessions[id] = s
	}
	return nil
}
