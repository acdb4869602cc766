// Package attendance implements the per-session check-in/check-out state
// machine and its geofence gate.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"attendance-backend/geo"
	"attendance-backend/identity"
	"attendance-backend/models"
)

type Status string

const (
	StatusUnknown      Status = ""
	StatusNoOpenRecord Status = "NO_OPEN_RECORD"
	StatusCheckedIn    Status = "CHECKED_IN"
	StatusCheckedOut   Status = "CHECKED_OUT"
)

func (s Status) String() string {
	if s == StatusUnknown {
		return "UNKNOWN"
	}
	return string(s)
}

type Config struct {
	Store    Store
	Settings SettingsProvider
	Now      func() time.Time
	Location *time.Location
}

// Report is the outcome of RefreshStatus.
type Report struct {
	Status Status
	Open   *models.AttendanceRecord
	Today  []models.AttendanceRecord
}

// Tracker is the attendance state machine for one signed-in session.
// RefreshStatus, CheckIn and CheckOut never overlap: a call made while
// another is running fails with ErrBusy.
type Tracker struct {
	session  *SessionContext
	store    Store
	settings SettingsProvider
	now      func() time.Time
	loc      *time.Location

	op sync.Mutex

	mu     sync.RWMutex
	status Status
	fence  *geo.Fence
}

func NewTracker(session *SessionContext, cfg Config) *Tracker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Tracker{
		session:  session,
		store:    cfg.Store,
		settings: cfg.Settings,
		now:      cfg.Now,
		loc:      cfg.Location,
	}
}

func (t *Tracker) Session() *SessionContext { return t.session }

// Status returns the last derived status without querying the store.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tracker) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// RefreshStatus re-derives the status from the store.
func (t *Tracker) RefreshStatus(ctx context.Context) (Report, error) {
	if !t.op.TryLock() {
		return Report{}, ErrBusy
	}
	defer t.op.Unlock()

	user, ok := t.session.User()
	if !ok {
		return Report{}, ErrNotSignedIn
	}
	return t.refresh(ctx, user)
}

func (t *Tracker) refresh(ctx context.Context, user identity.User) (Report, error) {
	from, to := DayBounds(t.now(), t.loc)
	today, err := t.store.FindRecordsForDay(ctx, user.ID, from, to)
	if err != nil {
		return Report{}, storeFailure("load today's records", err)
	}
	open, err := t.store.FindOpenRecord(ctx, user.ID)
	if err != nil {
		return Report{}, storeFailure("load open record", err)
	}

	rep := Report{Status: StatusNoOpenRecord, Open: open, Today: today}
	if open != nil {
		rep.Status = StatusCheckedIn
	} else {
		for _, r := range today {
			if !r.IsOpen() {
				rep.Status = StatusCheckedOut
				break
			}
		}
	}
	t.setStatus(rep.Status)
	return rep, nil
}

func (t *Tracker) ensureStatus(ctx context.Context, user identity.User) (Status, error) {
	if s := t.Status(); s != StatusUnknown {
		return s, nil
	}
	rep, err := t.refresh(ctx, user)
	if err != nil {
		return StatusUnknown, err
	}
	return rep.Status, nil
}

// Geofence returns the fence, loading it on first use. A failed load is
// retried on the next call.
func (t *Tracker) Geofence(ctx context.Context) (geo.Fence, error) {
	t.mu.RLock()
	f := t.fence
	t.mu.RUnlock()
	if f != nil {
		return *f, nil
	}

	fence, err := t.settings.Geofence(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return geo.Fence{}, err
		}
		return geo.Fence{}, storeFailure("load geofence", err)
	}
	if err := fence.Validate(); err != nil {
		return geo.Fence{}, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	t.mu.Lock()
	t.fence = &fence
	t.mu.Unlock()
	return fence, nil
}

// CheckIn records the start of work if the device is inside the geofence.
func (t *Tracker) CheckIn(ctx context.Context, loc Locator) (models.AttendanceRecord, error) {
	if !t.op.TryLock() {
		return models.AttendanceRecord{}, ErrBusy
	}
	defer t.op.Unlock()

	user, ok := t.session.User()
	if !ok {
		return models.AttendanceRecord{}, ErrNotSignedIn
	}

	status, err := t.ensureStatus(ctx, user)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if status != StatusNoOpenRecord {
		return models.AttendanceRecord{}, &StateError{Op: "check in", Status: status}
	}

	fence, err := t.Geofence(ctx)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	pos, err := locate(ctx, loc)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	if !fence.Contains(pos) {
		d := pos.DistanceTo(fence.Center)
		log.Printf("Check-in rejected: user=%s distance=%.0fm radius=%.0fm", user.ID, d, fence.RadiusMeters)
		return models.AttendanceRecord{}, fmt.Errorf("%w (%.0fm from site, limit %.0fm)", ErrOutOfBounds, d, fence.RadiusMeters)
	}

	rec := models.AttendanceRecord{
		UserID:           user.ID,
		CheckInTime:      t.now().UTC(),
		CheckInLatitude:  pos.Latitude,
		CheckInLongitude: pos.Longitude,
	}
	id, err := t.store.InsertRecord(ctx, rec)
	if err != nil {
		return models.AttendanceRecord{}, storeFailure("record check-in", err)
	}
	rec.ID = id

	t.setStatus(StatusCheckedIn)
	log.Printf("Checked in: user=%s record=%s", user.ID, rec.ID)
	return rec, nil
}

// CheckOut closes the user's open record. The position is recorded but not
// checked against the geofence.
func (t *Tracker) CheckOut(ctx context.Context, loc Locator) (models.AttendanceRecord, error) {
	if !t.op.TryLock() {
		return models.AttendanceRecord{}, ErrBusy
	}
	defer t.op.Unlock()

	user, ok := t.session.User()
	if !ok {
		return models.AttendanceRecord{}, ErrNotSignedIn
	}

	status, err := t.ensureStatus(ctx, user)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if status != StatusCheckedIn {
		return models.AttendanceRecord{}, ErrNoOpenRecord
	}

	pos, err := locate(ctx, loc)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	open, err := t.store.FindOpenRecord(ctx, user.ID)
	if err != nil {
		return models.AttendanceRecord{}, storeFailure("load open record", err)
	}
	if open == nil {
		return models.AttendanceRecord{}, ErrNoOpenRecord
	}

	at := t.now().UTC()
	if at.Before(open.CheckInTime) {
		at = open.CheckInTime
	}
	if err := t.store.CloseRecord(ctx, open.ID, at, pos); err != nil {
		if errors.Is(err, ErrNoOpenRecord) {
			return models.AttendanceRecord{}, err
		}
		return models.AttendanceRecord{}, storeFailure("record check-out", err)
	}

	rec := *open
	rec.CheckOutTime = &at
	rec.CheckOutLatitude = &pos.Latitude
	rec.CheckOutLongitude = &pos.Longitude

	t.setStatus(StatusCheckedOut)
	log.Printf("Checked out: user=%s record=%s", user.ID, rec.ID)
	return rec, nil
}

// TodayRecords lists the user's records for the current local day.
func (t *Tracker) TodayRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	user, ok := t.session.User()
	if !ok {
		return nil, ErrNotSignedIn
	}
	from, to := DayBounds(t.now(), t.loc)
	recs, err := t.store.FindRecordsForDay(ctx, user.ID, from, to)
	if err != nil {
		return nil, storeFailure("load today's records", err)
	}
	return recs, nil
}

func locate(ctx context.Context, loc Locator) (geo.Position, error) {
	if loc == nil {
		return geo.Position{}, fmt.Errorf("%w: geolocation is not supported", ErrLocationUnavailable)
	}
	pos, err := loc.Locate(ctx)
	if err != nil {
		return geo.Position{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if err := geo.ValidatePosition(pos); err != nil {
		return geo.Position{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return pos, nil
}
