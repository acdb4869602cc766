package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attendance-backend/geo"
	"attendance-backend/models"
)

// Store persists attendance records. Implementations must refuse a second
// open record for the same user with ErrDuplicateOpenRecord.
type Store interface {
	InsertRecord(ctx context.Context, rec models.AttendanceRecord) (uuid.UUID, error)
	// CloseRecord sets the check-out fields of an open record. It returns
	// ErrNoOpenRecord if the record is missing or already closed.
	CloseRecord(ctx context.Context, id uuid.UUID, at time.Time, pos geo.Position) error
	// FindOpenRecord returns the user's most recent open record, or nil.
	FindOpenRecord(ctx context.Context, userID uuid.UUID) (*models.AttendanceRecord, error)
	// FindRecordsForDay returns records whose check-in falls in [from, to).
	FindRecordsForDay(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.AttendanceRecord, error)
}

// SettingsProvider supplies the geofence, or ErrNotConfigured.
type SettingsProvider interface {
	Geofence(ctx context.Context) (geo.Fence, error)
}

// Locator acquires a one-shot position reading from the device.
type Locator interface {
	Locate(ctx context.Context) (geo.Position, error)
}

type LocatorFunc func(ctx context.Context) (geo.Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (geo.Position, error) { return f(ctx) }

// FixedLocator always reports the same reading.
func FixedLocator(p geo.Position) Locator {
	return LocatorFunc(func(context.Context) (geo.Position, error) { return p, nil })
}

// DayBounds returns [start, end) of the local day containing t.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
