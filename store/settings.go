package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/models"
)

func (p *Postgres) Geofence(ctx context.Context) (geo.Fence, error) {
	var s models.GeofenceSettings
	err := p.db.QueryRow(ctx, `
		SELECT central_latitude, central_longitude, geofence_radius
		FROM settings
		WHERE id = 1
	`).Scan(&s.CentralLatitude, &s.CentralLongitude, &s.GeofenceRadius)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return geo.Fence{}, attendance.ErrNotConfigured
		}
		return geo.Fence{}, err
	}
	return FenceFromSettings(s)
}

func (p *Postgres) SaveGeofence(ctx context.Context, f geo.Fence) error {
	if err := f.Validate(); err != nil {
		return err
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO settings (id, central_latitude, central_longitude, geofence_radius, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			central_latitude = EXCLUDED.central_latitude,
			central_longitude = EXCLUDED.central_longitude,
			geofence_radius = EXCLUDED.geofence_radius,
			updated_at = EXCLUDED.updated_at
	`, f.Center.Latitude, f.Center.Longitude, f.RadiusMeters)
	return err
}

// FenceFromSettings converts a settings row; any missing column means the
// geofence is not configured.
func FenceFromSettings(s models.GeofenceSettings) (geo.Fence, error) {
	if s.CentralLatitude == nil || s.CentralLongitude == nil || s.GeofenceRadius == nil {
		return geo.Fence{}, attendance.ErrNotConfigured
	}
	return geo.Fence{
		Center:       geo.Position{Latitude: *s.CentralLatitude, Longitude: *s.CentralLongitude},
		RadiusMeters: *s.GeofenceRadius,
	}, nil
}

// SettingsFromFence is the inverse of FenceFromSettings.
func SettingsFromFence(f geo.Fence) models.GeofenceSettings {
	lat, lon, r := f.Center.Latitude, f.Center.Longitude, f.RadiusMeters
	return models.GeofenceSettings{CentralLatitude: &lat, CentralLongitude: &lon, GeofenceRadius: &r}
}
