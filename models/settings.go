package models

// GeofenceSettings mirrors the settings row. Nil fields mean the geofence
// has not been configured.
type GeofenceSettings struct {
	CentralLatitude  *float64 `json:"central_latitude" db:"central_latitude"`
	CentralLongitude *float64 `json:"central_longitude" db:"central_longitude"`
	GeofenceRadius   *float64 `json:"geofence_radius" db:"geofence_radius"`
}

type UpdateGeofenceRequest struct {
	CentralLatitude  *float64 `json:"central_latitude" binding:"required,latitude"`
	CentralLongitude *float64 `json:"central_longitude" binding:"required,longitude"`
	GeofenceRadius   *float64 `json:"geofence_radius" binding:"required,gte=0"`
}
