package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one check-in/check-out pair. The check-out fields stay
// nil while the record is open.
type AttendanceRecord struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	CheckInTime       time.Time  `json:"check_in_time" db:"check_in_time"`
	CheckInLatitude   float64    `json:"check_in_latitude" db:"check_in_latitude"`
	CheckInLongitude  float64    `json:"check_in_longitude" db:"check_in_longitude"`
	CheckOutTime      *time.Time `json:"check_out_time,omitempty" db:"check_out_time"`
	CheckOutLatitude  *float64   `json:"check_out_latitude,omitempty" db:"check_out_latitude"`
	CheckOutLongitude *float64   `json:"check_out_longitude,omitempty" db:"check_out_longitude"`
}

// IsOpen reports whether the record has not been checked out yet.
func (r AttendanceRecord) IsOpen() bool {
	return r.CheckOutTime == nil
}

// LocationRequest carries a one-shot device reading, or the reason the
// device could not produce one.
type LocationRequest struct {
	Latitude      *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" binding:"omitempty,longitude"`
	LocationError string   `json:"location_error"`
}

type AttendanceStatusResponse struct {
	Status string            `json:"status"`
	Open   *AttendanceRecord `json:"open_record,omitempty"`
}
