package geo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidFence = errors.New("invalid geofence")

// Fence is a circular region around Center.
type Fence struct {
	Center       Position `json:"center"`
	RadiusMeters float64  `json:"radius_meters"`
}

// Contains reports whether p lies inside the fence. The boundary is inside.
func (f Fence) Contains(p Position) bool {
	return p.DistanceTo(f.Center) <= f.RadiusMeters
}

// Validate checks that the fence describes a real place on the globe.
func (f Fence) Validate() error {
	if err := ValidatePosition(f.Center); err != nil {
		return fmt.Errorf("%w: center: %v", ErrInvalidFence, err)
	}
	if math.IsNaN(f.RadiusMeters) || math.IsInf(f.RadiusMeters, 0) || f.RadiusMeters < 0 {
		return fmt.Errorf("%w: radius must be a finite, non-negative number of meters", ErrInvalidFence)
	}
	return nil
}

// ValidatePosition rejects non-finite or out-of-range coordinates.
func ValidatePosition(p Position) error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}
