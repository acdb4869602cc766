package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/models"
	"attendance-backend/store"
)

type SettingsStore interface {
	Geofence(ctx context.Context) (geo.Fence, error)
	SaveGeofence(ctx context.Context, f geo.Fence) error
}

type SettingsHandler struct {
	settings SettingsStore
}

func NewSettingsHandler(settings SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) GetGeofence(c *gin.Context) {
	fence, err := h.settings.Geofence(c.Request.Context())
	if err != nil {
		if errors.Is(err, attendance.ErrNotConfigured) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Geofence not configured"})
			return
		}
		log.Printf("Error fetching settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load application settings."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": store.SettingsFromFence(fence)})
}

// UpdateGeofence replaces the geofence. Sessions that already loaded the
// previous fence keep it until they sign in again.
func (h *SettingsHandler) UpdateGeofence(c *gin.Context) {
	var req models.UpdateGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": bindingMessage(err)})
		return
	}

	fence, err := store.FenceFromSettings(models.GeofenceSettings{
		CentralLatitude:  req.CentralLatitude,
		CentralLongitude: req.CentralLongitude,
		GeofenceRadius:   req.GeofenceRadius,
	})
	if err == nil {
		err = fence.Validate()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := h.settings.SaveGeofence(c.Request.Context(), fence); err != nil {
		log.Printf("Error saving settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save settings"})
		return
	}

	log.Printf("Geofence updated by user=%s: center=(%f, %f) radius=%.0fm",
		currentSession(c).User.ID, fence.Center.Latitude, fence.Center.Longitude, fence.RadiusMeters)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": store.SettingsFromFence(fence)})
}
