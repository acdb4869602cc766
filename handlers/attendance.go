package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/models"
)

type AttendanceHandler struct {
	trackers *attendance.Registry
	location *time.Location
}

func NewAttendanceHandler(trackers *attendance.Registry, loc *time.Location) *AttendanceHandler {
	return &AttendanceHandler{trackers: trackers, location: loc}
}

func (h *AttendanceHandler) tracker(c *gin.Context) *attendance.Tracker {
	return h.trackers.ForSession(currentSession(c))
}

// Status re-derives today's status from the store.
func (h *AttendanceHandler) Status(c *gin.Context) {
	rep, err := h.tracker(c).RefreshStatus(c.Request.Context())
	if err != nil {
		respondAttendanceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.AttendanceStatusResponse{Status: string(rep.Status), Open: rep.Open},
		"today":   nonNil(rep.Today),
	})
}

func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	loc, ok := bindLocation(c)
	if !ok {
		return
	}

	t := h.tracker(c)
	log.Printf("Checking in: user=%s", currentSession(c).User.ID)

	if _, err := t.RefreshStatus(c.Request.Context()); err != nil {
		respondAttendanceError(c, err)
		return
	}
	rec, err := t.CheckIn(c.Request.Context(), loc)
	if err != nil {
		respondAttendanceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Checked in successfully!",
		"status":  t.Status(),
		"record":  rec,
	})
}

func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	loc, ok := bindLocation(c)
	if !ok {
		return
	}

	t := h.tracker(c)
	log.Printf("Checking out: user=%s", currentSession(c).User.ID)

	if _, err := t.RefreshStatus(c.Request.Context()); err != nil {
		respondAttendanceError(c, err)
		return
	}
	rec, err := t.CheckOut(c.Request.Context(), loc)
	if err != nil {
		respondAttendanceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Checked out successfully!",
		"status":  t.Status(),
		"record":  rec,
	})
}

func (h *AttendanceHandler) Today(c *gin.Context) {
	recs, err := h.tracker(c).TodayRecords(c.Request.Context())
	if err != nil {
		respondAttendanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": nonNil(recs), "count": len(recs)})
}

// bindLocation reads the device reading from the body. An empty body means
// the client could not provide one.
func bindLocation(c *gin.Context) (attendance.Locator, bool) {
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": bindingMessage(err)})
		return nil, false
	}
	return requestLocator(req), true
}

func requestLocator(req models.LocationRequest) attendance.Locator {
	return attendance.LocatorFunc(func(context.Context) (geo.Position, error) {
		if req.LocationError != "" {
			return geo.Position{}, errors.New(req.LocationError)
		}
		if req.Latitude == nil || req.Longitude == nil {
			return geo.Position{}, errors.New("geolocation is not supported by your browser")
		}
		return geo.Position{Latitude: *req.Latitude, Longitude: *req.Longitude}, nil
	})
}

func nonNil(recs []models.AttendanceRecord) []models.AttendanceRecord {
	if recs == nil {
		return []models.AttendanceRecord{}
	}
	return recs
}
