package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"attendance-backend/attendance"
	"attendance-backend/models"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Identity       IdentityProvider
	Users          UserStore
	Settings       SettingsStore
	Trackers       *attendance.Registry
	Health         Pinger
	Location       *time.Location
	CORSOrigins    []string
	AdminEmails    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	authHandler := NewAuthHandler(d.Identity, d.Users, d.AdminEmails)
	attendanceHandler := NewAttendanceHandler(d.Trackers, d.Location)
	settingsHandler := NewSettingsHandler(d.Settings)

	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = d.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(RequestTimeout(d.RequestTimeout))

	api := router.Group("/api/v1")
	{
		// Auth routes
		api.POST("/auth/signup", authHandler.SignUp)
		api.POST("/auth/signin", authHandler.SignIn)

		authed := api.Group("")
		authed.Use(AuthRequired(d.Identity))
		{
			authed.POST("/auth/signout", authHandler.SignOut)
			authed.GET("/auth/session", authHandler.Session)

			// Attendance routes
			authed.GET("/attendance/status", attendanceHandler.Status)
			authed.POST("/attendance/checkin", attendanceHandler.CheckIn)
			authed.POST("/attendance/checkout", attendanceHandler.CheckOut)
			authed.GET("/attendance/today", attendanceHandler.Today)
			authed.GET("/attendance/today/export", attendanceHandler.ExportToday)

			// Settings routes
			authed.GET("/settings/geofence", settingsHandler.GetGeofence)
			authed.PUT("/settings/geofence", RequireRole(d.Users, models.RoleAdmin), settingsHandler.UpdateGeofence)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "Database connection failed: " + err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	return router, nil
}
