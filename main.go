package main

import (
	"context"
	"errors"
	"log"
	"time"

	"attendance-backend/attendance"
	"attendance-backend/config"
	"attendance-backend/geo"
	"attendance-backend/handlers"
	"attendance-backend/identity"
	"attendance-backend/store"
)

// backend is everything the server needs from a store driver.
type backend interface {
	attendance.Store
	identity.CredentialStore
	handlers.UserStore
	handlers.SettingsStore
	handlers.Pinger
}

func openBackend(ctx context.Context, cfg config.Config) (backend, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Println("Using in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func seedGeofence(ctx context.Context, b backend, fence *geo.Fence) error {
	if fence == nil {
		return nil
	}
	if _, err := b.Geofence(ctx); err == nil {
		return nil
	} else if !errors.Is(err, attendance.ErrNotConfigured) {
		return err
	}
	log.Printf("Seeding geofence: center=(%f, %f) radius=%.0fm", fence.Center.Latitude, fence.Center.Longitude, fence.RadiusMeters)
	return b.SaveGeofence(ctx, *fence)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, closeDB, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer closeDB()

	if err := seedGeofence(ctx, db, cfg.SeedGeofence); err != nil {
		log.Fatalf("Unable to seed geofence: %v\n", err)
	}
	cancel()

	idp, err := identity.NewService(db, identity.Options{
		Secret:     []byte(cfg.JWTSecret),
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		log.Fatalf("Unable to start identity provider: %v\n", err)
	}

	trackers := attendance.NewRegistry(attendance.Config{
		Store:    db,
		Settings: db,
		Location: cfg.Location,
	})
	unsubscribe := idp.OnAuthChange(trackers.HandleAuthEvent)
	defer unsubscribe()

	router, err := handlers.NewRouter(handlers.Deps{
		Identity:       idp,
		Users:          db,
		Settings:       db,
		Trackers:       trackers,
		Health:         db,
		Location:       cfg.Location,
		CORSOrigins:    cfg.CORSOrigins,
		AdminEmails:    cfg.AdminEmails,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Unable to build router: %v\n", err)
	}

	log.Printf("Server starting on port %s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v\n", err)
	}
}
