// Package store holds the persistence backends: Postgres through pgx for
// deployments, and an in-memory store for local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS auth_users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES auth_users(id) ON DELETE CASCADE,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id    UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	role  TEXT NOT NULL DEFAULT 'employee'
);

CREATE TABLE IF NOT EXISTS settings (
	id                INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	central_latitude  DOUBLE PRECISION,
	central_longitude DOUBLE PRECISION,
	geofence_radius   DOUBLE PRECISION,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS attendance (
	id                  UUID PRIMARY KEY,
	user_id             UUID NOT NULL,
	check_in_time       TIMESTAMPTZ NOT NULL,
	check_in_latitude   DOUBLE PRECISION NOT NULL,
	check_in_longitude  DOUBLE PRECISION NOT NULL,
	check_out_time      TIMESTAMPTZ,
	check_out_latitude  DOUBLE PRECISION,
	check_out_longitude DOUBLE PRECISION,
	CONSTRAINT attendance_checkout_after_checkin
		CHECK (check_out_time IS NULL OR check_out_time >= check_in_time)
);

CREATE UNIQUE INDEX IF NOT EXISTS attendance_one_open_per_user
	ON attendance (user_id) WHERE check_out_time IS NULL;

CREATE INDEX IF NOT EXISTS attendance_user_check_in
	ON attendance (user_id, check_in_time);
`

// Postgres implements every store contract on one connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// Connect opens the pool and verifies it with a ping.
func Connect(ctx context.Context, dbURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Successfully connected to the database!")
	return &Postgres{db: pool}, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

// Migrate creates the schema if it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() {
	p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
