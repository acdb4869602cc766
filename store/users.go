package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"attendance-backend/identity"
	"attendance-backend/models"
)

func (p *Postgres) CreateUser(ctx context.Context, u models.User) error {
	_, err := p.db.Exec(ctx, `INSERT INTO users (id, email, role) VALUES ($1, $2, $3)`, u.ID, u.Email, u.Role)
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	return err
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := p.db.QueryRow(ctx, `SELECT id, email, role FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Email, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

func (p *Postgres) CreateAccount(ctx context.Context, a identity.Account) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO auth_users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.Email, a.PasswordHash, a.CreatedAt)
	if isUniqueViolation(err) {
		return identity.ErrEmailTaken
	}
	return err
}

func (p *Postgres) AccountByEmail(ctx context.Context, email string) (identity.Account, error) {
	return p.account(ctx, `SELECT id, email, password_hash, created_at FROM auth_users WHERE email = $1`, email)
}

func (p *Postgres) account(ctx context.Context, query string, arg any) (identity.Account, error) {
	var a identity.Account
	err := p.db.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	return a, err
}

func (p *Postgres) CreateSession(ctx context.Context, s identity.SessionRecord) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO auth_sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	return err
}

func (p *Postgres) SessionByID(ctx context.Context, id uuid.UUID) (identity.SessionRecord, error) {
	var s identity.SessionRecord
	err := p.db.QueryRow(ctx, `
		SELECT id, user_id, expires_at, revoked_at, created_at
		FROM auth_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.SessionRecord{}, identity.ErrSessionNotFound
	}
	return s, err
}

func (p *Postgres) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE auth_sessions SET revoked_at = COALESCE(revoked_at, $1) WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrSessionNotFound
	}
	return nil
}
