// Package identity authenticates users and tracks their sessions. Sessions
// are handed to clients as signed bearer tokens; revocation is checked
// against the session store on every lookup.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSessionNotFound    = errors.New("session not found")
)

// User is the identity issued by the provider. It does not change for the
// lifetime of a session.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Session is an authenticated session and the bearer token that names it.
type Session struct {
	ID        uuid.UUID `json:"id"`
	User      User      `json:"user"`
	Token     string    `json:"access_token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type SessionRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// CredentialStore persists accounts and sessions.
type CredentialStore interface {
	CreateAccount(ctx context.Context, a Account) error
	AccountByEmail(ctx context.Context, email string) (Account, error)
	CreateSession(ctx context.Context, s SessionRecord) error
	SessionByID(ctx context.Context, id uuid.UUID) (SessionRecord, error)
	RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Options struct {
	Secret     []byte
	SessionTTL time.Duration
	BcryptCost int
	Now        func() time.Time
}

type Service struct {
	store  CredentialStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	events broadcaster
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(store CredentialStore, opts Options) (*Service, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("identity: signing secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:  store,
		secret: opts.Secret,
		ttl:    opts.SessionTTL,
		cost:   opts.BcryptCost,
		now:    opts.Now,
	}, nil
}

// SignUp creates an account. It does not sign the user in.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, errors.New("email required")
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, err
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	acct := Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return User{}, err
	}

	log.Printf("Account created: user=%s email=%s", acct.ID, acct.Email)
	return User{ID: acct.ID, Email: acct.Email}, nil
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	acct, err := s.store.AccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !checkPassword(acct.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	rec := SessionRecord{
		ID:        uuid.New(),
		UserID:    acct.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, rec); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.sign(rec, acct.Email, now)
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		ID:        rec.ID,
		User:      User{ID: acct.ID, Email: acct.Email},
		Token:     token,
		ExpiresAt: rec.ExpiresAt,
	}
	s.events.publish(Event{Type: SignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session named by token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.CurrentUser(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.RevokeSession(ctx, sess.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.events.publish(Event{Type: SignedOut, Session: sess})
	return nil
}

// CurrentUser resolves a bearer token to its live session.
func (s *Service) CurrentUser(ctx context.Context, token string) (Session, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return Session{}, ErrNoSession
	}

	sid, err := uuid.Parse(c.ID)
	if err != nil {
		return Session{}, ErrNoSession
	}
	uid, err := uuid.Parse(c.Subject)
	if err != nil {
		return Session{}, ErrNoSession
	}

	rec, err := s.store.SessionByID(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	if rec.RevokedAt != nil || !s.now().Before(rec.ExpiresAt) || rec.UserID != uid {
		return Session{}, ErrNoSession
	}

	return Session{
		ID:        rec.ID,
		User:      User{ID: uid, Email: c.Email},
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// OnAuthChange registers fn for sign-in and sign-out events. The returned
// func unsubscribes.
func (s *Service) OnAuthChange(fn func(Event)) func() {
	return s.events.subscribe(fn)
}

func (s *Service) sign(rec SessionRecord, email string, now time.Time) (string, error) {
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.ID.String(),
			Subject:   rec.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
