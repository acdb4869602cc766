package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"attendance-backend/identity"
	"attendance-backend/models"
	"attendance-backend/store"
)

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (identity.User, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (identity.Session, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

type AuthHandler struct {
	idp    IdentityProvider
	users  UserStore
	admins map[string]bool
}

// NewAuthHandler builds the auth endpoints. Accounts signing up with one of
// adminEmails get the admin role.
func NewAuthHandler(idp IdentityProvider, users UserStore, adminEmails []string) *AuthHandler {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &AuthHandler{idp: idp, users: users, admins: admins}
}

// SignUp creates the account and then the users row. The two writes are not
// transactional: if the second fails the account stays and the client is
// told the sign-up only partly succeeded.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": bindingMessage(err)})
		return
	}

	user, err := h.idp.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			respondIdentityError(c, err)
			return
		}
		if identity.ValidatePassword(req.Password) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		respondIdentityError(c, err)
		return
	}

	profile := models.User{ID: user.ID, Email: user.Email, Role: models.RoleEmployee}
	if h.admins[user.Email] {
		profile.Role = models.RoleAdmin
	}
	if err := h.users.CreateUser(c.Request.Context(), profile); err != nil {
		log.Printf("Warning: account %s created but profile insert failed: %v", user.ID, err)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"partial": true,
			"message": "Account created, but your employee profile could not be saved. Please contact an administrator.",
			"user":    user,
		})
		return
	}

	log.Printf("Signed up: user=%s", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Sign up successful! You can now sign in.",
		"user":    profile,
	})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": bindingMessage(err)})
		return
	}

	sess, err := h.idp.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondIdentityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": sess.Token,
		"token_type":   "bearer",
		"expires_at":   sess.ExpiresAt,
		"user":         sess.User,
	})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.idp.SignOut(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		respondIdentityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Signed out"})
}

// Session returns the caller's identity and, if it exists, their profile.
func (h *AuthHandler) Session(c *gin.Context) {
	sess := currentSession(c)

	var profile *models.User
	u, err := h.users.GetUser(c.Request.Context(), sess.User.ID)
	switch {
	case err == nil:
		profile = &u
	case errors.Is(err, store.ErrUserNotFound):
	default:
		log.Printf("Error loading profile for %s: %v", sess.User.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
		"profile":    profile,
	})
}
