package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-backend/identity"
	"attendance-backend/store"
)

const (
	sessionKey = "session"
	tokenKey   = "token"
)

// AuthRequired resolves the bearer token to a live session.
func AuthRequired(idp IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
			return
		}
		tok := strings.TrimPrefix(h, "Bearer ")

		sess, err := idp.CurrentUser(c.Request.Context(), tok)
		if err != nil {
			if errors.Is(err, identity.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired session"})
				return
			}
			log.Printf("Error resolving session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Authentication service error"})
			return
		}

		c.Set(sessionKey, sess)
		c.Set(tokenKey, tok)
		c.Next()
	}
}

// RequireRole checks the role stored on the caller's users row.
func RequireRole(users UserStore, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		u, err := users.GetUser(c.Request.Context(), sess.User.ID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": role + " only"})
				return
			}
			log.Printf("Error loading profile for %s: %v", sess.User.ID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}
		if u.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": role + " only"})
			return
		}
		c.Next()
	}
}

// RequestTimeout bounds every collaborator call made while serving a request.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func currentSession(c *gin.Context) identity.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(identity.Session)
	return sess
}
