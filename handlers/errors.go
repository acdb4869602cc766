package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"attendance-backend/attendance"
	"attendance-backend/identity"
)

// respondAttendanceError maps tracker errors to a status and a message the
// client can show as-is.
func respondAttendanceError(c *gin.Context, err error) {
	var stateErr *attendance.StateError
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, attendance.ErrNotSignedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, attendance.ErrBusy):
		status = http.StatusConflict
	case errors.As(err, &stateErr):
		status = http.StatusConflict
		if stateErr.Status == attendance.StatusCheckedIn {
			message = "You are already checked in."
		} else {
			message = "You have already checked out for today."
		}
	case errors.Is(err, attendance.ErrNotConfigured):
		status = http.StatusServiceUnavailable
		message = "Application settings not loaded. Please try again later."
	case errors.Is(err, attendance.ErrOutOfBounds):
		status = http.StatusForbidden
	case errors.Is(err, attendance.ErrLocationUnavailable):
		status = http.StatusUnprocessableEntity
		message = "Error getting location: " + strings.TrimPrefix(err.Error(), attendance.ErrLocationUnavailable.Error()+": ")
	case errors.Is(err, attendance.ErrNoOpenRecord):
		status = http.StatusNotFound
		message = "No active check-in found."
	case errors.Is(err, attendance.ErrDuplicateOpenRecord):
		status = http.StatusConflict
		message = "An open check-in already exists for this account."
	default:
		log.Printf("Attendance store error: %v", err)
		message = "Failed to record attendance."
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondIdentityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Email already registered"})
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
	case errors.Is(err, identity.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not signed in"})
	default:
		log.Printf("Identity provider error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Authentication service error"})
	}
}

// bindingMessage turns validator errors into one readable sentence.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "password":
			pw, _ := fe.Value().(string)
			if perr := identity.ValidatePassword(pw); perr != nil {
				msgs = append(msgs, perr.Error())
			} else {
				msgs = append(msgs, "password is too weak")
			}
		case "latitude", "longitude":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid %s", field, fe.Tag()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return strings.Join(msgs, "; ")
}
