package handlers

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"attendance-backend/identity"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding rules used by request models.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return identity.ValidatePassword(fl.Field().String()) == nil
		})
	})
	return err
}
