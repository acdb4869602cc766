package identity

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	lowerRe   = regexp.MustCompile(`[a-z]`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#\$%\^&\*\(\)_\+\-=\[\]{};:'"\\|,.<>\/\?` + "`" + `~]`)
)

// ValidatePassword enforces:
// - min 8 chars
// - at least 1 lowercase
// - at least 1 uppercase
// - at least 1 digit
// - at least 1 special character
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !lowerRe.MatchString(pw) {
		return errors.New("password must contain a lowercase letter (a-z)")
	}
	if !upperRe.MatchString(pw) {
		return errors.New("password must contain an uppercase letter (A-Z)")
	}
	if !digitRe.MatchString(pw) {
		return errors.New("password must contain a digit (0-9)")
	}
	if !specialRe.MatchString(pw) {
		return errors.New("password must contain a special character (e.g. !@#)")
	}
	return nil
}

func hashPassword(pw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
