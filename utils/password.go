package utils

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the signup form requirement.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password must contain at least 8 characters")
	ErrPasswordNumeric  = errors.New("password cannot be entirely numeric")
	ErrPasswordLikeUser = errors.New("password is too similar to the username")
)

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword rejects short, all-digit, or username-like passwords.
func ValidatePassword(password, username string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}
	if u := strings.ToLower(strings.TrimSpace(username)); u != "" {
		p := strings.ToLower(password)
		if strings.Contains(p, u) || strings.Contains(u, p) {
			return ErrPasswordLikeUser
		}
	}
	return nil
}
