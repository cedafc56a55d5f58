package auth

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// Column widths of the users table.
const (
	MaxNameLength  = 50
	MaxEmailLength = 100
	MaxPhoneLength = 20
)

var (
	ErrPasswordTooShort = errors.New("Password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 bytes long")
	ErrPasswordWeak     = errors.New("Password must be at least 8 characters with uppercase, lowercase, and number")
)

// TooLong counts characters, matching VARCHAR(n).
func TooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

func ValidateEmail(email string) bool {
	if email == "" || strings.TrimSpace(email) != email || TooLong(email, MaxEmailLength) {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// CheckPasswordLength is the registration form's length-only rule.
func CheckPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidatePassword is the policy every new or reset password must pass.
func ValidatePassword(password string) error {
	if err := CheckPasswordLength(password); err != nil {
		return ErrPasswordWeak
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrPasswordWeak
	}
	return nil
}
