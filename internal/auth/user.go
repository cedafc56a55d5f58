package auth

import (
	"strings"
	"time"
)

type UserType string

const (
	UserTypeDonor     UserType = "donor"
	UserTypeRecipient UserType = "recipient"
	UserTypeBoth      UserType = "both"
)

func ParseUserType(s string) (UserType, bool) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeDonor:
		return UserTypeDonor, true
	case UserTypeRecipient:
		return UserTypeRecipient, true
	case UserTypeBoth:
		return UserTypeBoth, true
	}
	return "", false
}

type User struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	PasswordHash        string
	Phone               *string
	Address             *string
	UserType            UserType
	IsActive            bool
	EmailVerified       bool
	VerificationToken   *string
	VerificationExpires *time.Time
	ResetToken          *string
	ResetTokenExpires   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NewUser carries the columns written on registration. Token fields hold digests.
type NewUser struct {
	FirstName           string
	LastName            string
	Email               string
	PasswordHash        string
	Phone               *string
	Address             *string
	UserType            UserType
	EmailVerified       bool
	VerificationToken   *string
	VerificationExpires *time.Time
}
