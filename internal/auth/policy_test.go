package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"mediloop/internal/auth"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last+tag@example.co.uk"}
	invalid := []string{"", "plain", "a@b", " a@b.com", "Ada <a@b.com>", "a@@b.com"}

	for _, e := range valid {
		assert.True(t, auth.ValidateEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, auth.ValidateEmail(e), e)
	}

	local := strings.Repeat("a", auth.MaxEmailLength-len("@b.com"))
	assert.True(t, auth.ValidateEmail(local+"@b.com"), "exactly the column width")
	assert.False(t, auth.ValidateEmail(local+"a@b.com"))
}

func TestTooLong(t *testing.T) {
	assert.False(t, auth.TooLong(strings.Repeat("é", 50), auth.MaxNameLength), "counts characters, not bytes")
	assert.True(t, auth.TooLong(strings.Repeat("a", 51), auth.MaxNameLength))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, auth.ValidatePassword("Abcdef12"))
	assert.ErrorIs(t, auth.ValidatePassword("alllowercase1"), auth.ErrPasswordWeak)
	assert.ErrorIs(t, auth.ValidatePassword("ALLUPPER12"), auth.ErrPasswordWeak)
	assert.ErrorIs(t, auth.ValidatePassword("NoDigitsHere"), auth.ErrPasswordWeak)
	assert.ErrorIs(t, auth.ValidatePassword("Ab1"), auth.ErrPasswordWeak)
	assert.ErrorIs(t, auth.ValidatePassword("Aa1"+strings.Repeat("x", 70)), auth.ErrPasswordTooLong)
}

func TestCheckPasswordLength(t *testing.T) {
	assert.NoError(t, auth.CheckPasswordLength("alllowercase1"))
	assert.ErrorIs(t, auth.CheckPasswordLength("short"), auth.ErrPasswordTooShort)
}

func TestBcryptHasher(t *testing.T) {
	h := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("Abcdef12")
	assert.NoError(t, err)
	assert.True(t, h.Compare(hash, "Abcdef12"))
	assert.False(t, h.Compare(hash, "abcdef12"))
	assert.False(t, h.Compare("", "Abcdef12"))

	assert.Equal(t, 12, auth.NewBcryptHasher(99).Cost)
	assert.Equal(t, 10, auth.NewBcryptHasher(10).Cost)
}

func TestTokens(t *testing.T) {
	a, err := auth.NewToken()
	assert.NoError(t, err)
	b, err := auth.NewToken()
	assert.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, auth.HashString(a), auth.HashString(a))
	assert.Len(t, auth.HashString(a), 64)
	assert.NotEqual(t, a, auth.HashString(a))
}

func TestParseUserType(t *testing.T) {
	got, ok := auth.ParseUserType(" Recipient ")
	assert.True(t, ok)
	assert.Equal(t, auth.UserTypeRecipient, got)

	_, ok = auth.ParseUserType("admin")
	assert.False(t, ok)
}
