package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	if !IsUniqueViolation(dup) {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert user: %w", dup)) {
		t.Fatal("expected wrapped unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation reported as unique")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error reported as unique")
	}
}
