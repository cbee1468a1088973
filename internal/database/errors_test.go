package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/chipzone/server/internal/zones"
	"github.com/lib/pq"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"bad connection", driver.ErrBadConn, true},
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"too many connections", &pq.Error{Code: "53300"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"syntax error", &pq.Error{Code: "42601"}, false},
		{"no rows", sql.ErrNoRows, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("op", tt.err)
			if !errors.Is(err, tt.err) && !errors.As(err, new(*pq.Error)) {
				t.Errorf("wrapped error lost its cause: %v", err)
			}
			if got := errors.Is(err, zones.ErrUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(ErrUnavailable) = %v, want %v", got, tt.unavailable)
			}
		})
	}

	if wrapError("op", nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("23503 is a foreign key violation")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Error("plain errors are not unique violations")
	}
}
