package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/chipzone/server/internal/zones"
	"github.com/lib/pq"
)

var (
	ErrPointNotFound  = errors.New("point not found")
	ErrAnimalNotFound = errors.New("animal not found")
)

const uniqueViolation pq.ErrorCode = "23505"

// wrapError annotates err with op. Failures that may succeed on retry are
// marked with zones.ErrUnavailable.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, zones.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"53", // insufficient resources
			"57": // operator intervention
			return true
		}
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01": // deadlock_detected
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
