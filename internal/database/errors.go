package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// Error categories. Match them with errors.Is on anything a driver returns.
var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrValidation  = errors.New("validation failed")
	ErrQuery       = errors.New("query failed")
	ErrStorage     = errors.New("storage operation failed")
)

// StoreError is returned by every DatabaseDriver method.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrap converts a backend error into a StoreError. Connection-level faults
// become ErrUnavailable regardless of fallback; errors already carrying a
// category keep it.
func wrap(op string, fallback error, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	category := fallback
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrQuery), errors.Is(err, ErrStorage):
		return &StoreError{Op: op, Err: err}
	case isConnectionError(err):
		category = ErrUnavailable
	}
	return &StoreError{Op: op, Err: fmt.Errorf("%w: %w", category, err)}
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
