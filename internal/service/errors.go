package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/parts_market/internal/repo"
)

var (
	ErrValidation  = errors.New("validation")   // 400
	ErrAuth        = errors.New("unauthorized") // 401
	ErrNotFound    = errors.New("not found")    // 404
	ErrStock       = errors.New("out of stock") // 409
	ErrConflict    = errors.New("conflict")     // 409
	ErrTransition  = errors.New("invalid status transition")
	ErrPersistence = errors.New("persistence") // 503
	ErrConsistency = errors.New("consistency") // 202, order stored but cart not cleared

	ErrForbidden = fmt.Errorf("%w: forbidden", ErrAuth) // 403
)

type StockError struct {
	PartID    string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("part %s: requested %d, available %d", e.PartID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrStock
}

// storeErr translates store failures into service errors.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repo.ErrStaleVersion):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: write timed out: %w", op, ErrPersistence)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, ErrPersistence)
	}
}
