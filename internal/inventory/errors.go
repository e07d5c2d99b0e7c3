package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidNewItem    = errors.New("missing data for new item")
	// ErrEmpty is returned by queue reads when nothing is waiting. HTTP
	// handlers answer it with 204, not an error body.
	ErrEmpty       = errors.New("queue is empty")
	ErrPersistence = errors.New("catalog not persisted")
)

// NotFoundError names the first id in a request that is absent from the catalog.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InsufficientStockError names the first id whose requested quantity exceeds its stock.
type InsufficientStockError struct {
	ID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s", e.ID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError reports a failed catalog write. The in-memory change that
// triggered the write has already been applied and is not rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist catalog after %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
