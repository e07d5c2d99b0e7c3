// Package storage holds the durable backends for the medicine catalog. Every
// backend rewrites the whole catalog on Save; none of them append.
package storage

import (
	"context"
	"errors"

	"meddispense/m/domain"
)

// ErrNotExist is returned by Load when no catalog has ever been saved. A saved
// empty catalog loads as an empty slice instead.
var ErrNotExist = errors.New("catalog has never been saved")

// Gateway loads the catalog at startup and writes it back after each mutation.
type Gateway interface {
	// Load returns the stored catalog, or ErrNotExist when nothing has been
	// stored yet.
	Load(ctx context.Context) ([]domain.Medicine, error)
	Save(ctx context.Context, catalog []domain.Medicine) error
}
