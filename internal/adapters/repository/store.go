// Package repository defines the result store interface and errors.
//
// The store is append-only from the router's point of view: classified
// results are inserted and never updated or deleted here. Area rows are
// seeded through the admin API and read back to resolve capacities when a
// frame omits one.
package repository

import (
	"context"

	"github.com/ndiyar/vigil/internal/domain/model"
)

// Record is a persisted classified result.
type Record struct {
	ID        string
	Subject   model.Subject
	Count     int
	Status    string
	CreatedAt string
}

// Store provides write-through persistence of classified results and the
// capacity lookup source for areas.
type Store interface {
	// InsertResult appends a classified result and returns the generated
	// record identifier. Transient failures are reported as ErrUnavailable;
	// the router treats them as non-fatal.
	InsertResult(ctx context.Context, res model.ClassifiedResult) (string, error)

	// Capacity returns the configured capacity for an area.
	// Returns ErrNotFound if the area is unknown.
	Capacity(ctx context.Context, areaID string) (int, error)

	// Count returns the number of persisted results.
	Count(ctx context.Context) int

	// SeedArea registers or updates an area's capacity.
	SeedArea(ctx context.Context, areaID string, capacity int) error

	// Close releases the underlying storage.
	Close() error
}
