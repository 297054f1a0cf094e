package users

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the storage contract for users. Implementations must be safe
// for concurrent use and return only *Error values on failure.
type Repository interface {
	// Get returns the user with the given id or ErrInvalidID.
	Get(ctx context.Context, id uuid.UUID) (User, error)
	// Create stores a copy of user with CreatedAt set to now and UpdatedAt cleared.
	// It fails with ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, user User) (User, error)
	// Update replaces the stored user, keeping its CreatedAt and setting UpdatedAt to now.
	// It fails with ErrDoesNotExist if the id is unknown.
	Update(ctx context.Context, user User) (User, error)
	// Delete removes the user if present. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}
