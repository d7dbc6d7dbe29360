package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mockhost/mockhost/internal/matching"
	"github.com/mockhost/mockhost/pkg/mock"
)

// ErrNotFound is returned when an endpoint ID is not stored.
var ErrNotFound = errors.New("endpoint not found")

// EndpointStore defines the interface for storing and retrieving endpoints.
// Implementations return copies: callers may modify what they receive.
type EndpointStore interface {
	// Get retrieves an endpoint by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*mock.Endpoint, error)

	// Set validates and stores an endpoint. An empty ID is assigned a UUID.
	// Replacing an endpoint keeps its declaration position.
	Set(ctx context.Context, ep *mock.Endpoint) error

	// Delete removes an endpoint by ID, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns all endpoints in declaration order.
	List(ctx context.Context) ([]*mock.Endpoint, error)

	// Count returns the number of stored endpoints.
	Count(ctx context.Context) (int, error)

	// Clear removes all endpoints.
	Clear(ctx context.Context) error

	// Revision changes whenever the stored set changes.
	Revision(ctx context.Context) (uint64, error)
}

// prepare validates ep and returns the normalized copy to persist.
func prepare(ep *mock.Endpoint, existing *mock.Endpoint, now time.Time) (*mock.Endpoint, error) {
	if ep == nil {
		return nil, &mock.ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}

	own := ep.Clone()
	own.ApplyDefaults()
	if own.ID == "" {
		own.ID = uuid.NewString()
	}
	if _, err := matching.CompileEndpoint(own); err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", own, err)
	}

	if existing != nil && !existing.CreatedAt.IsZero() {
		own.CreatedAt = existing.CreatedAt
	} else if own.CreatedAt.IsZero() {
		own.CreatedAt = now
	}
	own.UpdatedAt = now
	return own, nil
}
