package storage

import (
	"context"
	"errors"

	"github.com/mockhost/mockhost/pkg/mock"
)

// ProjectStore wraps an EndpointStore and filters by project.
// This provides a live view of the underlying store scoped to one project.
// All reads are filtered, writes automatically set the project.
type ProjectStore struct {
	underlying EndpointStore
	project    string
}

// NewProjectStore creates a new project-scoped store wrapper.
func NewProjectStore(store EndpointStore, project string) *ProjectStore {
	return &ProjectStore{
		underlying: store,
		project:    project,
	}
}

// Get retrieves an endpoint by ID, only if it belongs to this project.
func (p *ProjectStore) Get(ctx context.Context, id string) (*mock.Endpoint, error) {
	ep, err := p.underlying.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep.Project != p.project {
		return nil, ErrNotFound
	}
	return ep, nil
}

// Set stores an endpoint, automatically setting the project.
func (p *ProjectStore) Set(ctx context.Context, ep *mock.Endpoint) error {
	if ep != nil && ep.ID != "" {
		// Refuse to take over an endpoint owned by another project.
		existing, err := p.underlying.Get(ctx, ep.ID)
		if err == nil && existing.Project != p.project {
			return &mock.ValidationError{Field: "id", Message: "endpoint belongs to another project"}
		}
	}
	if ep != nil {
		ep.Project = p.project
	}
	return p.underlying.Set(ctx, ep)
}

// Delete removes an endpoint, only if it belongs to this project.
func (p *ProjectStore) Delete(ctx context.Context, id string) error {
	if _, err := p.Get(ctx, id); err != nil {
		return err
	}
	return p.underlying.Delete(ctx, id)
}

// List returns the project's endpoints in declaration order.
func (p *ProjectStore) List(ctx context.Context) ([]*mock.Endpoint, error) {
	all, err := p.underlying.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*mock.Endpoint, 0, len(all))
	for _, ep := range all {
		if ep.Project == p.project {
			result = append(result, ep)
		}
	}
	return result, nil
}

// Count returns the number of endpoints in this project.
func (p *ProjectStore) Count(ctx context.Context) (int, error) {
	eps, err := p.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(eps), nil
}

// Clear removes only this project's endpoints.
func (p *ProjectStore) Clear(ctx context.Context) error {
	eps, err := p.List(ctx)
	if err != nil {
		return err
	}
	for _, ep := range eps {
		if err := p.underlying.Delete(ctx, ep.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// Revision returns the underlying store's revision. Writes to other projects
// also advance it.
func (p *ProjectStore) Revision(ctx context.Context) (uint64, error) {
	return p.underlying.Revision(ctx)
}

// Project returns the project this store is scoped to.
func (p *ProjectStore) Project() string {
	return p.project
}

// Underlying returns the wrapped store.
func (p *ProjectStore) Underlying() EndpointStore {
	return p.underlying
}
