package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mockhost/mockhost/pkg/mock"
)

// InMemoryStore is a thread-safe in-memory implementation of EndpointStore.
type InMemoryStore struct {
	mu        sync.RWMutex
	endpoints map[string]*mock.Endpoint
	order     []string
	revision  uint64
	now       func() time.Time
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		endpoints: make(map[string]*mock.Endpoint),
		now:       time.Now,
	}
}

// Get retrieves an endpoint by ID.
func (s *InMemoryStore) Get(_ context.Context, id string) (*mock.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ep.Clone(), nil
}

// Set stores or replaces an endpoint.
func (s *InMemoryStore) Set(_ context.Context, ep *mock.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *mock.Endpoint
	if ep != nil && ep.ID != "" {
		existing = s.endpoints[ep.ID]
	}

	own, err := prepare(ep, existing, s.now())
	if err != nil {
		return err
	}

	if _, ok := s.endpoints[own.ID]; !ok {
		s.order = append(s.order, own.ID)
	}
	s.endpoints[own.ID] = own
	s.revision++

	// Report the assigned ID back to the caller.
	ep.ID = own.ID
	return nil
}

// Delete removes an endpoint by ID.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return ErrNotFound
	}
	delete(s.endpoints, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	s.revision++
	return nil
}

// List returns all endpoints in declaration order.
func (s *InMemoryStore) List(_ context.Context) ([]*mock.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*mock.Endpoint, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.endpoints[id].Clone())
	}
	return result, nil
}

// Count returns the number of stored endpoints.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.endpoints), nil
}

// Clear removes all endpoints.
func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = make(map[string]*mock.Endpoint)
	s.order = nil
	s.revision++
	return nil
}

// Revision returns the write counter.
func (s *InMemoryStore) Revision(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}
