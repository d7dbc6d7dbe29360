// Package storage provides endpoint storage abstractions and implementations.
//
// Key types:
//
//   - EndpointStore: contract for endpoint storage backends
//   - InMemoryStore: thread-safe in-memory implementation
//   - RedisStore: shared storage in Redis for multiple mockhost instances
//   - ProjectStore: wrapper that scopes an underlying store to one project
//
// Every store keeps endpoints in declaration order (the order they were first
// stored) and exposes a revision counter that changes on every write. The
// request path compiles a snapshot per revision, so edits are picked up on
// the next request without any other invalidation.
//
// Endpoints are validated and compiled before they are stored; a store never
// holds a configuration the matcher would reject.
package storage
