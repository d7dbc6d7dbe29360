package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockhost/mockhost/pkg/mock"
)

// --- Helper ---

func newEndpoint(id, method, path string) *mock.Endpoint {
	return &mock.Endpoint{
		ID:     id,
		Method: method,
		Path:   path,
		Variants: []mock.Variant{
			{Name: "ok", IsDefault: true, Body: mock.String(id)},
		},
	}
}

// storeFactories lists the implementations the shared contract tests run
// against. Redis joins when MOCKHOST_TEST_REDIS_ADDR is set.
func storeFactories(t *testing.T) map[string]func(t *testing.T) EndpointStore {
	factories := map[string]func(t *testing.T) EndpointStore{
		"memory": func(*testing.T) EndpointStore { return NewInMemoryStore() },
	}

	addr := os.Getenv("MOCKHOST_TEST_REDIS_ADDR")
	if addr == "" {
		return factories
	}
	factories["redis"] = func(t *testing.T) EndpointStore {
		client := redis.NewClient(&redis.Options{Addr: addr})
		prefix := fmt.Sprintf("mockhost-test:%s:", t.Name())
		s := NewRedisStoreWithClient(client, prefix)
		ctx := context.Background()
		require.NoError(t, s.Clear(ctx))
		t.Cleanup(func() {
			_ = client.Del(ctx, prefix+"endpoints", prefix+"order", prefix+"revision").Err()
			_ = s.Close()
		})
		return s
	}
	return factories
}

func TestEndpointStore_Contract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("set and get", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ep := newEndpoint("a", "get", "/users/:id")
				require.NoError(t, s.Set(ctx, ep))

				got, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, "GET", got.Method, "method normalized")
				assert.Equal(t, "/users/:id", got.Path)
				assert.False(t, got.CreatedAt.IsZero())
				assert.False(t, got.UpdatedAt.IsZero())
				assert.Equal(t, mock.BodyTypeStatic, got.Variants[0].BodyType)
			})

			t.Run("assigns id", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ep := newEndpoint("", "GET", "/x")
				require.NoError(t, s.Set(ctx, ep))
				assert.NotEmpty(t, ep.ID)

				_, err := s.Get(ctx, ep.ID)
				require.NoError(t, err)
			})

			t.Run("get missing", func(t *testing.T) {
				s := factory(t)
				_, err := s.Get(context.Background(), "nope")
				assert.True(t, errors.Is(err, ErrNotFound))
			})

			t.Run("rejects invalid", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				err := s.Set(ctx, newEndpoint("bad", "GET", "/a/:id/:id"))
				require.Error(t, err)

				bad := newEndpoint("slow", "GET", "/slow")
				bad.Variants[0].Delay = mock.MaxDelayMs + 1
				require.Error(t, s.Set(ctx, bad))

				n, err := s.Count(ctx)
				require.NoError(t, err)
				assert.Zero(t, n)
			})

			t.Run("declaration order", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				for _, id := range []string{"c", "a", "b"} {
					require.NoError(t, s.Set(ctx, newEndpoint(id, "GET", "/"+id)))
				}

				// Replacing keeps the original position.
				updated := newEndpoint("c", "GET", "/c2")
				require.NoError(t, s.Set(ctx, updated))

				list, err := s.List(ctx)
				require.NoError(t, err)
				require.Len(t, list, 3)
				assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
				assert.Equal(t, "/c2", list[0].Path)
			})

			t.Run("delete", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, newEndpoint("a", "GET", "/a")))
				require.NoError(t, s.Set(ctx, newEndpoint("b", "GET", "/b")))
				require.NoError(t, s.Delete(ctx, "a"))
				assert.True(t, errors.Is(s.Delete(ctx, "a"), ErrNotFound))

				list, err := s.List(ctx)
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "b", list[0].ID)
			})

			t.Run("revision advances on writes", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				r0, err := s.Revision(ctx)
				require.NoError(t, err)

				require.NoError(t, s.Set(ctx, newEndpoint("a", "GET", "/a")))
				r1, _ := s.Revision(ctx)
				assert.Greater(t, r1, r0)

				_, _ = s.List(ctx)
				r1b, _ := s.Revision(ctx)
				assert.Equal(t, r1, r1b, "reads do not advance the revision")

				require.NoError(t, s.Delete(ctx, "a"))
				r2, _ := s.Revision(ctx)
				assert.Greater(t, r2, r1)

				require.NoError(t, s.Clear(ctx))
				r3, _ := s.Revision(ctx)
				assert.Greater(t, r3, r2)
			})

			t.Run("returns copies", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				ep := newEndpoint("a", "GET", "/a")
				require.NoError(t, s.Set(ctx, ep))
				ep.Path = "/changed"

				got, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, "/a", got.Path)

				got.Path = "/mutated"
				again, _ := s.Get(ctx, "a")
				assert.Equal(t, "/a", again.Path)
			})

			t.Run("clear", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, newEndpoint("a", "GET", "/a")))
				require.NoError(t, s.Clear(ctx))

				n, err := s.Count(ctx)
				require.NoError(t, err)
				assert.Zero(t, n)

				list, err := s.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, list)
			})
		})
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, newEndpoint(fmt.Sprintf("ep-%d", i), "GET", fmt.Sprintf("/e/%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx)
			_, _ = s.Revision(ctx)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	rev, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), rev)
}

func TestInMemoryStore_KeepsCreatedAt(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, newEndpoint("a", "GET", "/a")))
	first, _ := s.Get(ctx, "a")

	require.NoError(t, s.Set(ctx, newEndpoint("a", "GET", "/b")))
	second, _ := s.Get(ctx, "a")

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestProjectStore(t *testing.T) {
	base := NewInMemoryStore()
	ctx := context.Background()

	alpha := NewProjectStore(base, "alpha")
	beta := NewProjectStore(base, "beta")

	require.NoError(t, alpha.Set(ctx, newEndpoint("a1", "GET", "/a1")))
	require.NoError(t, beta.Set(ctx, newEndpoint("b1", "GET", "/b1")))
	require.NoError(t, alpha.Set(ctx, newEndpoint("a2", "GET", "/a2")))

	list, err := alpha.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.Equal(t, "a2", list[1].ID)
	assert.Equal(t, "alpha", list[0].Project)

	_, err = alpha.Get(ctx, "b1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(alpha.Delete(ctx, "b1"), ErrNotFound))

	err = alpha.Set(ctx, newEndpoint("b1", "GET", "/stolen"))
	require.Error(t, err)

	n, err := beta.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, alpha.Clear(ctx))
	total, _ := base.Count(ctx)
	assert.Equal(t, 1, total, "clear only removes the project's endpoints")

	assert.Equal(t, "alpha", alpha.Project())
	assert.Same(t, base, alpha.Underlying())
}
