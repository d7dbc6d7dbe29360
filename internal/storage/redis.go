package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mockhost/mockhost/pkg/mock"
)

// DefaultRedisPrefix namespaces the keys a RedisStore writes.
const DefaultRedisPrefix = "mockhost:"

// maxWatchRetries bounds optimistic-lock retries in Set and Delete.
const maxWatchRetries = 10

// RedisStore keeps endpoints in Redis so several instances serve the same
// configuration. Layout under the prefix:
//
//	endpoints  hash  id -> endpoint JSON
//	order      list  ids in declaration order
//	revision   int   incremented on every write
type RedisStore struct {
	client      redis.UniversalClient
	endpointKey string
	orderKey    string
	revisionKey string
	now         func() time.Time
}

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreWithClient(client, opts.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client:      client,
		endpointKey: prefix + "endpoints",
		orderKey:    prefix + "order",
		revisionKey: prefix + "revision",
		now:         time.Now,
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get retrieves an endpoint by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*mock.Endpoint, error) {
	data, err := s.client.HGet(ctx, s.endpointKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return decodeEndpoint(id, data)
}

// Set stores or replaces an endpoint.
func (s *RedisStore) Set(ctx context.Context, ep *mock.Endpoint) error {
	if ep == nil {
		_, err := prepare(nil, nil, s.now())
		return err
	}

	var stored *mock.Endpoint
	txf := func(tx *redis.Tx) error {
		var existing *mock.Endpoint
		isNew := true
		if ep.ID != "" {
			data, err := tx.HGet(ctx, s.endpointKey, ep.ID).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				isNew = false
				if existing, err = decodeEndpoint(ep.ID, data); err != nil {
					return err
				}
			}
		}

		own, err := prepare(ep, existing, s.now())
		if err != nil {
			return err
		}
		data, err := json.Marshal(own)
		if err != nil {
			return fmt.Errorf("encoding endpoint %s: %w", own.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.endpointKey, own.ID, data)
			if isNew {
				pipe.RPush(ctx, s.orderKey, own.ID)
			}
			pipe.Incr(ctx, s.revisionKey)
			return nil
		})
		if err == nil {
			stored = own
		}
		return err
	}

	if err := s.watch(ctx, txf); err != nil {
		return err
	}
	ep.ID = stored.ID
	return nil
}

// Delete removes an endpoint by ID.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.endpointKey, id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.endpointKey, id)
			pipe.LRem(ctx, s.orderKey, 0, id)
			pipe.Incr(ctx, s.revisionKey)
			return nil
		})
		return err
	}
	return s.watch(ctx, txf)
}

func (s *RedisStore) watch(ctx context.Context, txf func(*redis.Tx) error) error {
	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, s.endpointKey, s.orderKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis: too much contention on %s", s.endpointKey)
}

// List returns all endpoints in declaration order.
func (s *RedisStore) List(ctx context.Context) ([]*mock.Endpoint, error) {
	ids, err := s.client.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	if len(ids) == 0 {
		return []*mock.Endpoint{}, nil
	}

	values, err := s.client.HMGet(ctx, s.endpointKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	result := make([]*mock.Endpoint, 0, len(ids))
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			// Deleted between LRANGE and HMGET.
			continue
		}
		ep, err := decodeEndpoint(ids[i], data)
		if err != nil {
			return nil, err
		}
		result = append(result, ep)
	}
	return result, nil
}

// Count returns the number of stored endpoints.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.endpointKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return int(n), nil
}

// Clear removes all endpoints.
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.endpointKey, s.orderKey)
		pipe.Incr(ctx, s.revisionKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Revision returns the shared write counter.
func (s *RedisStore) Revision(ctx context.Context) (uint64, error) {
	v, err := s.client.Get(ctx, s.revisionKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis revision: %w", err)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis revision %q: %w", v, err)
	}
	return n, nil
}

func decodeEndpoint(id, data string) (*mock.Endpoint, error) {
	var ep mock.Endpoint
	if err := json.Unmarshal([]byte(data), &ep); err != nil {
		return nil, fmt.Errorf("decoding endpoint %s: %w", id, err)
	}
	return &ep, nil
}
