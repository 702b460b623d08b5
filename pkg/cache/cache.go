// Package cache stores normalized remote search responses in Redis so that
// repeated queries do not hit the directory API.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "suvidha:search:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedis connects to the Redis server at addr. The connection is lazy; use
// Ping to check it.
func NewRedis(addr string, db int, ttl time.Duration) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	}), ttl)
}

func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: log.ForService("cache"),
	}
}

// Key returns the cache key for a search query: the query exactly as it is
// sent to the API, surrounding whitespace aside. The API decides whether
// "Café" and "cafe" match the same records, so they are cached apart.
func Key(query string) string {
	return keyPrefix + strings.TrimSpace(query)
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, query string) (search.Response, error) {
	data, err := r.client.Get(ctx, Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return search.Response{}, ErrMiss
	}
	if err != nil {
		return search.Response{}, fmt.Errorf("reading cached response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var resp search.Response
	if err := dec.Decode(&resp); err != nil {
		return search.Response{}, fmt.Errorf("decoding cached response: %w", err)
	}
	r.logger.Debugf("hit for %q", query)
	return search.NewResponse(resp.Results), nil
}

func (r *Redis) Set(ctx context.Context, query string, resp search.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := r.client.Set(ctx, Key(query), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached response: %w", err)
	}
	return nil
}

// Purge drops every cached search response.
func (r *Redis) Purge(ctx context.Context) (int, error) {
	var cursor uint64
	purged := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return purged, fmt.Errorf("scanning cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return purged, fmt.Errorf("deleting cache keys: %w", err)
			}
			purged += int(n)
		}
		if next == 0 {
			return purged, nil
		}
		cursor = next
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
