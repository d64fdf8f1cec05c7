// Package cachetest runs a cache against an in-process Redis.
package cachetest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/sociallink/backend/internal/cache"
)

// New returns a cache backed by a miniredis server that is stopped when the
// test ends
func New(t testing.TB) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewWithClient(client), mr
}
