package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/noah-isme/music-school-api/pkg/config"
)

// NewMemory returns an in-process cache with janitor cleanup.
func NewMemory(cfg config.CacheConfig) *gocache.Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}
	return gocache.New(ttl, cleanup)
}
