package resolver

import (
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

//NewTestingCache creates a resolution cache with an injected forward
//lookup so dependent packages can test matching without touching the
//network. Reverse lookups resolve to nothing.
func NewTestingCache(ttl time.Duration, lookup func(domain string) ([]net.IP, error)) *Cache {
	cache := NewCache(ttl, 250*time.Millisecond, log.New())
	cache.lookup = lookup
	cache.reverse = func(ctx context.Context, ip string) ([]string, error) {
		return nil, nil
	}
	return cache
}

//NewTestingCacheWithReverse additionally injects a reverse lookup
//keyed by IP string, for tests that exercise rDNS driven behavior.
func NewTestingCacheWithReverse(ttl time.Duration, lookup func(domain string) ([]net.IP, error),
	reverse func(ip string) []string) *Cache {
	cache := NewTestingCache(ttl, lookup)
	cache.reverse = func(ctx context.Context, ip string) ([]string, error) {
		return reverse(ip), nil
	}
	return cache
}
