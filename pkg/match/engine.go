package match

import (
	"net"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/resolver"
)

// Result describes which blocklist entry a destination hit and how.
type Result struct {
	Entry blocklist.Entry
	// Domain is set when the hit came through the resolution cache:
	// the blocklist domain whose resolved set contains the remote IP.
	Domain string
}

// Engine classifies destinations against a blocklist index, using the
// resolution cache to catch IP only connections to blocklisted
// domains. All lookups are read only, so one Engine may be shared by
// concurrent scan workers.
type Engine struct {
	index *blocklist.Index
	cache *resolver.Cache
}

// NewEngine ties an index and a resolution cache together.
func NewEngine(index *blocklist.Index, cache *resolver.Cache) *Engine {
	return &Engine{index: index, cache: cache}
}

// Match checks a destination against the blocklist. A hostname
// supplied with the connection is the most specific signal and is
// checked first; then the remote IP (exact, then CIDR), then the
// cached resolutions of every blocklisted domain.
func (e *Engine) Match(remoteIP net.IP, hostname string) (Result, bool) {
	if hostname != "" {
		if entry, ok := e.index.LookupDomain(hostname); ok {
			return Result{Entry: entry}, true
		}
	}

	if entry, ok := e.index.LookupIP(remoteIP); ok {
		return Result{Entry: entry}, true
	}

	if remoteIP != nil {
		if domain, ok := e.cache.OwnerDomain(remoteIP); ok {
			if entry, ok := e.index.LookupDomain(domain); ok {
				return Result{Entry: entry, Domain: domain}, true
			}
		}
	}

	return Result{}, false
}
