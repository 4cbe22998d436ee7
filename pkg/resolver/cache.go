package resolver

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/sync/singleflight"
)

//lookupFunc resolves a domain to its A/AAAA records
type lookupFunc func(domain string) ([]net.IP, error)

//reverseFunc resolves an IP to its PTR records
type reverseFunc func(ctx context.Context, ip string) ([]string, error)

type cacheEntry struct {
	ips       []net.IP
	fetchedAt time.Time
}

//Cache holds forward DNS results for the domains on the blocklist so
//that connections which surface only an IP can still be matched
//against domain entries. It is not a general purpose DNS cache.
type Cache struct {
	ttl            time.Duration
	reverseTimeout time.Duration
	log            *log.Logger

	mutex     sync.Mutex
	entries   map[string]*cacheEntry
	ipToOwner map[string]string

	flight  singleflight.Group
	lookup  lookupFunc
	reverse reverseFunc
	clock   func() time.Time
}

//NewCache creates a resolution cache backed by the system resolver
func NewCache(ttl time.Duration, reverseTimeout time.Duration, logger *log.Logger) *Cache {
	return &Cache{
		ttl:            ttl,
		reverseTimeout: reverseTimeout,
		log:            logger,
		entries:        make(map[string]*cacheEntry),
		ipToOwner:      make(map[string]string),
		lookup:         systemLookup,
		reverse:        net.DefaultResolver.LookupAddr,
		clock:          time.Now,
	}
}

func systemLookup(domain string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), domain)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}
	return ips, nil
}

//ResolveForward returns the IPs the domain currently resolves to.
//Fresh cache entries are returned as is; stale entries trigger a new
//query. A failed query falls back to the last known good answer, or
//an empty set when the domain has never resolved. It never errors:
//a missing resolution must not abort a scan cycle.
func (c *Cache) ResolveForward(domain string) []net.IP {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	c.mutex.Lock()
	entry, cached := c.entries[domain]
	if cached && c.clock().Sub(entry.fetchedAt) < c.ttl {
		ips := entry.ips
		c.mutex.Unlock()
		return ips
	}
	c.mutex.Unlock()

	// coalesce concurrent refreshes of the same domain into one query
	result, _, _ := c.flight.Do(domain, func() (interface{}, error) {
		ips, err := c.lookup(domain)
		if err != nil {
			c.log.WithFields(log.Fields{
				"domain": domain,
				"error":  err.Error(),
			}).Debug("forward DNS query failed")

			c.mutex.Lock()
			defer c.mutex.Unlock()
			if stale, ok := c.entries[domain]; ok {
				// stale but available beats empty; push the
				// timestamp forward so the failing query is not
				// retried on every call
				stale.fetchedAt = c.clock()
				return stale.ips, nil
			}
			c.entries[domain] = &cacheEntry{fetchedAt: c.clock()}
			return []net.IP(nil), nil
		}

		c.store(domain, ips)
		return ips, nil
	})

	return result.([]net.IP)
}

//store records a successful resolution and indexes each address back
//to its owning domain for IP-only matching
func (c *Cache) store(domain string, ips []net.IP) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if previous, ok := c.entries[domain]; ok {
		for _, ip := range previous.ips {
			delete(c.ipToOwner, ip.String())
		}
	}

	c.entries[domain] = &cacheEntry{
		ips:       ips,
		fetchedAt: c.clock(),
	}
	for _, ip := range ips {
		c.ipToOwner[ip.String()] = domain
	}
}

//OwnerDomain maps an observed IP back to the cached blocklist domain
//that currently resolves to it
func (c *Cache) OwnerDomain(ip net.IP) (string, bool) {
	if ip == nil {
		return "", false
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	domain, ok := c.ipToOwner[ip.String()]
	return domain, ok
}

//RefreshStale re-resolves every cached domain whose entry has passed
//its TTL. Called once per scan cycle so matching always runs against
//reasonably current data without blocking per connection.
func (c *Cache) RefreshStale() {
	c.mutex.Lock()
	var stale []string
	for domain, entry := range c.entries {
		if c.clock().Sub(entry.fetchedAt) >= c.ttl {
			stale = append(stale, domain)
		}
	}
	c.mutex.Unlock()

	for _, domain := range stale {
		c.ResolveForward(domain)
	}
}

//Warm pre-resolves up to limit domains so the first scan cycle can
//match IP-only connections immediately
func (c *Cache) Warm(domains []string, limit int, showProgress bool) int {
	if limit > 0 && len(domains) > limit {
		domains = domains[:limit]
	}

	var bar *mpb.Bar
	var progress *mpb.Progress
	if showProgress {
		progress = mpb.New(mpb.WithWidth(20))
		bar = progress.AddBar(int64(len(domains)),
			mpb.PrependDecorators(
				decor.Name("\t[-] Resolving blocklist domains:", decor.WC{W: 35, C: decor.DidentRight}),
				decor.CountersNoUnit(" %d / %d ", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	resolved := 0
	for _, domain := range domains {
		start := time.Now()
		if len(c.ResolveForward(domain)) > 0 {
			resolved++
		}
		if bar != nil {
			bar.IncrBy(1, time.Since(start))
		}
	}
	if progress != nil {
		progress.Wait()
	}
	return resolved
}

//ResolveReverse finds a display name for an IP, bounded by the
//configured timeout. Failures are expected and yield an empty string;
//reverse results never influence matching.
func (c *Cache) ResolveReverse(ip net.IP) string {
	if ip == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.reverseTimeout)
	defer cancel()

	names, err := c.reverse(ctx, ip.String())
	if err != nil || len(names) == 0 {
		if err != nil {
			c.log.WithFields(log.Fields{
				"ip":    ip.String(),
				"error": err.Error(),
			}).Debug("reverse DNS query failed")
		}
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

//Len returns the number of cached domains
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}
