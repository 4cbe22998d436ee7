package blocklist

import (
	"net"
	"regexp"
	"strings"
)

var domainPattern = regexp.MustCompile(`^([a-z0-9_-]+\.)*[a-z0-9_-]+$`)

type cidrEntry struct {
	network *net.IPNet
	ones    int
	entry   Entry
}

//Index is a point-in-time snapshot of the blocklist arranged for fast
//lookups. It is never mutated after BuildIndex returns; reloading the
//blocklist means building a new Index and swapping the pointer.
type Index struct {
	domains  map[string]Entry
	exactIPs map[string]Entry
	cidrs    []cidrEntry
}

//BuildIndex partitions entries into domain-suffix, exact-IP, and CIDR
//lookup structures. Malformed entries are skipped and counted rather
//than aborting the load; the error is non-nil only when nothing usable
//remains.
func BuildIndex(entries []Entry) (*Index, int, error) {
	idx := &Index{
		domains:  make(map[string]Entry),
		exactIPs: make(map[string]Entry),
	}

	skipped := 0
	for _, entry := range entries {
		pattern := strings.ToLower(strings.TrimSpace(entry.Pattern))
		if pattern == "" || entry.Severity < Low || entry.Severity > High {
			skipped++
			continue
		}

		if ip := net.ParseIP(pattern); ip != nil {
			idx.storeIP(ip.String(), entry)
			continue
		}

		if _, network, err := net.ParseCIDR(pattern); err == nil {
			ones, _ := network.Mask.Size()
			idx.cidrs = append(idx.cidrs, cidrEntry{
				network: network,
				ones:    ones,
				entry:   entry,
			})
			continue
		}

		// suffix patterns may be written as ".example.com" or "*.example.com"
		domain := strings.TrimPrefix(pattern, "*")
		domain = strings.Trim(domain, ".")
		if domainPattern.MatchString(domain) {
			idx.storeDomain(domain, entry)
			continue
		}

		skipped++
	}

	if idx.Len() == 0 {
		return nil, skipped, ErrNoUsableEntries
	}
	return idx, skipped, nil
}

//Valid reports whether the entry would survive BuildIndex: a known
//severity and a pattern that parses as a domain suffix, literal IP,
//or CIDR.
func (e Entry) Valid() bool {
	pattern := strings.ToLower(strings.TrimSpace(e.Pattern))
	if pattern == "" || e.Severity < Low || e.Severity > High {
		return false
	}
	if net.ParseIP(pattern) != nil {
		return true
	}
	if _, _, err := net.ParseCIDR(pattern); err == nil {
		return true
	}
	domain := strings.Trim(strings.TrimPrefix(pattern, "*"), ".")
	return domainPattern.MatchString(domain)
}

//storeDomain keeps the higher severity entry when the same suffix is
//listed twice
func (i *Index) storeDomain(domain string, entry Entry) {
	if existing, ok := i.domains[domain]; ok && existing.Severity.GTE(entry.Severity) {
		return
	}
	i.domains[domain] = entry
}

func (i *Index) storeIP(ip string, entry Entry) {
	if existing, ok := i.exactIPs[ip]; ok && existing.Severity.GTE(entry.Severity) {
		return
	}
	i.exactIPs[ip] = entry
}

//Len returns the number of usable entries in the index
func (i *Index) Len() int {
	return len(i.domains) + len(i.exactIPs) + len(i.cidrs)
}

//Domains returns every domain suffix in the index. The resolution
//cache is warmed from this list.
func (i *Index) Domains() []string {
	out := make([]string, 0, len(i.domains))
	for domain := range i.domains {
		out = append(out, domain)
	}
	return out
}

//LookupDomain finds the blocklist entry whose suffix matches the most
//labels of the given hostname. "track.ads.example.com" prefers an
//"ads.example.com" entry over an "example.com" entry.
func (i *Index) LookupDomain(hostname string) (Entry, bool) {
	host := strings.ToLower(strings.TrimSpace(hostname))
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return Entry{}, false
	}

	// walk from the full name to the barest suffix; the first hit is
	// the longest possible match
	for candidate := host; candidate != ""; {
		if entry, ok := i.domains[candidate]; ok {
			return entry, true
		}
		dot := strings.Index(candidate, ".")
		if dot < 0 {
			break
		}
		candidate = candidate[dot+1:]
	}
	return Entry{}, false
}

//LookupIP finds the blocklist entry for a literal IP. Exact entries
//are preferred over CIDR entries; among CIDR entries the narrowest
//containing range wins.
func (i *Index) LookupIP(ip net.IP) (Entry, bool) {
	if ip == nil {
		return Entry{}, false
	}

	if entry, ok := i.exactIPs[ip.String()]; ok {
		return entry, true
	}

	best := -1
	var bestEntry Entry
	for _, candidate := range i.cidrs {
		if candidate.network.Contains(ip) && candidate.ones > best {
			best = candidate.ones
			bestEntry = candidate.entry
		}
	}
	if best >= 0 {
		return bestEntry, true
	}
	return Entry{}, false
}
