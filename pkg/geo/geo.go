package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Resolver annotates destination IPs with an ISO country code from a
// local MaxMind database. A nil Resolver is valid and resolves
// nothing, so callers need no enabled checks.
type Resolver struct {
	reader *geoip2.Reader
}

// Open loads a GeoLite2/GeoIP2 country database from disk.
func Open(path string) (*Resolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{reader: reader}, nil
}

// Country returns the ISO country code for an IP, or "" when the
// resolver is disabled or the IP is not in the database.
func (r *Resolver) Country(ip net.IP) string {
	if r == nil || r.reader == nil || ip == nil {
		return ""
	}
	record, err := r.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// Close releases the database handle. Safe on a nil Resolver.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
