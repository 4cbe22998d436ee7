package blocklist

import "errors"

//ErrMalformedEntry flags a blocklist row whose pattern is neither a
//domain, an IP address, nor a CIDR range
var ErrMalformedEntry = errors.New("blocklist entry pattern is not a domain, IP, or CIDR")

//ErrNoUsableEntries is returned when a load produces an empty index.
//Scanning must not start without a valid blocklist.
var ErrNoUsableEntries = errors.New("blocklist contains no usable entries")

//Entry is a single blocklist row. Domain patterns match by suffix,
//IP patterns by exact value, CIDR patterns by containment.
type Entry struct {
	Pattern  string   `bson:"pattern"`
	Category string   `bson:"category"`
	Severity Severity `bson:"severity"`
}

//Repository is a read-only store of blocklist entries
type Repository interface {
	LoadAll() ([]Entry, error)
}
