package detection

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/resources"
	"github.com/globalsign/mgo/bson"
)

// Unique modes collapse the result set down to one event per key.
const (
	UniqueTuple      = "tuple"
	UniqueRemote     = "remote"
	UniqueDomain     = "domain"
	UniqueRemoteProc = "remote-proc"
	UniqueDomainProc = "domain-proc"
)

// UniqueModes lists the accepted --unique values.
var UniqueModes = []string{UniqueTuple, UniqueRemote, UniqueDomain, UniqueRemoteProc, UniqueDomainProc}

// Filter narrows which events a query returns. Zero values mean
// "no constraint".
type Filter struct {
	Since       time.Time
	Until       time.Time
	MinSeverity blocklist.Severity
	MatchType   string
	Category    string
	// Process takes "contains:chrome" or "eq:OneDrive.exe"; a bare
	// value means exact match.
	Process string
	// Domain takes the same prefixes and checks both the reverse DNS
	// name and the matched pattern; a bare value means contains.
	Domain   string
	RemoteIP string
	Unique   string
	Limit    int
}

// Query returns events matching the filter, newest first.
func Query(res *resources.Resources, filter Filter) ([]Event, error) {
	selector, err := filter.selector()
	if err != nil {
		return nil, err
	}

	session := res.DB.Session.Copy()
	defer session.Close()

	query := session.DB(res.DB.GetSelectedDB()).
		C(res.Config.T.Detection.DetectionsTable).
		Find(selector).Sort("-ts")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []Event
	if err := query.All(&events); err != nil {
		return nil, err
	}
	return applyUnique(events, filter.Unique), nil
}

func (f Filter) selector() (bson.M, error) {
	selector := bson.M{}

	timeRange := bson.M{}
	if !f.Since.IsZero() {
		timeRange["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		timeRange["$lte"] = f.Until
	}
	if len(timeRange) > 0 {
		selector["ts"] = timeRange
	}

	if f.MinSeverity > blocklist.Low {
		var allowed []string
		for severity := f.MinSeverity; severity <= blocklist.High; severity++ {
			allowed = append(allowed, severity.String())
		}
		selector["severity"] = bson.M{"$in": allowed}
	}

	if f.MatchType != "" {
		if f.MatchType != TypeMatch && f.MatchType != TypeBaseline {
			return nil, fmt.Errorf("unknown match type %q", f.MatchType)
		}
		selector["match_type"] = f.MatchType
	}

	if f.Category != "" {
		selector["category"] = f.Category
	}

	if f.Process != "" {
		mode, value := splitFilterValue(f.Process, "eq")
		switch mode {
		case "contains":
			selector["process_name"] = containsRegex(value)
		case "eq":
			selector["process_name"] = value
		default:
			return nil, fmt.Errorf("unknown process filter mode %q", mode)
		}
	}

	if f.Domain != "" {
		mode, value := splitFilterValue(f.Domain, "contains")
		switch mode {
		case "contains":
			pattern := containsRegex(value)
			selector["$or"] = []bson.M{
				{"dest_domain": pattern},
				{"matched_pattern": pattern},
			}
		case "eq":
			selector["$or"] = []bson.M{
				{"dest_domain": value},
				{"matched_pattern": value},
			}
		default:
			return nil, fmt.Errorf("unknown domain filter mode %q", mode)
		}
	}

	if f.RemoteIP != "" {
		selector["dest_ip"] = f.RemoteIP
	}

	return selector, nil
}

// splitFilterValue splits "contains:chrome" style filter arguments.
func splitFilterValue(raw string, defaultMode string) (string, string) {
	if idx := strings.Index(raw, ":"); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return defaultMode, raw
}

func containsRegex(value string) bson.RegEx {
	return bson.RegEx{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

// applyUnique keeps the first event seen per key, preserving order.
func applyUnique(events []Event, mode string) []Event {
	if mode == "" {
		return events
	}

	seen := make(map[string]bool)
	unique := events[:0:0]
	for _, event := range events {
		key := uniqueKey(event, mode)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, event)
	}
	return unique
}

func uniqueKey(event Event, mode string) string {
	switch mode {
	case UniqueRemote:
		return event.RemoteIP
	case UniqueDomain:
		return bestDomain(event)
	case UniqueRemoteProc:
		return event.ProcessName + "|" + event.RemoteIP
	case UniqueDomainProc:
		return event.ProcessName + "|" + bestDomain(event)
	default:
		return fmt.Sprintf("%d|%s|%d|%s|%d",
			event.PID, event.LocalIP, event.LocalPort, event.RemoteIP, event.RemotePort)
	}
}

// bestDomain prefers the matched pattern, falls back to reverse DNS,
// then to the bare IP so unmatched rows still group sensibly.
func bestDomain(event Event) string {
	if event.MatchedPattern != "" {
		return event.MatchedPattern
	}
	if event.RDNS != "" {
		return event.RDNS
	}
	return event.RemoteIP
}
