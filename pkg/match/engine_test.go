package match

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	index, skipped, err := blocklist.BuildIndex([]blocklist.Entry{
		{Pattern: "telemetry.example.com", Category: "OS-Telemetry", Severity: blocklist.High},
		{Pattern: "example.com", Category: "Tracking", Severity: blocklist.Medium},
		{Pattern: "ads.example.com", Category: "Advertising", Severity: blocklist.High},
		{Pattern: "198.51.100.7", Category: "C2", Severity: blocklist.High},
		{Pattern: "203.0.113.0/24", Category: "Scanner", Severity: blocklist.Low},
	})
	require.Nil(t, err)
	require.Equal(t, 0, skipped)

	cache := resolver.NewTestingCache(time.Hour, func(domain string) ([]net.IP, error) {
		switch domain {
		case "telemetry.example.com":
			return []net.IP{net.ParseIP("10.0.0.5")}, nil
		case "ads.example.com":
			return []net.IP{net.ParseIP("198.51.100.1")}, nil
		}
		return nil, errors.New("NXDOMAIN")
	})
	cache.Warm(index.Domains(), 0, false)

	return NewEngine(index, cache)
}

func TestMatchExactIP(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(net.ParseIP("198.51.100.7"), "")
	require.True(t, ok, "IPs literally on the blocklist should match with no DNS state")
	assert.Equal(t, "198.51.100.7", result.Entry.Pattern)
	assert.Equal(t, blocklist.High, result.Entry.Severity)
	assert.Equal(t, "", result.Domain, "a direct IP hit is not domain derived")
}

func TestMatchCIDR(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(net.ParseIP("203.0.113.99"), "")
	require.True(t, ok)
	assert.Equal(t, "203.0.113.0/24", result.Entry.Pattern)
}

func TestMatchHostname(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(net.ParseIP("192.0.2.40"), "track.ads.example.com")
	require.True(t, ok, "hostnames should match by blocklist suffix")
	assert.Equal(t, "ads.example.com", result.Entry.Pattern, "the longest suffix should win")
	assert.Equal(t, blocklist.High, result.Entry.Severity)

	_, ok = engine.Match(net.ParseIP("192.0.2.40"), "example.org")
	assert.False(t, ok, "unlisted hostnames to unlisted IPs should not match")
}

func TestMatchHostnameBeatsIP(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(net.ParseIP("198.51.100.7"), "track.ads.example.com")
	require.True(t, ok)
	assert.Equal(t, "ads.example.com", result.Entry.Pattern,
		"a hostname supplied with the connection should be checked before the IP")
	assert.Equal(t, "Advertising", result.Entry.Category)
}

func TestMatchDomainDerivedIP(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(net.ParseIP("10.0.0.5"), "")
	require.True(t, ok, "an IP only connection should match through the cached resolution")
	assert.Equal(t, "telemetry.example.com", result.Entry.Pattern)
	assert.Equal(t, "telemetry.example.com", result.Domain)
	assert.Equal(t, "OS-Telemetry", result.Entry.Category)

	_, ok = engine.Match(net.ParseIP("10.0.0.99"), "")
	assert.False(t, ok, "IPs no blocklist domain resolves to should not match")
}

func TestMatchNilIP(t *testing.T) {
	engine := testEngine(t)

	result, ok := engine.Match(nil, "telemetry.example.com")
	require.True(t, ok, "a hostname alone should still be matchable")
	assert.Equal(t, "telemetry.example.com", result.Entry.Pattern)

	_, ok = engine.Match(nil, "")
	assert.False(t, ok)
}
