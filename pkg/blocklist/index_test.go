package blocklist

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{Pattern: "example.com", Category: "Browser-Tracker", Severity: Medium},
		{Pattern: "ads.example.com", Category: "Browser-Tracker", Severity: High},
		{Pattern: "telemetry.example.com", Category: "OS-Telemetry", Severity: High},
		{Pattern: "198.51.100.7", Category: "C2", Severity: High},
		{Pattern: "203.0.113.0/24", Category: "Scanner", Severity: Low},
		{Pattern: "203.0.113.128/25", Category: "Scanner", Severity: Medium},
	}
}

func TestBuildIndexCountsMalformedEntries(t *testing.T) {
	entries := append(testEntries(),
		Entry{Pattern: "not a pattern!!", Category: "Junk", Severity: Low},
		Entry{Pattern: "", Category: "Junk", Severity: Low},
	)

	idx, skipped, err := BuildIndex(entries)
	require.Nil(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, len(testEntries()), idx.Len())
}

func TestBuildIndexRequiresUsableEntries(t *testing.T) {
	_, skipped, err := BuildIndex([]Entry{
		{Pattern: "%%%%", Category: "Junk", Severity: Low},
	})
	assert.Equal(t, ErrNoUsableEntries, err)
	assert.Equal(t, 1, skipped)

	_, _, err = BuildIndex(nil)
	assert.Equal(t, ErrNoUsableEntries, err)
}

func TestLookupDomainSuffixMatching(t *testing.T) {
	idx, _, err := BuildIndex(testEntries())
	require.Nil(t, err)

	testCases := []struct {
		host    string
		pattern string
		found   bool
		msg     string
	}{
		{"example.com", "example.com", true, "exact match"},
		{"www.example.com", "example.com", true, "suffix match"},
		{"track.ads.example.com", "ads.example.com", true, "longest suffix wins"},
		{"ads.example.com", "ads.example.com", true, "exact beats parent suffix"},
		{"EXAMPLE.COM.", "example.com", true, "case and trailing dot normalized"},
		{"notexample.com", "", false, "label boundaries respected"},
		{"example.org", "", false, "unrelated domain"},
		{"", "", false, "empty hostname"},
	}

	for _, testCase := range testCases {
		entry, found := idx.LookupDomain(testCase.host)
		assert.Equal(t, testCase.found, found, testCase.msg)
		if testCase.found {
			assert.Equal(t, testCase.pattern, entry.Pattern, testCase.msg)
		}
	}
}

func TestLookupDomainSeverityTieBreak(t *testing.T) {
	// the same suffix listed twice keeps the higher severity
	idx, _, err := BuildIndex([]Entry{
		{Pattern: "dup.example.com", Category: "A", Severity: Low},
		{Pattern: "dup.example.com", Category: "B", Severity: High},
		{Pattern: "other.example.com", Category: "C", Severity: Medium},
	})
	require.Nil(t, err)

	entry, found := idx.LookupDomain("x.dup.example.com")
	require.True(t, found)
	assert.Equal(t, High, entry.Severity)
	assert.Equal(t, "B", entry.Category)
}

func TestLookupIP(t *testing.T) {
	idx, _, err := BuildIndex(testEntries())
	require.Nil(t, err)

	testCases := []struct {
		ip       string
		category string
		found    bool
		msg      string
	}{
		{"198.51.100.7", "C2", true, "exact IP"},
		{"203.0.113.5", "Scanner", true, "CIDR containment"},
		{"198.51.100.8", "", false, "neighboring IP does not match"},
		{"192.0.2.1", "", false, "unlisted IP"},
	}

	for _, testCase := range testCases {
		entry, found := idx.LookupIP(net.ParseIP(testCase.ip))
		assert.Equal(t, testCase.found, found, testCase.msg)
		if testCase.found {
			assert.Equal(t, testCase.category, entry.Category, testCase.msg)
		}
	}
}

func TestLookupIPNarrowestCIDRWins(t *testing.T) {
	idx, _, err := BuildIndex(testEntries())
	require.Nil(t, err)

	// 203.0.113.200 is inside both /24 and /25; the /25 should win
	entry, found := idx.LookupIP(net.ParseIP("203.0.113.200"))
	require.True(t, found)
	assert.Equal(t, Medium, entry.Severity)

	// 203.0.113.5 is only inside the /24
	entry, found = idx.LookupIP(net.ParseIP("203.0.113.5"))
	require.True(t, found)
	assert.Equal(t, Low, entry.Severity)
}

func TestLookupIPExactBeatsCIDR(t *testing.T) {
	idx, _, err := BuildIndex([]Entry{
		{Pattern: "203.0.113.9", Category: "Exact", Severity: Low},
		{Pattern: "203.0.113.0/24", Category: "Range", Severity: High},
	})
	require.Nil(t, err)

	entry, found := idx.LookupIP(net.ParseIP("203.0.113.9"))
	require.True(t, found)
	assert.Equal(t, "Exact", entry.Category)
}

func TestSeverityParsing(t *testing.T) {
	testCases := []struct {
		in      string
		out     Severity
		wantErr bool
	}{
		{"Low", Low, false},
		{"medium", Medium, false},
		{" HIGH ", High, false},
		{"critical", 0, true},
		{"", 0, true},
	}

	for _, testCase := range testCases {
		parsed, err := ParseSeverity(testCase.in)
		assert.Equal(t, testCase.wantErr, err != nil, testCase.in)
		assert.Equal(t, testCase.out, parsed, testCase.in)
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, High.GTE(High))
	assert.True(t, High.GTE(Low))
	assert.True(t, Medium.GTE(Low))
	assert.False(t, Low.GTE(Medium))
	assert.Equal(t, "High", High.String())
	assert.Equal(t, "Unknown", Severity(0).String())
}

func TestIndexDomains(t *testing.T) {
	idx, _, err := BuildIndex(testEntries())
	require.Nil(t, err)
	assert.ElementsMatch(t,
		[]string{"example.com", "ads.example.com", "telemetry.example.com"},
		idx.Domains())
}
