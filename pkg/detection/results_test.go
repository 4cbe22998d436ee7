package detection

import (
	"testing"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/globalsign/mgo/bson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSelectorTimeRange(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(2 * time.Hour)

	selector, err := Filter{Since: since, Until: until}.selector()
	require.Nil(t, err)
	assert.Equal(t, bson.M{"$gte": since, "$lte": until}, selector["ts"])

	selector, err = Filter{}.selector()
	require.Nil(t, err)
	_, ok := selector["ts"]
	assert.False(t, ok, "no time filter should mean no ts constraint")
}

func TestFilterSelectorMinSeverity(t *testing.T) {
	selector, err := Filter{MinSeverity: blocklist.Medium}.selector()
	require.Nil(t, err)
	assert.Equal(t, bson.M{"$in": []string{"Medium", "High"}}, selector["severity"])

	selector, err = Filter{MinSeverity: blocklist.Low}.selector()
	require.Nil(t, err)
	_, ok := selector["severity"]
	assert.False(t, ok, "a Low floor allows everything and needs no constraint")
}

func TestFilterSelectorMatchType(t *testing.T) {
	selector, err := Filter{MatchType: TypeBaseline}.selector()
	require.Nil(t, err)
	assert.Equal(t, TypeBaseline, selector["match_type"])

	_, err = Filter{MatchType: "bogus"}.selector()
	assert.NotNil(t, err, "unknown match types should be rejected")
}

func TestFilterSelectorProcess(t *testing.T) {
	selector, err := Filter{Process: "eq:OneDrive.exe"}.selector()
	require.Nil(t, err)
	assert.Equal(t, "OneDrive.exe", selector["process_name"])

	selector, err = Filter{Process: "svc.exe"}.selector()
	require.Nil(t, err)
	assert.Equal(t, "svc.exe", selector["process_name"], "bare process filters mean exact match")

	selector, err = Filter{Process: "contains:chrome"}.selector()
	require.Nil(t, err)
	regex, ok := selector["process_name"].(bson.RegEx)
	require.True(t, ok)
	assert.Equal(t, "chrome", regex.Pattern)
	assert.Equal(t, "i", regex.Options, "contains matching is case insensitive")

	_, err = Filter{Process: "glob:chrome*"}.selector()
	assert.NotNil(t, err)
}

func TestFilterSelectorDomain(t *testing.T) {
	selector, err := Filter{Domain: "example.com"}.selector()
	require.Nil(t, err)
	clauses, ok := selector["$or"].([]bson.M)
	require.True(t, ok, "bare domain filters mean contains over both domain columns")
	require.Len(t, clauses, 2)
	regex := clauses[0]["dest_domain"].(bson.RegEx)
	assert.Equal(t, `example\.com`, regex.Pattern, "literal dots must not act as regex wildcards")

	selector, err = Filter{Domain: "eq:ads.example.com"}.selector()
	require.Nil(t, err)
	clauses = selector["$or"].([]bson.M)
	assert.Equal(t, "ads.example.com", clauses[1]["matched_pattern"])
}

func TestFilterSelectorRemoteIP(t *testing.T) {
	selector, err := Filter{RemoteIP: "10.0.0.5"}.selector()
	require.Nil(t, err)
	assert.Equal(t, "10.0.0.5", selector["dest_ip"])
}

func uniqueFixture() []Event {
	return []Event{
		{PID: 42, ProcessName: "svc.exe", RemoteIP: "10.0.0.5", RemotePort: 443, MatchedPattern: "telemetry.example.com"},
		{PID: 42, ProcessName: "svc.exe", RemoteIP: "10.0.0.5", RemotePort: 444, MatchedPattern: "telemetry.example.com"},
		{PID: 7, ProcessName: "chrome", RemoteIP: "10.0.0.5", RemotePort: 443, MatchedPattern: "telemetry.example.com"},
		{PID: 7, ProcessName: "chrome", RemoteIP: "198.51.100.9", RemotePort: 443, RDNS: "cdn.example.net"},
	}
}

func TestApplyUnique(t *testing.T) {
	tests := []struct {
		mode  string
		count int
		msg   string
	}{
		{"", 4, "no mode keeps every row"},
		{UniqueTuple, 4, "tuple keys include the remote port"},
		{UniqueRemote, 2, "remote collapses by destination IP"},
		{UniqueDomain, 2, "domain falls back to reverse DNS for unmatched rows"},
		{UniqueRemoteProc, 3, "remote-proc keys on process and destination"},
		{UniqueDomainProc, 3, "domain-proc keys on process and domain"},
	}
	for _, test := range tests {
		assert.Len(t, applyUnique(uniqueFixture(), test.mode), test.count, test.msg)
	}
}

func TestApplyUniqueKeepsFirst(t *testing.T) {
	events := uniqueFixture()
	unique := applyUnique(events, UniqueRemote)
	require.Len(t, unique, 2)
	assert.Equal(t, uint16(443), unique[0].RemotePort, "the first event per key should survive")
	assert.Equal(t, "198.51.100.9", unique[1].RemoteIP)
}
