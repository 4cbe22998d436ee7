package util

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ipBoolTestCase struct {
	ip  string
	out bool
	msg string
}

type parseSubnetsTestCase struct {
	nets    []string
	out     []*net.IPNet
	wantErr bool
	msg     string
}

func TestIPIsPublicRoutable(t *testing.T) {

	testCases := []ipBoolTestCase{
		{"10.1.2.3", false, "RFC1918 Class A"},
		{"172.16.1.2", false, "RFC1918 Class B"},
		{"192.168.1.2", false, "RFC1918 Class C"},
		{"fc00:1234::", false, "IPv6 local address"},
		{"127.0.0.5", false, "IPv4 loopback"},
		{"::1", false, "IPv6 loopback"},
		{"169.254.1.2", false, "IPv4 link local"},
		{"fe80:1234::", false, "IPv6 link local"},
		{"224.0.0.1", false, "IPv4 multicast"},
		{"ff12:1234::", false, "IPv6 multicast"},
		{"8.8.8.8", true, "google dns ipv4"},
		{"2001:4860:4860::8888", true, "google dns ipv6"},
		{"not an ip", false, "unparseable address"},
	}

	for _, testCase := range testCases {
		output := IPIsPubliclyRoutable(net.ParseIP(testCase.ip))
		assert.Equal(t, testCase.out, output, testCase.msg)
	}

	assert.False(t, IPIsPubliclyRoutable(nil), "connections with no remote endpoint are never external")
}

func TestContainsIP(t *testing.T) {
	subnets := createIPNets([]string{"198.51.100.0/24", "8.8.4.4/32"})
	assert.True(t, ContainsIP(subnets, net.ParseIP("198.51.100.7")))
	assert.True(t, ContainsIP(subnets, net.ParseIP("8.8.4.4")))
	assert.False(t, ContainsIP(subnets, net.ParseIP("8.8.8.8")))
	assert.False(t, ContainsIP(subnets, nil), "an absent remote address is never contained")
}

// Ensures ParseSubnets returns expected net.IPNets and returns
// error when invalid IP address/CIDR network is provided.
func TestParseSubnets(t *testing.T) {
	validNets := []string{"192.168.0.0/24", "2001:db8::/32", "192.168.0.1", "2001:db8::1"}
	validNetsOutput := createIPNets([]string{"192.168.0.0/24", "2001:db8::/32", "192.168.0.1/32", "2001:db8::1/128"})
	invalidNets := []string{"invalidIP", "300.0.0.0/24"}

	testCases := []parseSubnetsTestCase{
		{
			nets:    validNets,
			out:     validNetsOutput,
			wantErr: false,
			msg:     "Valid mixed subnets",
		},
		{
			nets:    invalidNets,
			out:     nil,
			wantErr: true,
			msg:     "Invalid subnets (Expecting Error)",
		},
	}

	for _, testCase := range testCases {
		output, err := ParseSubnets(testCase.nets)
		assert.Equal(t, testCase.out, output, testCase.msg)
		assert.Equal(t, testCase.wantErr, err != nil, testCase.msg)
	}
}

func TestContainsDomain(t *testing.T) {
	domains := []string{"exact.com", "*.wild.com"}
	assert.True(t, ContainsDomain(domains, "exact.com"))
	assert.False(t, ContainsDomain(domains, "sub.exact.com"))
	assert.True(t, ContainsDomain(domains, "a.wild.com"))
	assert.True(t, ContainsDomain(domains, "wild.com"))
	assert.False(t, ContainsDomain(domains, "unrelated.com"))
}

func createIPNets(cidr []string) []*net.IPNet {
	ipNets := make([]*net.IPNet, len(cidr))

	for i, ip := range cidr {
		_, ipNet, _ := net.ParseCIDR(ip)
		ipNets[i] = ipNet
	}

	return ipNets
}
