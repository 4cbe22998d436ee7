package commands

import (
	"fmt"
	"strings"
	"testing"

	"github.com/blang/semver"
	"github.com/stretchr/testify/assert"
)

func TestVersionDiffIndex(t *testing.T) {
	current, _ := semver.Parse("0.3.2")

	testCases := []struct {
		remote string
		out    int
		msg    string
	}{
		{"1.0.0", 0, "major bump"},
		{"0.4.0", 1, "minor bump"},
		{"0.3.7", 2, "patch bump"},
	}

	for _, testCase := range testCases {
		remote, _ := semver.Parse(testCase.remote)
		assert.Equal(t, testCase.out, versionDiffIndex(remote, current), testCase.msg)
	}
}

func TestInformUser(t *testing.T) {
	current, _ := semver.Parse("0.3.2")
	remote, _ := semver.Parse("0.4.0")

	message := informUser(current, remote)
	assert.Equal(t, fmt.Sprintf(informFmtStr, "Minor", "0.4.0"), message)
	assert.True(t, strings.Contains(message, "github.com/activecm/snitch/releases"),
		"the update notice should point at the release page")
}
