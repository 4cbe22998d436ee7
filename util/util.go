package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

//TimeFormat stores a correctly formatted timestamp
const TimeFormat string = "2006-01-02-T15:04:05-0700"

//StringInSlice returns true if the string is an element of the array
func StringInSlice(value string, list []string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

var relativeTimeRegexp = regexp.MustCompile(`(?i)^(\d+)([mhd])$`)

// ParseRelativeTime turns a relative offset such as "30m", "2h", or "7d"
// into an absolute timestamp in the past. Absolute RFC3339 timestamps are
// passed through unchanged.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if groups := relativeTimeRegexp.FindStringSubmatch(s); groups != nil {
		n, err := strconv.Atoi(groups[1])
		if err != nil {
			return time.Time{}, err
		}
		var unit time.Duration
		switch strings.ToLower(groups[2]) {
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * unit), nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use 30m, 2h, 7d, or RFC3339", s)
	}
	return parsed, nil
}

const (
	day  = time.Minute * 60 * 24
	year = 365 * day
)

// FormatDuration properly prints a given time.Duration
// https://gist.github.com/harshavardhana/327e0577c4fed9211f65#gistcomment-2557682
func FormatDuration(d time.Duration) string {
	if d < day {
		return d.String()
	}

	var b strings.Builder

	if d >= year {
		years := d / year
		fmt.Fprintf(&b, "%dy", years)
		d -= years * year
	}

	days := d / day
	d -= days * day
	fmt.Fprintf(&b, "%dd%s", days, d)

	return b.String()
}
