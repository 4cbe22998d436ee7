package blocklist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/globalsign/mgo/bson"
)

//Severity ranks how bad contacting a blocklisted destination is
type Severity int

//Severity levels are ordered: comparisons may rely on Low < Medium < High
const (
	Low Severity = iota + 1
	Medium
	High
)

//ParseSeverity converts a config or blocklist string into a Severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return 0, fmt.Errorf("invalid severity %q: must be Low, Medium, or High", s)
}

func (s Severity) String() string {
	switch s {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return "Unknown"
}

//GTE returns true if s ranks at or above other
func (s Severity) GTE(other Severity) bool {
	return s >= other
}

//MarshalJSON emits severities as readable strings
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

//UnmarshalJSON parses severities stored as strings
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

//GetBSON stores severities as readable strings
func (s Severity) GetBSON() (interface{}, error) {
	return s.String(), nil
}

//SetBSON parses severities stored as strings
func (s *Severity) SetBSON(raw bson.Raw) error {
	var str string
	if err := raw.Unmarshal(&str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
