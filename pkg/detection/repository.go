package detection

import (
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/google/uuid"
)

// Match types recorded on an Event.
const (
	// TypeMatch is an at-or-above-threshold hit on the blocklist.
	TypeMatch = "match"
	// TypeBaseline is a sub-threshold hit or an unmatched external
	// connection recorded for audit. Baselines never notify.
	TypeBaseline = "baseline"
)

// Event is one detection, created by a scan cycle and immutable once
// handed to a Sink.
type Event struct {
	ID             string             `bson:"event_id" json:"event_id"`
	Timestamp      time.Time          `bson:"ts" json:"ts"`
	PID            int                `bson:"pid" json:"pid"`
	ProcessName    string             `bson:"process_name" json:"process_name"`
	LocalIP        string             `bson:"laddr" json:"laddr"`
	LocalPort      uint16             `bson:"lport" json:"lport"`
	RemoteIP       string             `bson:"dest_ip" json:"dest_ip"`
	RemotePort     uint16             `bson:"rport" json:"rport"`
	RDNS           string             `bson:"dest_domain" json:"dest_domain"`
	MatchedPattern string             `bson:"matched_pattern" json:"matched_pattern"`
	Category       string             `bson:"category" json:"category"`
	Severity       blocklist.Severity `bson:"severity" json:"severity"`
	MatchType      string             `bson:"match_type" json:"match_type"`
	RepeatCount    int                `bson:"repeat_count" json:"repeat_count"`
	FirstSeen      bool               `bson:"first_seen" json:"first_seen"`
	Country        string             `bson:"country,omitempty" json:"country,omitempty"`
}

// NewEventID mints the unique ID carried by one Event.
func NewEventID() string {
	return uuid.New().String()
}

// Sink receives detection events. Append only; implementations must
// not block a scan cycle on anything slower than a local write.
type Sink interface {
	Persist(event *Event) error
}
