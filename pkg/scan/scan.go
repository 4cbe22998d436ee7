package scan

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/detection"
	"github.com/activecm/snitch/pkg/geo"
	"github.com/activecm/snitch/pkg/match"
	"github.com/activecm/snitch/pkg/notify"
	"github.com/activecm/snitch/pkg/resolver"
	"github.com/activecm/snitch/pkg/sniffer"
	"github.com/activecm/snitch/util"
	log "github.com/sirupsen/logrus"
)

// Config is the policy one Scanner applies every cycle.
type Config struct {
	Threshold       blocklist.Severity
	NotifyMin       blocklist.Severity
	SquelchWindow   time.Duration
	Workers         int
	EstablishedOnly bool
	ExternalOnly    bool
	IncludeUDP      bool
	Baseline        bool
	DedupeBaseline  bool

	// destinations the operator excluded outright; NeverInclude is
	// checked against the remote IP, NeverIncludeDomain against its
	// reverse DNS name
	NeverInclude       []*net.IPNet
	NeverIncludeDomain []string
}

// Summary is the outcome of one scan cycle.
type Summary struct {
	Connections int
	RDNSHits    int
	Matches     int
	Baselines   int
	Notified    int
}

// Scanner runs scan cycles: enumerate connections, match each against
// the blocklist, squelch repeats, and emit detection events. A
// Scanner is not safe for concurrent cycles; Watch serializes them.
type Scanner struct {
	log      *log.Logger
	cfg      Config
	engine   *match.Engine
	cache    *resolver.Cache
	sniff    sniffer.Enumerator
	sink     detection.Sink
	notifier notify.Notifier
	geoip    *geo.Resolver

	squelch      *SquelchState
	baselineSeen util.Cache
}

// NewScanner wires a scanner together. The notifier and geoip
// resolver may be nil.
func NewScanner(logger *log.Logger, cfg Config, engine *match.Engine, cache *resolver.Cache,
	sniff sniffer.Enumerator, sink detection.Sink, notifier notify.Notifier, geoip *geo.Resolver) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() / 2
		if cfg.Workers < 1 {
			cfg.Workers = 1
		}
	}
	return &Scanner{
		log:          logger,
		cfg:          cfg,
		engine:       engine,
		cache:        cache,
		sniff:        sniff,
		sink:         sink,
		notifier:     notifier,
		geoip:        geoip,
		squelch:      NewSquelchState(cfg.SquelchWindow),
		baselineSeen: util.NewCache(),
	}
}

type matchResult struct {
	conn   sniffer.Connection
	rdns   string
	result match.Result
	hit    bool
}

// Run executes one scan cycle and reports what it saw. An
// enumeration failure aborts the cycle; everything downstream is
// best effort and only logged.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	conns, err := s.sniff.Connections(sniffer.Options{
		EstablishedOnly: s.cfg.EstablishedOnly,
		IncludeUDP:      s.cfg.IncludeUDP,
	})
	if err != nil {
		return summary, fmt.Errorf("enumerating connections: %w", err)
	}
	conns = s.filterExternal(conns)
	summary.Connections = len(conns)

	// keep domain derived IP matching current without blocking
	// individual connections on DNS
	s.cache.RefreshStale()

	results := s.matchAll(ctx, conns)

	for i := range results {
		if ctx.Err() != nil {
			break
		}
		s.emit(&results[i], &summary)
	}

	s.squelch.Prune()

	s.log.WithFields(log.Fields{
		"connections": summary.Connections,
		"rdns_hits":   summary.RDNSHits,
		"matches":     summary.Matches,
		"baselines":   summary.Baselines,
	}).Info("scan cycle complete")

	return summary, ctx.Err()
}

// Watch runs cycles on a fixed interval until the context is
// cancelled or the optional duration elapses. Cancellation is acted
// on between cycles so squelch state is never left half updated.
func (s *Scanner) Watch(ctx context.Context, interval time.Duration, duration time.Duration) error {
	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WithError(err).Error("scan cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scanner) filterExternal(conns []sniffer.Connection) []sniffer.Connection {
	kept := conns[:0]
	for _, conn := range conns {
		if util.ContainsIP(s.cfg.NeverInclude, conn.RemoteIP) {
			continue
		}
		if s.cfg.ExternalOnly && !util.IPIsPubliclyRoutable(conn.RemoteIP) {
			continue
		}
		kept = append(kept, conn)
	}
	return kept
}

// matchAll fans per connection matching out across a bounded worker
// pool. Results land in enumeration order so emission is
// deterministic for identical input.
func (s *Scanner) matchAll(ctx context.Context, conns []sniffer.Connection) []matchResult {
	results := make([]matchResult, len(conns))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				conn := conns[i]
				rdns := s.cache.ResolveReverse(conn.RemoteIP)
				result, hit := s.engine.Match(conn.RemoteIP, "")
				results[i] = matchResult{conn: conn, rdns: rdns, result: result, hit: hit}
			}
		}()
	}

feed:
	for i := range conns {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (s *Scanner) emit(r *matchResult, summary *Summary) {
	if r.rdns != "" && util.ContainsDomain(s.cfg.NeverIncludeDomain, r.rdns) {
		return
	}

	if r.rdns != "" {
		summary.RDNSHits++
	}

	if !r.hit {
		s.baseline(r, summary, blocklist.Entry{Category: "Baseline", Severity: blocklist.Low})
		return
	}

	entry := r.result.Entry
	if !entry.Severity.GTE(s.cfg.Threshold) {
		s.baseline(r, summary, entry)
		return
	}

	decision := s.squelch.Observe(Fingerprint(r.conn.PID, r.conn.RemoteIP, entry.Pattern))
	if !decision.Emit {
		return
	}

	event := s.newEvent(r, detection.TypeMatch, entry)
	event.MatchedPattern = entry.Pattern
	event.RepeatCount = decision.Repeats
	event.FirstSeen = decision.First

	if err := s.sink.Persist(event); err != nil {
		s.log.WithError(err).Error("could not persist detection")
	} else {
		summary.Matches++
	}

	s.log.WithFields(log.Fields{
		"process":  event.ProcessName,
		"pid":      event.PID,
		"dest":     event.RemoteIP,
		"pattern":  event.MatchedPattern,
		"category": event.Category,
		"severity": event.Severity.String(),
	}).Info("blocklisted connection")

	if decision.Notify && s.notifier != nil && entry.Severity.GTE(s.cfg.NotifyMin) {
		if err := s.notifier.Notify(event); err != nil {
			s.log.WithError(err).Debug("could not notify")
		} else {
			summary.Notified++
		}
	}
}

// baseline records sub threshold and unmatched external connections
// for audit. Baselines never notify and are deduplicated per session
// when configured.
func (s *Scanner) baseline(r *matchResult, summary *Summary, entry blocklist.Entry) {
	if !s.cfg.Baseline {
		return
	}

	key := fmt.Sprintf("%d|%s|%d|%s|%d", r.conn.PID,
		r.conn.LocalIP, r.conn.LocalPort, r.conn.RemoteIP, r.conn.RemotePort)
	if s.cfg.DedupeBaseline && s.baselineSeen.Lookup(key) {
		return
	}

	event := s.newEvent(r, detection.TypeBaseline, entry)
	event.MatchedPattern = entry.Pattern

	if err := s.sink.Persist(event); err != nil {
		s.log.WithError(err).Error("could not persist baseline")
		return
	}
	summary.Baselines++
}

func (s *Scanner) newEvent(r *matchResult, matchType string, entry blocklist.Entry) *detection.Event {
	processName := r.conn.ProcessName
	if processName == "" {
		processName = "unknown"
	}
	return &detection.Event{
		ID:          detection.NewEventID(),
		Timestamp:   time.Now(),
		PID:         r.conn.PID,
		ProcessName: processName,
		LocalIP:     r.conn.LocalIP.String(),
		LocalPort:   r.conn.LocalPort,
		RemoteIP:    r.conn.RemoteIP.String(),
		RemotePort:  r.conn.RemotePort,
		RDNS:        r.rdns,
		Category:    entry.Category,
		Severity:    entry.Severity,
		MatchType:   matchType,
		Country:     s.geoip.Country(r.conn.RemoteIP),
	}
}
