package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/activecm/snitch/pkg/detection"
	"github.com/activecm/snitch/pkg/geo"
	"github.com/activecm/snitch/pkg/match"
	"github.com/activecm/snitch/pkg/notify"
	"github.com/activecm/snitch/pkg/scan"
	"github.com/activecm/snitch/pkg/sniffer"
	"github.com/activecm/snitch/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "scan",
		Usage: "Run a single scan cycle over the host's outbound connections",
		Flags: []cli.Flag{
			configFlag,
			blocklistFileFlag,
			thresholdFlag,
			baselineFlag,
			notifyFlag,
			includeInternalFlag,
			allStatesFlag,
		},
		Action: runScan,
	}

	bootstrapCommands(command)
}

func runScan(c *cli.Context) error {
	res := resources.InitResources(c.String("config"))

	scanner, cleanup, err := buildScanner(res, c, true)
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	defer cleanup()

	summary, err := scanner.Run(context.Background())
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	fmt.Fprintf(os.Stdout,
		"Conns scanned: %d | rDNS resolved: %d | Matches: %d | Baseline logged: %d\n",
		summary.Connections, summary.RDNSHits, summary.Matches, summary.Baselines)
	return nil
}

// buildScanner assembles the full scan pipeline out of the loaded
// resources and the command line overrides. The returned cleanup
// releases the optional GeoIP handle.
func buildScanner(res *resources.Resources, c *cli.Context, showProgress bool) (*scan.Scanner, func(), error) {
	cleanup := func() {}

	threshold, err := severityFromConfig(res.Config.S.Scan.SeverityThreshold, c.String("threshold"))
	if err != nil {
		return nil, cleanup, err
	}
	notifyMin, err := severityFromConfig(res.Config.S.Notify.MinSeverity, "")
	if err != nil {
		return nil, cleanup, err
	}

	index, err := loadBlocklistIndex(res, c.StringSlice("blocklist-file"))
	if err != nil {
		return nil, cleanup, err
	}
	res.Log.Infof("loaded %d blocklist entries", index.Len())

	cache := warmResolver(res, index, showProgress)

	if err := detection.CreateIndexes(res); err != nil {
		return nil, cleanup, fmt.Errorf("preparing detections collection: %w", err)
	}

	var notifier notify.Notifier
	if res.Config.S.Notify.Enabled || c.Bool("notify") {
		notifier = notify.NewDesktopNotifier(res.Log)
	}

	var geoip *geo.Resolver
	if res.Config.S.GeoIP.Enabled {
		geoip, err = geo.Open(res.Config.S.GeoIP.DatabasePath)
		if err != nil {
			res.Log.WithError(err).Warn("could not open GeoIP database; detections will not carry countries")
			geoip = nil
		} else {
			cleanup = func() { geoip.Close() }
		}
	}

	cfg := scan.Config{
		Threshold:       threshold,
		NotifyMin:       notifyMin,
		SquelchWindow:   res.Config.R.Scan.SquelchWindow,
		Workers:         res.Config.S.Scan.Workers,
		EstablishedOnly: res.Config.S.Scan.EstablishedOnly && !c.Bool("all-states"),
		ExternalOnly:    res.Config.S.Scan.ExternalOnly && !c.Bool("include-internal"),
		IncludeUDP:      res.Config.S.Scan.IncludeUDP,
		Baseline:        res.Config.S.Scan.BaselineLogging || c.Bool("baseline"),
		DedupeBaseline:  res.Config.S.Scan.DedupeBaseline,

		NeverInclude:       res.Config.R.Filtering.NeverInclude,
		NeverIncludeDomain: res.Config.S.Filtering.NeverIncludeDomain,
	}

	scanner := scan.NewScanner(
		res.Log,
		cfg,
		match.NewEngine(index, cache),
		cache,
		sniffer.NewEnumerator(),
		detection.NewMongoSink(res),
		notifier,
		geoip,
	)
	return scanner, cleanup, nil
}
