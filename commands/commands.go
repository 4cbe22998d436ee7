package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/resolver"
	"github.com/activecm/snitch/resources"
	"github.com/urfave/cli"
)

var (
	allCommands []cli.Command

	// below are some prebuilt flags that get used often in various commands

	// configFlag allows users to specify an alternate config file to use
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "use a given `CONFIG_FILE` when running this command",
		Value: "",
	}

	// humanFlag prints results in a human readable table
	humanFlag = cli.BoolFlag{
		Name:  "human-readable, H",
		Usage: "print a pretty table instead of csv",
	}

	// blocklistFileFlag adds extra blocklist sources for one run
	blocklistFileFlag = cli.StringSliceFlag{
		Name:  "blocklist-file, b",
		Usage: "also load blocklist entries from `FILE_OR_URL` (repeatable)",
	}

	// thresholdFlag overrides the configured severity threshold
	thresholdFlag = cli.StringFlag{
		Name:  "threshold, t",
		Usage: "only persist detections at or above `SEVERITY` (Low, Medium, High)",
		Value: "",
	}

	// baselineFlag turns on baseline logging for one run
	baselineFlag = cli.BoolFlag{
		Name:  "baseline",
		Usage: "record unmatched and sub-threshold external connections for audit",
	}

	// notifyFlag turns on desktop notifications for one run
	notifyFlag = cli.BoolFlag{
		Name:  "notify, n",
		Usage: "send desktop notifications for detections",
	}

	// includeInternalFlag scans private destinations as well
	includeInternalFlag = cli.BoolFlag{
		Name:  "include-internal",
		Usage: "also scan connections to private and loopback destinations",
	}

	// allStatesFlag includes non established TCP sockets
	allStatesFlag = cli.BoolFlag{
		Name:  "all-states",
		Usage: "include TCP connections in any state, not just ESTABLISHED",
	}

	// limitFlag caps the number of results a show command returns
	limitFlag = cli.IntFlag{
		Name:  "limit, l",
		Usage: "limit the number of results",
		Value: 1000,
	}

	// delimFlag sets the field separator for non human output
	delimFlag = cli.StringFlag{
		Name:  "delimiter, D",
		Usage: "use a specific `DELIM` as the separator for csv output",
		Value: ",",
	}
)

// bootstrapCommands simply adds a given command to the allCommands array
func bootstrapCommands(commands ...cli.Command) {
	allCommands = append(allCommands, commands...)
}

// Commands provides all of the defined commands to the front end
func Commands() []cli.Command {
	return allCommands
}

// loadBlocklistIndex gathers entries from every configured source and
// builds the lookup index. Only a blocklist with zero usable entries
// is fatal.
func loadBlocklistIndex(res *resources.Resources, extraFiles []string) (*blocklist.Index, error) {
	var entries []blocklist.Entry

	if res.Config.S.Blocklist.UseDatabase {
		dbEntries, err := blocklist.NewMongoRepository(res).LoadAll()
		if err != nil {
			return nil, fmt.Errorf("reading blocklist from database: %w", err)
		}
		entries = append(entries, dbEntries...)
	}

	files := append([]string{}, res.Config.S.Blocklist.CustomFiles...)
	files = append(files, extraFiles...)
	if len(files) > 0 {
		fileEntries, err := blocklist.NewFileRepository(files).LoadAll()
		if err != nil {
			return nil, fmt.Errorf("reading blocklist files: %w", err)
		}
		entries = append(entries, fileEntries...)
	}

	index, skipped, err := blocklist.BuildIndex(entries)
	if err != nil {
		if errors.Is(err, blocklist.ErrNoUsableEntries) {
			return nil, errors.New("the blocklist has no usable entries; " +
				"import one with 'snitch import-blocklist' or configure Blocklist: CustomFiles")
		}
		return nil, err
	}
	if skipped > 0 {
		res.Log.Warnf("skipped %d malformed blocklist entries", skipped)
	}
	return index, nil
}

// warmResolver seeds the resolution cache with the blocklist's domains
func warmResolver(res *resources.Resources, index *blocklist.Index, showProgress bool) *resolver.Cache {
	cache := resolver.NewCache(
		res.Config.R.DNS.ForwardTTL,
		res.Config.R.DNS.ReverseTimeout,
		res.Log,
	)

	domains := index.Domains()
	resolved := cache.Warm(domains, res.Config.S.DNS.WarmLimit, showProgress)
	res.Log.Infof("resolved %d of %d blocklist domains", resolved, len(domains))
	return cache
}

// severityFromConfig applies the threshold flag over the config value
func severityFromConfig(configured string, override string) (blocklist.Severity, error) {
	raw := configured
	if strings.TrimSpace(override) != "" {
		raw = override
	}
	return blocklist.ParseSeverity(raw)
}
