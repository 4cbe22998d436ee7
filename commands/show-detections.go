package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/pkg/detection"
	"github.com/activecm/snitch/resources"
	"github.com/activecm/snitch/util"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{

		Name:  "show-detections",
		Usage: "Print recorded detections",
		Flags: []cli.Flag{
			configFlag,
			humanFlag,
			limitFlag,
			delimFlag,
			cli.StringFlag{
				Name:  "since",
				Usage: "only show detections newer than `WHEN` (30m, 2h, 7d, or RFC3339)",
			},
			cli.StringFlag{
				Name:  "until",
				Usage: "only show detections older than `WHEN` (30m, 2h, 7d, or RFC3339)",
			},
			cli.StringFlag{
				Name:  "min-severity, s",
				Usage: "only show detections at or above `SEVERITY` (Low, Medium, High)",
			},
			cli.StringFlag{
				Name:  "match-type, m",
				Usage: "only show 'match' or 'baseline' records",
			},
			cli.StringFlag{
				Name:  "category",
				Usage: "only show detections with an exact `CATEGORY`",
			},
			cli.StringFlag{
				Name:  "proc, p",
				Usage: "filter by process name, e.g. 'contains:chrome' or 'eq:OneDrive.exe'",
			},
			cli.StringFlag{
				Name:  "domain",
				Usage: "filter by destination or matched domain, e.g. 'contains:google'",
			},
			cli.StringFlag{
				Name:  "ip",
				Usage: "only show detections for an exact destination `IP`",
			},
			cli.StringFlag{
				Name:  "unique, u",
				Usage: "collapse results by key: " + strings.Join(detection.UniqueModes, ", "),
			},
			cli.BoolFlag{
				Name:  "json, j",
				Usage: "print results as json",
			},
		},
		Action: showDetections,
	}

	bootstrapCommands(command)
}

func showDetections(c *cli.Context) error {
	filter, err := detectionFilter(c)
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	res := resources.InitResources(c.String("config"))

	events, err := detection.Query(res, filter)
	if err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err.Error(), -1)
	}

	if len(events) == 0 {
		return cli.NewExitError("No detections matched the given filters", -1)
	}

	if c.Bool("json") {
		return showDetectionsJSON(events)
	}
	if c.Bool("human-readable") {
		return showDetectionsHuman(events)
	}
	return showDetectionsDelim(events, c.String("delimiter"))
}

func detectionFilter(c *cli.Context) (detection.Filter, error) {
	filter := detection.Filter{
		MatchType: c.String("match-type"),
		Category:  c.String("category"),
		Process:   c.String("proc"),
		Domain:    c.String("domain"),
		RemoteIP:  c.String("ip"),
		Unique:    c.String("unique"),
		Limit:     c.Int("limit"),
	}

	now := time.Now()
	if raw := c.String("since"); raw != "" {
		since, err := util.ParseRelativeTime(raw, now)
		if err != nil {
			return filter, err
		}
		filter.Since = since
	}
	if raw := c.String("until"); raw != "" {
		until, err := util.ParseRelativeTime(raw, now)
		if err != nil {
			return filter, err
		}
		filter.Until = until
	}

	if raw := c.String("min-severity"); raw != "" {
		minSeverity, err := blocklist.ParseSeverity(raw)
		if err != nil {
			return filter, err
		}
		filter.MinSeverity = minSeverity
	}

	if filter.Unique != "" && !util.StringInSlice(filter.Unique, detection.UniqueModes) {
		return filter, fmt.Errorf("invalid unique mode %q: use one of %s",
			filter.Unique, strings.Join(detection.UniqueModes, ", "))
	}

	return filter, nil
}

func detectionRow(event detection.Event) []string {
	return []string{
		event.Timestamp.Format(util.TimeFormat),
		event.ProcessName,
		strconv.Itoa(event.PID),
		event.RemoteIP + ":" + strconv.Itoa(int(event.RemotePort)),
		event.RDNS,
		event.MatchedPattern,
		event.Category,
		event.Severity.String(),
		event.MatchType,
		strconv.Itoa(event.RepeatCount),
		event.Country,
	}
}

var detectionHeaders = []string{
	"Time", "Process", "PID", "Destination", "rDNS",
	"Pattern", "Category", "Severity", "Type", "Repeats", "Country",
}

func showDetectionsDelim(events []detection.Event, delim string) error {
	fmt.Println(strings.Join(detectionHeaders, delim))
	for _, event := range events {
		fmt.Println(strings.Join(detectionRow(event), delim))
	}
	return nil
}

func showDetectionsHuman(events []detection.Event) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(80)
	table.SetHeader(detectionHeaders)
	for _, event := range events {
		table.Append(detectionRow(event))
	}
	table.Render()
	return nil
}

func showDetectionsJSON(events []detection.Event) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
