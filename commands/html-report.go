package commands

import (
	"strings"

	"github.com/activecm/snitch/pkg/detection"
	"github.com/activecm/snitch/reporting"
	"github.com/activecm/snitch/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "html-report",
		Usage: "Write recorded detections out as an html report",
		Flags: []cli.Flag{
			configFlag,
			limitFlag,
			cli.StringFlag{
				Name:  "since",
				Usage: "only report detections newer than `WHEN` (30m, 2h, 7d, or RFC3339)",
			},
			cli.StringFlag{
				Name:  "until",
				Usage: "only report detections older than `WHEN` (30m, 2h, 7d, or RFC3339)",
			},
			cli.StringFlag{
				Name:  "min-severity, s",
				Usage: "only report detections at or above `SEVERITY` (Low, Medium, High)",
			},
			cli.StringFlag{
				Name:  "match-type, m",
				Usage: "only report 'match' or 'baseline' records",
			},
			cli.StringFlag{
				Name:  "category",
				Usage: "only report detections with an exact `CATEGORY`",
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
				Usage: "only report detections for an exact destination `IP`",
			},
			cli.StringFlag{
				Name:  "unique, u",
				Usage: "collapse results by key: " + strings.Join(detection.UniqueModes, ", "),
			},
		},
		Action: func(c *cli.Context) error {
			filter, err := detectionFilter(c)
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}

			res := resources.InitResources(c.String("config"))

			err = reporting.PrintHTML(res, filter)
			if err != nil {
				res.Log.Error(err)
				return cli.NewExitError(err.Error(), -1)
			}
			return nil
		},
	}

	bootstrapCommands(command)
}
