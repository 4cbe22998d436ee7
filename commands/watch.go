package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/activecm/snitch/resources"
	"github.com/activecm/snitch/util"
	"github.com/pbnjay/memory"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "watch",
		Usage: "Continuously scan the host's outbound connections on an interval",
		Flags: []cli.Flag{
			configFlag,
			blocklistFileFlag,
			thresholdFlag,
			baselineFlag,
			notifyFlag,
			includeInternalFlag,
			allStatesFlag,
			cli.IntFlag{
				Name:  "interval, i",
				Usage: "seconds between scan cycles (0 uses the configured value)",
				Value: 0,
			},
			cli.IntFlag{
				Name:  "duration, d",
				Usage: "stop after `SECONDS` (0 runs until interrupted)",
				Value: 0,
			},
		},
		Action: runWatch,
	}

	bootstrapCommands(command)
}

func runWatch(c *cli.Context) error {
	res := resources.InitResources(c.String("config"))

	// long watches on small hosts are the common deployment; make
	// memory pressure visible up front
	if totalMem := memory.TotalMemory(); totalMem < 2*1024*1024*1024 {
		res.Log.WithFields(log.Fields{
			"total_memory": totalMem,
		}).Warn("this host has less than 2GB of memory; consider raising IntervalSeconds")
	}

	scanner, cleanup, err := buildScanner(res, c, false)
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	defer cleanup()

	interval := res.Config.R.Scan.Interval
	if c.Int("interval") > 0 {
		interval = time.Duration(c.Int("interval")) * time.Second
	}
	duration := time.Duration(c.Int("duration")) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res.Log.WithFields(log.Fields{
		"interval": util.FormatDuration(interval),
	}).Info("watching outbound connections")

	if err := scanner.Watch(ctx, interval, duration); err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	res.Log.Info("watch stopped")
	return nil
}
