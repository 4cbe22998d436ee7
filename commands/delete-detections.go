package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/activecm/snitch/pkg/detection"
	"github.com/activecm/snitch/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "delete-detections",
		Usage: "Delete every recorded detection",
		Flags: []cli.Flag{
			configFlag,
			cli.BoolFlag{
				Name:  "force, f",
				Usage: "delete without asking",
			},
		},
		Action: deleteDetections,
	}

	bootstrapCommands(command)
}

func deleteDetections(c *cli.Context) error {
	if !c.Bool("force") {
		fmt.Print("Are you sure you want to delete all recorded detections [y/N] ")

		read := bufio.NewReader(os.Stdin)
		response, err := read.ReadString('\n')
		if err != nil {
			return cli.NewExitError(err.Error(), -1)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			return cli.NewExitError("Detections were not deleted.", 0)
		}
	}

	res := resources.InitResources(c.String("config"))

	removed, err := detection.DeleteAll(res)
	if err != nil {
		return cli.NewExitError("Error: could not delete detections: "+err.Error(), -1)
	}
	fmt.Printf("Deleted %d detections\n", removed)
	return nil
}
