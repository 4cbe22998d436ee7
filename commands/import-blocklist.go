package commands

import (
	"fmt"
	"os"

	"github.com/activecm/snitch/pkg/blocklist"
	"github.com/activecm/snitch/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "import-blocklist",
		Usage: "Load blocklist entries from CSV files or URLs into the database",
		UsageText: "snitch import-blocklist [command-options] <file-or-url>...\n\n" +
			"Each row is \"pattern,category,severity\" where pattern is a domain\n" +
			"suffix, a literal IP, or a CIDR.",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: importBlocklist,
	}

	bootstrapCommands(command)
}

func importBlocklist(c *cli.Context) error {
	if len(c.Args()) == 0 {
		return cli.NewExitError("Specify at least one blocklist file or URL", -1)
	}

	res := resources.InitResources(c.String("config"))

	entries, err := blocklist.NewFileRepository(c.Args()).LoadAll()
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	usable := entries[:0]
	for _, entry := range entries {
		if entry.Valid() {
			usable = append(usable, entry)
		}
	}
	if skipped := len(entries) - len(usable); skipped > 0 {
		res.Log.Warnf("skipped %d malformed blocklist entries", skipped)
	}
	if len(usable) == 0 {
		return cli.NewExitError("no usable blocklist entries found", -1)
	}

	if err := blocklist.CreateIndexes(res); err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	imported, err := blocklist.Import(res, usable)
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	fmt.Fprintf(os.Stdout, "Imported %d blocklist entries\n", imported)
	return nil
}
