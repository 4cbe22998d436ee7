package main

import (
	"os"
	"runtime"

	"github.com/activecm/snitch/commands"
	"github.com/activecm/snitch/config"
	"github.com/urfave/cli"
)

// Entry point of snitch
func main() {
	app := cli.NewApp()
	app.Name = "snitch"
	app.Usage = "Watch host connections for blocklisted destinations."

	// Version is set at build time via ldflags so that a quick help
	// command will let the testers know what version they're on
	app.Version = config.Version

	// Define commands used with this application
	app.Commands = commands.Commands()
	cli.VersionPrinter = commands.GetVersionPrinter()

	runtime.GOMAXPROCS(runtime.NumCPU())
	app.Run(os.Args)
}
