package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/activecm/flowledger/commands"
	"github.com/activecm/flowledger/config"
	"github.com/urfave/cli"
)

// Entry point of flowledger
func main() {
	app := cli.NewApp()
	app.Name = "flowledger"
	app.Usage = "Summarize who talked to whom in a directory of packet captures."
	app.ArgsUsage = commands.ImportArgsUsage
	app.Version = config.Version

	// Running without a subcommand imports the given directories
	app.Flags = commands.ImportFlags()
	app.Action = commands.DoImport

	// Define commands used with this application
	app.Commands = commands.Commands()

	runtime.GOMAXPROCS(runtime.NumCPU())
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
