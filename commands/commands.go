package commands

import (
	"github.com/urfave/cli"
)

// usageExitCode is returned when the command line can't be acted upon
const usageExitCode = 2

var (
	allCommands []cli.Command

	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "Load configuration from `FILE`",
		Value: "",
	}

	threadFlag = cli.IntFlag{
		Name:  "threads, t",
		Usage: "Parse up to `N` capture files at once (overrides Import.Threads)",
	}

	humanFlag = cli.BoolFlag{
		Name:  "human-readable, H",
		Usage: "Print a report instead of delimited values",
	}

	delimFlag = cli.StringFlag{
		Name:  "delimiter, d",
		Usage: "Change the delimiter used in output",
		Value: ",",
	}

	limitFlag = cli.IntFlag{
		Name:  "limit, li",
		Usage: "Print up to `N` rows",
		Value: 1000,
	}

	noLimitFlag = cli.BoolFlag{
		Name:  "no-limit, nl",
		Usage: "Print all rows",
	}
)

// Commands provides all of the defined commands to the front end
func Commands() []cli.Command {
	return allCommands
}

// bootstrapCommands simply adds a given command to the allCommands array
func bootstrapCommands(commands ...cli.Command) {
	allCommands = append(allCommands, commands...)
}
