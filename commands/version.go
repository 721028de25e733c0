package commands

import (
	"fmt"
	"io"

	"github.com/activecm/flowledger/config"
	"github.com/blang/semver"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:   "version",
		Usage:  "Show flowledger version",
		Action: showVersion,
	}

	bootstrapCommands(command)
}

func showVersion(c *cli.Context) error {
	return printVersion(c.App.Writer, c.App.Name, config.Version, config.ExactVersion)
}

// printVersion writes the release version and, when it carries more detail,
// the exact build version
func printVersion(w io.Writer, name string, version string, exact string) error {
	parsed, err := semver.ParseTolerant(version)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid version %q: %s", version, err.Error()), -1)
	}

	fmt.Fprintf(w, "%s version %s\n", name, parsed.String())
	if exact != "" && exact != "undefined" && exact != version {
		fmt.Fprintf(w, "build %s\n", exact)
	}
	return nil
}
