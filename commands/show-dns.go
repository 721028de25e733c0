package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/activecm/flowledger/config"
	"github.com/activecm/flowledger/pkg/emitter"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{

		Name:      "show-dns",
		Usage:     "Print the name mapping written by an import",
		ArgsUsage: "<output directory>",
		Flags: []cli.Flag{
			humanFlag,
			configFlag,
			delimFlag,
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().Get(0)
			if dir == "" {
				return cli.NewExitError("Specify an output directory", usageExitCode)
			}

			conf, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}

			names, err := emitter.ReadMapping(filepath.Join(dir, conf.S.Output.MappingFile))
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}

			if len(names) == 0 {
				return cli.NewExitError("No results were found in "+dir, -1)
			}

			if c.Bool("human-readable") {
				return showNamesHuman(os.Stdout, names)
			}
			return showNames(os.Stdout, names, c.String("delimiter"))
		},
	}
	bootstrapCommands(command)
}

var nameHeaders = []string{"Identifier", "Name"}

func sortedIdentifiers(names map[string]string) []string {
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func showNames(w io.Writer, names map[string]string, delim string) error {
	fmt.Fprintln(w, strings.Join(nameHeaders, delim))
	for _, id := range sortedIdentifiers(names) {
		fmt.Fprintln(w, strings.Join([]string{id, names[id]}, delim))
	}
	return nil
}

func showNamesHuman(w io.Writer, names map[string]string) error {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(100)
	table.SetHeader(nameHeaders)
	for _, id := range sortedIdentifiers(names) {
		table.Append([]string{id, names[id]})
	}
	table.Render()
	return nil
}
