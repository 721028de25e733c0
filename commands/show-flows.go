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
	"github.com/activecm/flowledger/pkg/ledger"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{

		Name:      "show-flows",
		Usage:     "Print the traffic summary written by an import",
		ArgsUsage: "<output directory>",
		Flags: []cli.Flag{
			humanFlag,
			configFlag,
			limitFlag,
			noLimitFlag,
			delimFlag,
			cli.BoolFlag{
				Name:  "by-bytes, b",
				Usage: "Sort the flows by total bytes transferred, largest first.",
			},
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

			data, err := getFlowResultsView(filepath.Join(dir, conf.S.Output.LedgerFile), c.Bool("by-bytes"), c.Int("limit"), c.Bool("no-limit"))
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}

			if len(data) == 0 {
				return cli.NewExitError("No results were found in "+dir, -1)
			}

			if c.Bool("human-readable") {
				return showFlowsHuman(os.Stdout, data)
			}
			return showFlows(os.Stdout, data, c.String("delimiter"))
		},
	}
	bootstrapCommands(command)
}

// flowView is one row of the traffic summary
type flowView struct {
	Key   ledger.Key
	Entry ledger.Entry
}

var flowHeaders = []string{"Source", "Protocol", "Port", "Destination", "Upload", "Download", "First Seen", "Last Seen"}

// getFlowResultsView loads a ledger artifact and orders its rows
func getFlowResultsView(path string, byBytes bool, limit int, noLimit bool) ([]flowView, error) {
	l, err := emitter.ReadLedger(path)
	if err != nil {
		return nil, err
	}

	keys := l.Keys()
	rows := make([]flowView, 0, len(keys))
	for _, key := range keys {
		entry, _ := l.Get(key)
		rows = append(rows, flowView{Key: key, Entry: entry})
	}

	if byBytes {
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].Entry.Total() > rows[b].Entry.Total()
		})
	}

	if !noLimit && limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func showFlows(w io.Writer, rows []flowView, delim string) error {
	// Print the headers and analytic values, separated by a delimiter
	fmt.Fprintln(w, strings.Join(flowHeaders, delim))
	for _, row := range rows {
		fmt.Fprintln(w,
			strings.Join(
				[]string{
					row.Key.Source, row.Key.Protocol, row.Key.Port, row.Key.Destination,
					i(row.Entry.Upload), i(row.Entry.Download),
					f(row.Entry.FirstSeen), f(row.Entry.LastSeen),
				},
				delim,
			),
		)
	}
	return nil
}

func showFlowsHuman(w io.Writer, rows []flowView) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(flowHeaders)
	for _, row := range rows {
		table.Append([]string{
			row.Key.Source, row.Key.Protocol, row.Key.Port, row.Key.Destination,
			i(row.Entry.Upload), i(row.Entry.Download),
			ts(row.Entry.FirstSeen), ts(row.Entry.LastSeen),
		})
	}
	table.Render()
	return nil
}
