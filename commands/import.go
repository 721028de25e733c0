package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/activecm/flowledger/parser"
	"github.com/activecm/flowledger/resources"
	"github.com/activecm/flowledger/util"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// ImportArgsUsage describes the positional arguments of an import
const ImportArgsUsage = "<input directory> <output directory>"

func init() {
	importCommand := cli.Command{
		Name:      "import",
		Usage:     "Summarize the packet captures in a directory",
		ArgsUsage: ImportArgsUsage,
		Flags:     ImportFlags(),
		Action:    DoImport,
	}

	bootstrapCommands(importCommand)
}

// ImportFlags are the flags understood by an import. They are also
// installed on the application so that the import subcommand may be omitted.
func ImportFlags() []cli.Flag {
	return []cli.Flag{
		configFlag,
		threadFlag,
	}
}

// DoImport runs the importer
func DoImport(c *cli.Context) error {
	inputDir, outputDir, err := validateImportArgs(c.Args())
	if err != nil {
		return usageError(c, err)
	}

	threads := c.Int("threads")
	if c.IsSet("threads") && threads < 1 {
		return usageError(c, fmt.Errorf("--threads must be at least 1, got %d", threads))
	}

	res, err := resources.InitResources(c.String("config"))
	if err != nil {
		return cli.NewExitError(err.Error(), -1)
	}

	if c.IsSet("threads") {
		res.Config.S.Import.Threads = threads
	}

	if err := runImport(res, inputDir, outputDir); err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err.Error(), -1)
	}
	return nil
}

// validateImportArgs checks the input directory exists and makes sure the
// output directory does
func validateImportArgs(args cli.Args) (string, string, error) {
	if len(args) < 2 {
		return "", "", errors.New("both an input and an output directory are required")
	}
	inputDir, outputDir := args.Get(0), args.Get(1)

	if !util.IsDir(inputDir) {
		return "", "", fmt.Errorf("input path %s is not a directory", inputDir)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("could not create output directory: %w", err)
	}
	return inputDir, outputDir, nil
}

// usageError prints the usage text of the command along with err
func usageError(c *cli.Context, err error) error {
	fmt.Fprintf(c.App.Writer, "Usage: %s [command options] %s\n", c.App.Name, ImportArgsUsage)
	return cli.NewExitError(err.Error(), usageExitCode)
}

// runImport parses every capture file in inputDir and writes the enriched
// traffic ledger and the name mapping into outputDir
func runImport(res *resources.Resources, inputDir string, outputDir string) error {
	fmt.Fprintf(res.Out, "\t[+] Importing %s:\n", inputDir)

	importer := parser.NewFSImporter(res)
	indexedFiles, err := importer.CollectFileDetails(inputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(res.Out, "\t[-] Found %d capture files\n", len(indexedFiles))

	results, err := importer.Run(indexedFiles)
	if err != nil {
		return err
	}

	enriched := importer.Enrich(results)
	if err := importer.Emit(outputDir, enriched, results.Mapping); err != nil {
		return err
	}

	stats := results.Stats
	if stats.FilesSkipped > 0 || stats.FilesTruncated > 0 {
		fmt.Fprintf(res.Out, "\t[!] %d capture files could not be read and %d were cut short, see the log for details\n",
			stats.FilesSkipped, stats.FilesTruncated)
		res.Logger().WithFields(log.Fields{
			"skipped":   stats.FilesSkipped,
			"truncated": stats.FilesTruncated,
		}).Warn("Not every capture file was parsed completely")
	}
	fmt.Fprintf(res.Out, "\t[-] Summarized %d frames into %d flows with %d resolved names\n",
		stats.Ingested, enriched.Len(), results.Mapping.Len())
	fmt.Fprintln(res.Out, "\t[-] Done!")
	return nil
}
