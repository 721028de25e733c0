package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/activecm/flowledger/config"
	"github.com/activecm/flowledger/resources"

	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"
)

func init() {
	command := cli.Command{
		Flags: []cli.Flag{
			configFlag,
		},
		Name:   "test-config",
		Usage:  "Check the configuration file for validity",
		Action: testConfiguration,
	}

	bootstrapCommands(command)
}

// testConfiguration prints out the result of parsing the config file
func testConfiguration(c *cli.Context) error {
	// First, print out the config as it was parsed
	conf, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Failed to load config: %s", err.Error()), -1)
	}

	if err := printConfig(os.Stdout, conf); err != nil {
		return err
	}

	// Then test initializing external resources like file handles
	if _, err := resources.InitResources(c.String("config")); err != nil {
		return cli.NewExitError(err.Error(), -1)
	}
	return nil
}

// printConfig writes the effective static configuration as yaml
func printConfig(w io.Writer, conf *config.Config) error {
	staticConfig, err := yaml.Marshal(conf.S)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", string(staticConfig))
	return nil
}
