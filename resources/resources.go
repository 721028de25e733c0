package resources

import (
	"fmt"
	"io"
	"os"

	"github.com/activecm/flowledger/config"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type (
	// Resources provides a data structure for passing system Resources
	Resources struct {
		Config *config.Config
		Log    *log.Logger
		// Out receives the human readable progress lines
		Out io.Writer
		// RunID tags every log entry written during this run
		RunID string
	}
)

// InitResources grabs the configuration file and intitializes the configuration data
// returning a *Resources object which has all of the necessary configuration information
func InitResources(userConfig string) (*Resources, error) {
	conf, err := config.LoadConfig(userConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewResources(conf, os.Stdout)
}

// NewResources fires up the logging system for an already loaded config
func NewResources(conf *config.Config, out io.Writer) (*Resources, error) {
	logger := initLogger(&conf.S.Log)

	if conf.S.Log.LogToFile {
		if err := addFileLogger(logger, conf.S.Log.LogPath); err != nil {
			return nil, fmt.Errorf("failed to set up file logging in %s: %w", conf.S.Log.LogPath, err)
		}
	}

	return &Resources{
		Config: conf,
		Log:    logger,
		Out:    out,
		RunID:  uuid.New().String(),
	}, nil
}

// Logger returns a log entry carrying the run id
func (r *Resources) Logger() *log.Entry {
	return r.Log.WithField("run", r.RunID)
}
