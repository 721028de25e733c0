package resources

import (
	"io"
	"testing"

	"github.com/activecm/flowledger/config"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

//InitTestResources creates a default testing resource bundle. Console
//output is discarded and log entries are captured by the returned hook.
func InitTestResources(t *testing.T) (*Resources, *test.Hook) {
	t.Helper()

	conf, err := config.LoadTestingConfig()
	if err != nil {
		t.Fatal(err)
	}

	res, err := NewResources(conf, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	res.Log.Out = io.Discard
	res.Log.Level = log.DebugLevel

	hook := test.NewLocal(res.Log)
	return res, hook
}
