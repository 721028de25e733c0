package parser

import (
	"github.com/activecm/flowledger/config"
	"github.com/activecm/flowledger/pkg/conntrack"
	"github.com/activecm/flowledger/pkg/hostname"
	"github.com/activecm/flowledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

type (
	// ParseResults holds the state accumulated while parsing capture files.
	// It is passed explicitly into every file step and is not safe for
	// concurrent use; parallel parsing gives each file its own results and
	// merges them afterwards.
	ParseResults struct {
		Ledger  *ledger.Ledger
		Mapping *hostname.Mapping
		Tracker *conntrack.Tracker
		Stats   Stats
	}

	// Stats counts what happened to the files and frames of a run
	Stats struct {
		Files          int
		FilesSkipped   int
		FilesTruncated int
		Frames         int64
		NoNetwork      int64
		Filtered       int64
		Rejected       int64
		Ingested       int64
		DNSFacts       int64
	}
)

// newParseResults instantiates a ParseResults struct
func newParseResults(conf *config.Config, logger *log.Entry) (*ParseResults, error) {
	tracker, err := conntrack.NewTracker(conf.S.Tracker.MaxConnections)
	if err != nil {
		return nil, err
	}

	return &ParseResults{
		Ledger: ledger.New(),
		Mapping: hostname.NewMapping(hostname.Options{
			Policy:      conf.R.DNS.CollisionPolicy,
			IncludeAAAA: conf.S.DNS.IncludeAAAA,
			Logger:      logger,
		}),
		Tracker: tracker,
	}, nil
}

// merge folds the results of a later file into r. Connection state is
// not carried over.
func (r *ParseResults) merge(other *ParseResults) {
	r.Ledger.Merge(other.Ledger)
	r.Mapping.Merge(other.Mapping)
	r.Stats.add(other.Stats)
}

func (s *Stats) add(other Stats) {
	s.Files += other.Files
	s.FilesSkipped += other.FilesSkipped
	s.FilesTruncated += other.FilesTruncated
	s.Frames += other.Frames
	s.NoNetwork += other.NoNetwork
	s.Filtered += other.Filtered
	s.Rejected += other.Rejected
	s.Ingested += other.Ingested
	s.DNSFacts += other.DNSFacts
}

// Fields renders the stats for structured logging
func (s Stats) Fields() log.Fields {
	return log.Fields{
		"files":           s.Files,
		"files_skipped":   s.FilesSkipped,
		"files_truncated": s.FilesTruncated,
		"frames":          s.Frames,
		"no_network":      s.NoNetwork,
		"filtered":        s.Filtered,
		"rejected":        s.Rejected,
		"ingested":        s.Ingested,
		"dns_facts":       s.DNSFacts,
	}
}
