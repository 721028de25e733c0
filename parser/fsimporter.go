package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/activecm/flowledger/config"
	"github.com/activecm/flowledger/parser/files"
	"github.com/activecm/flowledger/parser/parsetypes"
	"github.com/activecm/flowledger/pkg/conntrack"
	"github.com/activecm/flowledger/pkg/emitter"
	"github.com/activecm/flowledger/pkg/enrich"
	"github.com/activecm/flowledger/pkg/flow"
	"github.com/activecm/flowledger/pkg/hostname"
	"github.com/activecm/flowledger/pkg/ledger"
	"github.com/activecm/flowledger/resources"
	"github.com/activecm/flowledger/util"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
)

type (
	//FSImporter provides the ability to import capture files from the file system
	FSImporter struct {
		log    *log.Entry
		config *config.Config
		out    io.Writer

		batchSizeBytes int64
		filter         filter

		// unindexed counts the discovered files which could not be indexed
		unindexed int
	}
)

//NewFSImporter creates a new file system importer
func NewFSImporter(res *resources.Resources) *FSImporter {
	return &FSImporter{
		log:            res.Logger(),
		config:         res.Config,
		out:            res.Out,
		batchSizeBytes: res.Config.R.Import.BatchSizeBytes,
		filter:         newFilter(res.Config),
	}
}

//CollectFileDetails finds the capture files in dir, sniffs their containers and gets their stats
func (fs *FSImporter) CollectFileDetails(dir string) ([]*files.IndexedFile, error) {
	captureFiles, err := files.GatherCaptureFiles(dir, fs.config.S.Import.CaptureMarker, fs.log)
	if err != nil {
		return nil, err
	}

	indexedFiles := files.IndexFiles(captureFiles, fs.config.S.Import.Threads, fs.log)
	fs.unindexed = len(captureFiles) - len(indexedFiles)
	if len(captureFiles) > 0 && len(indexedFiles) == 0 {
		fmt.Fprintln(fs.out, "\t[!] No compatible capture files found or all capture files provided were unreadable.")
	}
	return indexedFiles, nil
}

//Run parses the indexed files into a traffic ledger and a name mapping
func (fs *FSImporter) Run(indexedFiles []*files.IndexedFile) (*ParseResults, error) {
	start := time.Now()

	results, err := newParseResults(fs.config, fs.log)
	if err != nil {
		return nil, err
	}
	results.Stats.FilesSkipped = fs.unindexed

	// batch up the indexed files so as not to read too much in at one time
	batchedIndexedFiles := batchFilesBySize(indexedFiles, fs.batchSizeBytes)

	for i, indexedFileBatch := range batchedIndexedFiles {
		if len(batchedIndexedFiles) > 1 {
			fmt.Fprintf(fs.out, "\t[-] Processing batch %d of %d\n", i+1, len(batchedIndexedFiles))
		}

		startParse := time.Now()
		if err := fs.parseFiles(indexedFileBatch, results); err != nil {
			return nil, err
		}
		fs.log.WithFields(log.Fields{
			"batch":      i + 1,
			"files":      len(indexedFileBatch),
			"parse_time": time.Since(startParse).String(),
		}).Debug("Finished parsing batch")
	}

	progTime := time.Now()
	fields := results.Stats.Fields()
	fields["current_time"] = progTime.Format(util.TimeFormat)
	fields["total_time"] = progTime.Sub(start).String()
	fs.log.WithFields(fields).Info("Finished parsing capture files")

	return results, nil
}

//Enrich rewrites the addresses of the parsed ledger through the name mapping
func (fs *FSImporter) Enrich(results *ParseResults) *ledger.Ledger {
	enriched := enrich.Enrich(results.Ledger, results.Mapping)
	fs.log.WithFields(log.Fields{
		"entries":          results.Ledger.Len(),
		"enriched_entries": enriched.Len(),
		"names":            results.Mapping.Len(),
	}).Info("Finished enriching traffic ledger")
	return enriched
}

//Emit writes the traffic ledger and the name mapping into outputDir
func (fs *FSImporter) Emit(outputDir string, enriched *ledger.Ledger, mapping *hostname.Mapping) error {
	ledgerPath := filepath.Join(outputDir, fs.config.S.Output.LedgerFile)
	mappingPath := filepath.Join(outputDir, fs.config.S.Output.MappingFile)

	if err := emitter.WriteLedger(ledgerPath, enriched); err != nil {
		return err
	}
	if err := emitter.WriteMapping(mappingPath, mapping); err != nil {
		return err
	}

	fmt.Fprintf(fs.out, "\t[-] Wrote %s and %s\n", ledgerPath, mappingPath)
	return nil
}

// batchFilesBySize takes in an slice of indexedFiles and splits the array into
// subgroups of indexedFiles such that each group has a total size in bytes less than size.
// A file larger than size gets a batch of its own.
func batchFilesBySize(indexedFiles []*files.IndexedFile, size int64) [][]*files.IndexedFile {
	// sort the indexed files so we process them in order
	sort.Slice(indexedFiles, func(i, j int) bool {
		return indexedFiles[i].Path < indexedFiles[j].Path
	})

	batches := make([][]*files.IndexedFile, 0)
	currBatch := make([]*files.IndexedFile, 0)
	currAggBytes := int64(0)

	for _, file := range indexedFiles {
		// split off the current batch if adding the next file would exceed the target size.
		// Guarding against the len(currBatch) == 0 case prevents us from failing when we cannot make
		// small enough batch sizes.
		if len(currBatch) != 0 && currAggBytes+file.Length >= size {
			batches = append(batches, currBatch)
			currBatch = make([]*files.IndexedFile, 0)
			currAggBytes = 0
		}

		currBatch = append(currBatch, file)
		currAggBytes += file.Length
	}
	if len(currBatch) != 0 {
		batches = append(batches, currBatch) // add the last batch
	}
	return batches
}

//parseFiles parses a batch of capture files into results. With more than one
//thread every file is parsed into its own partial results, which are merged
//in file order once the batch is done.
func (fs *FSImporter) parseFiles(indexedFiles []*files.IndexedFile, results *ParseResults) error {
	if len(indexedFiles) == 0 {
		return nil
	}

	parsingThreads := util.Min(fs.config.S.Import.Threads, len(indexedFiles))
	if parsingThreads <= 1 {
		progress, done := fs.newProgress(len(indexedFiles))
		defer done()

		for _, indexedFile := range indexedFiles {
			start := time.Now()
			if fs.config.S.Tracker.Scope == config.ScopeFile {
				results.Tracker.Reset()
			}
			fs.parseFile(indexedFile, results)
			progress(time.Since(start))
		}
		return nil
	}

	partials := make([]*ParseResults, len(indexedFiles))
	for j := range partials {
		partial, err := newParseResults(fs.config, fs.log)
		if err != nil {
			return err
		}
		partials[j] = partial
	}

	progress, done := fs.newProgress(len(indexedFiles))
	parsingWG := new(sync.WaitGroup)

	for i := 0; i < parsingThreads; i++ {
		parsingWG.Add(1)

		go func(start int, jump int) {
			defer parsingWG.Done()
			//comb over array
			for j := start; j < len(indexedFiles); j += jump {
				startFile := time.Now()
				fs.parseFile(indexedFiles[j], partials[j])
				progress(time.Since(startFile))
			}
		}(i, parsingThreads)
	}

	parsingWG.Wait()
	done()

	for _, partial := range partials {
		results.merge(partial)
	}
	return nil
}

// newProgress returns a callback to mark one file as parsed and a function
// which waits for the progress display to finish
func (fs *FSImporter) newProgress(total int) (func(time.Duration), func()) {
	if !fs.config.S.Import.ShowProgress {
		return func(time.Duration) {}, func() {}
	}

	p := mpb.New(mpb.WithWidth(20), mpb.WithOutput(fs.out))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("\t[-] Parsing captures:", decor.WC{W: 30, C: decor.DidentRight}),
			decor.CountersNoUnit(" %d / %d ", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var mu sync.Mutex
	return func(elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		bar.IncrBy(1, elapsed)
	}, p.Wait
}

//parseFile reads every frame of a capture file into results. A file which
//cannot be opened is skipped. A read error part way through stops the file
//but keeps what was parsed before it.
func (fs *FSImporter) parseFile(indexedFile *files.IndexedFile, results *ParseResults) {
	logger := fs.log.WithField("file", indexedFile.Path)

	capture, err := files.OpenCapture(indexedFile.Path)
	if err != nil {
		results.Stats.FilesSkipped++
		logger.WithField("error", err.Error()).Error("Could not open capture file for parsing")
		return
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logger.WithField("error", err.Error()).Debug("Error closing capture file")
		}
	}()

	results.Stats.Files++
	frames := int64(0)
	for {
		frame, err := capture.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			results.Stats.FilesTruncated++
			logger.WithFields(log.Fields{
				"error":  err.Error(),
				"frames": frames,
			}).Warn("Stopped reading capture file early")
			break
		}
		frames++
		fs.parseFrame(frame, results)
	}

	logger.WithFields(log.Fields{
		"container": indexedFile.Container.Name(capture.Compressed),
		"frames":    frames,
	}).Debug("Finished parsing capture file")
}

//parseFrame classifies a single frame and records it in the ledger and the name mapping
func (fs *FSImporter) parseFrame(frame parsetypes.Frame, results *ParseResults) {
	results.Stats.Frames++

	if !frame.HasNetwork {
		results.Stats.NoNetwork++
		return
	}

	if fs.filter.filterPair(frame.SrcIP, frame.DstIP) {
		results.Stats.Filtered++
		return
	}

	verdict := conntrack.Reject
	if frame.HasTCP {
		verdict = results.Tracker.Probe(frame)
	}

	attributed, ok := flow.Classify(frame, verdict)
	if !ok {
		results.Stats.Rejected++
		return
	}

	if len(frame.Answers) > 0 || frame.DroppedAnswers > 0 {
		results.Stats.DNSFacts += int64(results.Mapping.Observe(frame))
	}

	results.Ledger.Ingest(attributed, frame.Seconds(), frame.Length)
	results.Stats.Ingested++
}
