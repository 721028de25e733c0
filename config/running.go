package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/activecm/flowledger/pkg/hostname"
	"github.com/activecm/flowledger/util"
	"github.com/blang/semver"
	"github.com/pbnjay/memory"
)

const (
	// ScopeRun keeps TCP connection state for the whole run
	ScopeRun = "run"
	// ScopeFile resets TCP connection state for every capture file
	ScopeFile = "file"


	// fallbackImportBuffer is used when system memory can't be determined
	fallbackImportBuffer int64 = 2 << 30
)

type (
	//RunningCfg holds configuration options that are parsed at run time
	RunningCfg struct {
		DNS       DNSRunningCfg
		Filtering FilteringRunningCfg
		Import    ImportRunningCfg
		Version   semver.Version
	}

	//DNSRunningCfg holds the parsed name mapping options
	DNSRunningCfg struct {
		CollisionPolicy hostname.Policy
	}

	//FilteringRunningCfg holds the parsed filtering subnets
	FilteringRunningCfg struct {
		AlwaysIncluded []*net.IPNet
		NeverIncluded  []*net.IPNet
	}

	//ImportRunningCfg holds the resolved import limits
	ImportRunningCfg struct {
		BatchSizeBytes int64
	}
)

// initRunningConfig validates the static config and derives the running config from it
func initRunningConfig(static *StaticCfg, config *RunningCfg) error {
	var err error

	if static.Import.Threads < 1 {
		return fmt.Errorf("Import.Threads must be at least 1, got %d", static.Import.Threads)
	}
	if static.Import.CaptureMarker == "" {
		return errors.New("Import.CaptureMarker must not be empty")
	}
	if !util.StringInSlice(static.Tracker.Scope, []string{ScopeRun, ScopeFile}) {
		return fmt.Errorf("Tracker.Scope must be %q or %q, got %q", ScopeRun, ScopeFile, static.Tracker.Scope)
	}
	if static.Tracker.MaxConnections < 0 {
		return fmt.Errorf("Tracker.MaxConnections must not be negative, got %d", static.Tracker.MaxConnections)
	}
	config.DNS.CollisionPolicy, err = hostname.ParsePolicy(static.DNS.CollisionPolicy)
	if err != nil {
		return fmt.Errorf("DNS.CollisionPolicy: %w", err)
	}
	if static.Output.LedgerFile == "" || static.Output.MappingFile == "" {
		return errors.New("Output.LedgerFile and Output.MappingFile must be set")
	}
	if static.Output.LedgerFile == static.Output.MappingFile {
		return errors.New("Output.LedgerFile and Output.MappingFile must differ")
	}

	config.Filtering.AlwaysIncluded, err = util.ParseSubnets(static.Filtering.AlwaysInclude)
	if err != nil {
		return fmt.Errorf("Filtering.AlwaysInclude: %w", err)
	}
	config.Filtering.NeverIncluded, err = util.ParseSubnets(static.Filtering.NeverInclude)
	if err != nil {
		return fmt.Errorf("Filtering.NeverInclude: %w", err)
	}

	config.Import.BatchSizeBytes = static.Import.ImportBuffer
	if config.Import.BatchSizeBytes <= 0 {
		config.Import.BatchSizeBytes = fallbackImportBuffer
		// a quarter of system memory leaves room for the decoded ledger
		if total := memory.TotalMemory(); total > 0 {
			config.Import.BatchSizeBytes = int64(total / 4)
		}
	}

	// a development build may not carry a valid version, that isn't fatal
	if version, err := semver.ParseTolerant(static.Version); err == nil {
		config.Version = version
	}

	return nil
}
