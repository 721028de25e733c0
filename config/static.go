package config

import (
	"fmt"
	"os"
	"reflect"

	"github.com/creasty/defaults"
	yaml "gopkg.in/yaml.v2"
)

type (
	//StaticCfg is the container for other static config sections
	StaticCfg struct {
		Log          LogStaticCfg       `yaml:"LogConfig"`
		Import       ImportStaticCfg    `yaml:"Import"`
		Tracker      TrackerStaticCfg   `yaml:"Tracker"`
		DNS          DNSStaticCfg       `yaml:"DNS"`
		Filtering    FilteringStaticCfg `yaml:"Filtering"`
		Output       OutputStaticCfg    `yaml:"Output"`
		Version      string             `yaml:"-"`
		ExactVersion string             `yaml:"-"`
	}

	//LogStaticCfg contains the configuration for logging
	LogStaticCfg struct {
		LogLevel  int    `yaml:"LogLevel" default:"2"`
		LogPath   string `yaml:"LogPath" default:"/var/lib/flowledger/logs"`
		LogToFile bool   `yaml:"LogToFile" default:"false"`
	}

	//ImportStaticCfg controls capture file discovery and parsing
	ImportStaticCfg struct {
		CaptureMarker string `yaml:"CaptureMarker" default:".pcap"`
		Threads       int    `yaml:"Threads" default:"1"`
		// ImportBuffer caps the bytes of capture files parsed concurrently.
		// Zero derives the cap from system memory.
		ImportBuffer int64 `yaml:"ImportBuffer" default:"0"`
		ShowProgress bool  `yaml:"ShowProgress" default:"true"`
	}

	//TrackerStaticCfg controls the TCP connection state tracker
	TrackerStaticCfg struct {
		// Scope is "run" (state carries across files) or "file"
		Scope string `yaml:"Scope" default:"run"`
		// MaxConnections bounds the tracked connections with LRU eviction.
		// Zero leaves the tracker unbounded.
		MaxConnections int `yaml:"MaxConnections" default:"0"`
	}

	//DNSStaticCfg controls how DNS answers feed the name mapping
	DNSStaticCfg struct {
		// CollisionPolicy is "last" (later facts overwrite) or "first"
		CollisionPolicy string `yaml:"CollisionPolicy" default:"last"`
		IncludeAAAA     bool   `yaml:"IncludeAAAA" default:"true"`
	}

	//FilteringStaticCfg drops traffic to or from the listed subnets
	FilteringStaticCfg struct {
		AlwaysInclude []string `yaml:"AlwaysInclude"`
		NeverInclude  []string `yaml:"NeverInclude"`
	}

	//OutputStaticCfg names the two artifacts written per run
	OutputStaticCfg struct {
		LedgerFile  string `yaml:"LedgerFile" default:"output.json"`
		MappingFile string `yaml:"MappingFile" default:"dnsMapping.json"`
	}
)

// loadStaticConfig attempts to parse a config file
func loadStaticConfig(cfgPath string, config *StaticCfg) error {
	cfgFile, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("could not read config %s: %w", cfgPath, err)
	}

	if err := defaults.Set(config); err != nil {
		return err
	}

	if err := parseStaticConfig(cfgFile, config); err != nil {
		return fmt.Errorf("failed to read config %s: %w", cfgPath, err)
	}

	config.Version = Version
	config.ExactVersion = ExactVersion
	return nil
}

// parseStaticConfig deserializes yaml over an already defaulted config
func parseStaticConfig(cfgFile []byte, config *StaticCfg) error {
	if err := yaml.Unmarshal(cfgFile, config); err != nil {
		return err
	}

	// expand env variables, config is a pointer
	// so we have to call elem on the reflect value
	expandConfig(reflect.ValueOf(config).Elem())
	return nil
}
